package record

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitriwamback/cs-dge-library-system/internal/fs"
)

const (
	snapshotFilePerm = 0o644
	snapshotDirPerm  = 0o755
)

// Store is an in-memory keyed collection backed by a single snapshot file.
//
// Reads and writes of the map are safe for concurrent use. Save is
// serialized so that an older snapshot can never replace a newer one on disk.
type Store[K comparable, V any] struct {
	path  string
	codec Codec[V]
	keyOf func(V) K
	fs    fs.FS

	saveMu sync.Mutex

	mu      sync.RWMutex
	records map[K]V
}

// New returns an empty store persisted at path. keyOf derives the key used
// when loading records from disk.
func New[K comparable, V any](path string, codec Codec[V], keyOf func(V) K, fsys fs.FS) *Store[K, V] {
	return &Store[K, V]{
		path:    path,
		codec:   codec,
		keyOf:   keyOf,
		fs:      fsys,
		records: make(map[K]V),
	}
}

// Path returns the snapshot file path.
func (s *Store[K, V]) Path() string {
	return s.path
}

// Load replaces the in-memory contents with the snapshot on disk.
//
// A missing file yields an empty store. A file that cannot be decoded
// returns an error wrapping [ErrDecode] and leaves the store empty.
func (s *Store[K, V]) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.records)

	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("%w: read %s: %w", ErrIO, s.path, err)
	}

	values, err := decodeSnapshot(s.codec, data)
	if err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}

	for _, v := range values {
		s.records[s.keyOf(v)] = v
	}

	return nil
}

// Save writes every record to the snapshot file atomically.
func (s *Store[K, V]) Save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	values := make([]V, 0, len(s.records))

	for _, v := range s.records {
		values = append(values, v)
	}

	data, err := encodeSnapshot(s.codec, values)
	s.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}

	err = s.fs.MkdirAll(filepath.Dir(s.path), snapshotDirPerm)
	if err != nil {
		return fmt.Errorf("%w: mkdir %s: %w", ErrIO, filepath.Dir(s.path), err)
	}

	err = s.fs.WriteFileAtomic(s.path, data, snapshotFilePerm)
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, s.path, err)
	}

	return nil
}

// Get returns the value stored under k.
func (s *Store[K, V]) Get(k K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.records[k]

	return v, ok
}

// Put inserts or replaces the value under k.
func (s *Store[K, V]) Put(k K, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[k] = v
}

// Update applies fn to the value under k while holding the write lock and
// stores the result. fn receives ok=false when k is absent. If fn returns an
// error nothing is stored.
func (s *Store[K, V]) Update(k K, fn func(v V, ok bool) (V, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[k]

	next, err := fn(cur, ok)
	if err != nil {
		return err
	}

	s.records[k] = next

	return nil
}

// List returns a copy of all values in unspecified order.
func (s *Store[K, V]) List() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]V, 0, len(s.records))
	for _, v := range s.records {
		out = append(out, v)
	}

	return out
}

// Len returns the number of records.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}
