// Package library coordinates the student registry, the book catalog and the
// per-student rental logs.
//
// A [Service] owns both record stores and the active-rental index. Rentals
// and returns run on a bounded worker pool; every other method runs on the
// caller's goroutine.
//
// On-disk layout of a data directory:
//
//	<data>/.lock          flock held while a Service is open
//	<data>/students.dat   student registry snapshot
//	<data>/catalog.dat    book catalog snapshot
//	<data>/logs/<id>.bin  rental log of student <id>
package library

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dmitriwamback/cs-dge-library-system/internal/fs"
	"github.com/dmitriwamback/cs-dge-library-system/internal/record"
	"github.com/dmitriwamback/cs-dge-library-system/internal/rentlog"
)

const (
	StudentsFile = "students.dat"
	CatalogFile  = "catalog.dat"
	LogsDir      = "logs"
	LockFile     = ".lock"

	dataDirPerm = 0o755
)

// Service is the rental coordinator. Create it with [Open] and release it
// with [Service.Close].
type Service struct {
	dataDir     string
	fs          fs.FS
	logger      Logger
	now         func() time.Time
	loc         *time.Location
	workers     int
	lockTimeout time.Duration

	students *record.Store[string, Student]
	books    *record.Store[string, Book]
	index    *activeIndex

	patronLocks keyedMutex
	bookLocks   keyedMutex

	pool    *pool
	dirLock fs.Locker

	closeOnce sync.Once
	closeErr  error
}

// Open locks dataDir, loads both snapshots, rebuilds the active-rental index
// from the logs and starts the worker pool.
//
// A snapshot that cannot be decoded fails Open with [ErrDecode]; the file is
// left untouched.
func Open(ctx context.Context, dataDir string, opts ...Option) (*Service, error) {
	s := &Service{
		dataDir:     dataDir,
		fs:          fs.NewReal(),
		logger:      nopLogger{},
		now:         time.Now,
		loc:         time.Local,
		workers:     DefaultWorkers,
		lockTimeout: DefaultLockTimeout,
		index:       newActiveIndex(),
	}

	for _, opt := range opts {
		err := opt(s)
		if err != nil {
			return nil, err
		}
	}

	err := s.fs.MkdirAll(dataDir, dataDirPerm)
	if err != nil {
		return nil, fmt.Errorf("%w: creating data dir: %w", ErrIO, err)
	}

	lock, err := s.fs.Lock(filepath.Join(dataDir, LockFile), s.lockTimeout)
	if err != nil {
		return nil, fmt.Errorf("locking data dir: %w", err)
	}

	s.dirLock = lock

	s.students = record.New[string, Student](filepath.Join(dataDir, StudentsFile), studentCodec{}, studentKey, s.fs)
	s.books = record.New[string, Book](filepath.Join(dataDir, CatalogFile), bookCodec{}, bookKey, s.fs)

	err = s.load(ctx)
	if err != nil {
		_ = lock.Close()

		return nil, err
	}

	s.pool = newPool(s.workers)

	return s, nil
}

func (s *Service) load(ctx context.Context) error {
	err := s.students.Load()
	if err != nil {
		return fmt.Errorf("loading students: %w", storageErr(err))
	}

	err = s.books.Load()
	if err != nil {
		return fmt.Errorf("loading catalog: %w", storageErr(err))
	}

	_, err = s.Reconcile(ctx)

	return err
}

// Close stops accepting rentals, waits for in-flight ones and releases the
// data directory. Close is idempotent.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.pool.close()
		s.closeErr = s.dirLock.Close()
	})

	return s.closeErr
}

// DataDir returns the directory the service was opened on.
func (s *Service) DataDir() string {
	return s.dataDir
}

// ListStudents returns all students ordered by id.
func (s *Service) ListStudents() []Student {
	out := s.students.List()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// ListBooks returns all books ordered by ISBN.
func (s *Service) ListBooks() []Book {
	out := s.books.List()
	sort.Slice(out, func(i, j int) bool { return out[i].ISBN < out[j].ISBN })

	return out
}

// FindStudent looks up a student by id.
func (s *Service) FindStudent(id string) (Student, bool) {
	return s.students.Get(id)
}

// FindBook looks up a book by ISBN.
func (s *Service) FindBook(isbn string) (Book, bool) {
	return s.books.Get(isbn)
}

// AddOrUpdateStudent upserts st and saves the registry. No uniqueness or
// rental checks are made.
func (s *Service) AddOrUpdateStudent(st Student) error {
	err := st.Validate()
	if err != nil {
		return err
	}

	s.students.Put(st.ID, st)

	err = s.students.Save()
	if err != nil {
		s.logger.Error("saving students failed", "student", st.ID, "error", err)

		return storageErr(err)
	}

	return nil
}

// AddBook upserts b and saves the catalog. Replacing an existing ISBN keeps
// its checked-out count, and fails if b owns fewer copies than are out.
func (s *Service) AddBook(b Book) error {
	err := b.Validate()
	if err != nil {
		return err
	}

	unlock := s.bookLocks.lock(b.ISBN)
	defer unlock()

	err = s.books.Update(b.ISBN, func(old Book, ok bool) (Book, error) {
		if !ok {
			return b, nil
		}

		return restoreBook(b.ISBN, b.Title, b.totalCopies, old.checkedOut)
	})
	if err != nil {
		return err
	}

	err = s.books.Save()
	if err != nil {
		s.logger.Error("saving catalog failed", "isbn", b.ISBN, "error", err)

		return storageErr(err)
	}

	return nil
}

// SetTotalCopies changes how many copies of isbn the library owns.
func (s *Service) SetTotalCopies(isbn string, n int) error {
	unlock := s.bookLocks.lock(isbn)
	defer unlock()

	err := s.books.Update(isbn, func(b Book, ok bool) (Book, error) {
		if !ok {
			return b, fmt.Errorf("%w: %q", ErrBookNotFound, isbn)
		}

		return b, b.SetTotalCopies(n)
	})
	if err != nil {
		return err
	}

	err = s.books.Save()
	if err != nil {
		s.logger.Error("saving catalog failed", "isbn", isbn, "error", err)

		return storageErr(err)
	}

	return nil
}

// Holdings returns the ISBNs patronID currently holds, sorted.
func (s *Service) Holdings(patronID string) []string {
	return s.index.list(patronID)
}

// Events returns the full rental log of patronID.
func (s *Service) Events(patronID string) ([]rentlog.Event, error) {
	l, err := s.openLog(patronID)
	if err != nil {
		return nil, err
	}

	events, err := l.ReadAll()
	if err != nil {
		return nil, storageErr(err)
	}

	return events, nil
}

// ReadLog returns the rental log of patronID as human-readable lines.
func (s *Service) ReadLog(patronID string) ([]string, error) {
	events, err := s.Events(patronID)
	if err != nil {
		return nil, err
	}

	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = e.Pretty(s.loc)
	}

	return lines, nil
}

func (s *Service) openLog(patronID string) (*rentlog.Log, error) {
	return rentlog.Open(s.fs, filepath.Join(s.dataDir, LogsDir), patronID)
}
