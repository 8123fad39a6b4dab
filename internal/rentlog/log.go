// Package rentlog stores the rental history of one patron as an append-only
// binary file.
//
// Each record is big endian:
//
//	timestamp i64   epoch milliseconds
//	kind      u8    0 = RENT, 1 = RETURN
//	isbn      u16 length + UTF-8 bytes
//	title     u16 length + UTF-8 bytes
//
// Readers are lenient about the tail: a record that is cut short or does not
// decode ends the stream instead of failing the read. Callers that need to
// know about the dropped bytes use [Log.Scan].
//
// A Log does not serialize its own appends. Callers writing to the same
// patron from several goroutines must hold a lock keyed by patron id.
package rentlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitriwamback/cs-dge-library-system/internal/fs"
)

const (
	fileExt  = ".bin"
	filePerm = 0o644
	dirPerm  = 0o755

	// timestamp + kind + two string length prefixes.
	fixedRecordSize = 8 + 1 + 2 + 2
)

// Log is a handle on one patron's log file. It holds no open descriptor.
type Log struct {
	fs   fs.FS
	dir  string
	path string
}

// Open returns the log of patronID inside dir. The file is not touched until
// the first Append or read.
func Open(fsys fs.FS, dir, patronID string) (*Log, error) {
	err := ValidatePatronID(patronID)
	if err != nil {
		return nil, err
	}

	return &Log{fs: fsys, dir: dir, path: filepath.Join(dir, patronID+fileExt)}, nil
}

// ValidatePatronID rejects ids that cannot be used as a log file name.
func ValidatePatronID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: patron id is blank", ErrInvalidArgument)
	case id == "." || id == "..":
		return fmt.Errorf("%w: patron id %q is reserved", ErrInvalidArgument, id)
	case strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0):
		return fmt.Errorf("%w: patron id %q contains a path separator", ErrInvalidArgument, id)
	}

	return ValidateText(id)
}

// ValidateText rejects strings a log record cannot hold: longer than 65535
// bytes or not valid UTF-8.
func ValidateText(s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("%w: %w (%d bytes)", ErrInvalidArgument, errTooLong, len(s))
	}

	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, errBadUTF8)
	}

	return nil
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Append writes e as one record and syncs the file.
func (l *Log) Append(e Event) error {
	rec, err := encodeEvent(e)
	if err != nil {
		return err
	}

	err = l.fs.MkdirAll(l.dir, dirPerm)
	if err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}

	f, err := l.fs.OpenFile(l.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, filePerm)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}

	_, err = f.Write(rec)
	if err == nil {
		err = f.Sync()
	}

	closeErr := f.Close()

	if err != nil {
		return fmt.Errorf("appending to %s: %w", l.path, err)
	}

	if closeErr != nil {
		return fmt.Errorf("closing %s: %w", l.path, closeErr)
	}

	return nil
}

// ReadAll returns every complete event in append order. A missing file
// yields no events.
func (l *Log) ReadAll() ([]Event, error) {
	res, err := l.Scan()
	if err != nil {
		return nil, err
	}

	return res.Events, nil
}

// ScanResult is the outcome of [Log.Scan].
type ScanResult struct {
	Events []Event
	// Discarded is the number of bytes after the last good record.
	Discarded int
	// Reason describes why decoding stopped early. Nil when Discarded is 0.
	Reason error
}

// Scan decodes the whole file like [Log.ReadAll] and also reports the
// trailing bytes it had to ignore.
func (l *Log) Scan() (ScanResult, error) {
	data, err := l.fs.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ScanResult{}, nil
		}

		return ScanResult{}, fmt.Errorf("reading %s: %w", l.path, err)
	}

	return decodeEvents(data), nil
}

func encodeEvent(e Event) ([]byte, error) {
	if !e.Kind.valid() {
		return nil, fmt.Errorf("%w: %w %d", ErrInvalidArgument, errUnknownKind, uint8(e.Kind))
	}

	for _, s := range []string{e.ISBN, e.Title} {
		if err := ValidateText(s); err != nil {
			return nil, err
		}
	}

	buf := make([]byte, 0, fixedRecordSize+len(e.ISBN)+len(e.Title))
	buf = binary.BigEndian.AppendUint64(buf, uint64(e.Time.UnixMilli()))
	buf = append(buf, byte(e.Kind))
	buf = appendString(buf, e.ISBN)
	buf = appendString(buf, e.Title)

	return buf, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))

	return append(buf, s...)
}

func decodeEvents(data []byte) ScanResult {
	var res ScanResult

	off := 0

	for off < len(data) {
		e, n, err := decodeEvent(data[off:])
		if err != nil {
			res.Discarded = len(data) - off
			res.Reason = err

			break
		}

		res.Events = append(res.Events, e)
		off += n
	}

	return res
}

func decodeEvent(b []byte) (Event, int, error) {
	if len(b) < 9 {
		return Event{}, 0, errShortRecord
	}

	ms := int64(binary.BigEndian.Uint64(b[0:8]))

	kind := Kind(b[8])
	if !kind.valid() {
		return Event{}, 0, fmt.Errorf("%w %d", errUnknownKind, b[8])
	}

	off := 9

	isbn, n, err := readString(b[off:])
	if err != nil {
		return Event{}, 0, err
	}

	off += n

	title, n, err := readString(b[off:])
	if err != nil {
		return Event{}, 0, err
	}

	off += n

	return Event{Time: time.UnixMilli(ms), Kind: kind, ISBN: isbn, Title: title}, off, nil
}

func readString(b []byte) (string, int, error) {
	if len(b) < 2 {
		return "", 0, errShortRecord
	}

	size := int(binary.BigEndian.Uint16(b))
	if len(b)-2 < size {
		return "", 0, errShortRecord
	}

	s := b[2 : 2+size]
	if !utf8.Valid(s) {
		return "", 0, errBadUTF8
	}

	return string(s), 2 + size, nil
}
