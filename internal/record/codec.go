package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Codec converts one value type to and from the payload of a snapshot record.
//
// Kind is written into the snapshot header so a catalog file can never be
// loaded as a student registry (or vice versa).
type Codec[V any] interface {
	Kind() byte
	Encode(w *Writer, v V) error
	Decode(r *Reader) (V, error)
}

const uint16Max = math.MaxUint16

// Writer builds a record payload. All integers are little endian; strings
// carry a u16 length prefix.
type Writer struct {
	buf bytes.Buffer
}

// String writes a length-prefixed string.
func (w *Writer) String(s string) error {
	if len(s) > uint16Max {
		return fmt.Errorf("%w: %w (%d bytes)", ErrEncode, errStringTooLong, len(s))
	}

	var lenBytes [2]byte

	binary.LittleEndian.PutUint16(lenBytes[:], uint16(len(s)))
	w.buf.Write(lenBytes[:])
	w.buf.WriteString(s)

	return nil
}

// Uint32 writes a 4-byte unsigned integer.
func (w *Writer) Uint32(v uint32) {
	var b [4]byte

	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// Int32 writes a 4-byte signed integer.
func (w *Writer) Int32(v int32) {
	w.Uint32(uint32(v))
}

// Bytes returns the payload written so far.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Reader consumes a record payload written by [Writer].
//
// The first failure sticks: later reads return zero values and [Reader.Err]
// reports the original problem, so codecs can read all fields and check once.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader returns a Reader over payload.
func NewReader(payload []byte) *Reader {
	return &Reader{data: payload}
}

// String reads a length-prefixed string.
func (r *Reader) String() string {
	n := int(r.Uint16())

	b := r.take(n)
	if b == nil {
		return ""
	}

	return string(b)
}

// Uint16 reads a 2-byte unsigned integer.
func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint16(b)
}

// Uint32 reads a 4-byte unsigned integer.
func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint32(b)
}

// Int32 reads a 4-byte signed integer.
func (r *Reader) Int32() int32 {
	return int32(r.Uint32())
}

// Err returns the first read failure, or an error if unread bytes remain.
func (r *Reader) Err() error {
	if r.err != nil {
		return r.err
	}

	if r.off != len(r.data) {
		return fmt.Errorf("%w: %d unread bytes in record", errTrailingBytes, len(r.data)-r.off)
	}

	return nil
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}

	if n > len(r.data)-r.off {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", errShortRecord, n, r.off, len(r.data)-r.off)

		return nil
	}

	b := r.data[r.off : r.off+n]
	r.off += n

	return b
}
