package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
)

// Snapshot format constants.
//
// Layout (little endian):
//
//	header (16 bytes):
//	  magic   [4]  "LSN1"
//	  version u16
//	  kind    u8   codec kind
//	  _       u8   reserved
//	  count   u32  number of records
//	  crc     u32  CRC-32C of everything after the header
//	records: count × { length u32, payload [length] }
//
// A file that does not start with the magic is the legacy headerless shape:
// records back to back until end of file.
const (
	snapshotMagic      = "LSN1"
	snapshotVersion    = 1
	snapshotHeaderSize = 16
	recordHeaderSize   = 4
	maxRecordSize      = 1 << 20
)

var snapshotCRC32C = crc32.MakeTable(crc32.Castagnoli)

// encodeSnapshot renders values as a versioned snapshot.
func encodeSnapshot[V any](codec Codec[V], values []V) ([]byte, error) {
	if len(values) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: too many records (%d)", ErrEncode, len(values))
	}

	body, err := encodeRecords(codec, values)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, snapshotHeaderSize, snapshotHeaderSize+len(body))

	copy(buf[0:4], snapshotMagic)
	binary.LittleEndian.PutUint16(buf[4:6], snapshotVersion)
	buf[6] = codec.Kind()
	// byte 7 reserved (zero)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(values)))
	binary.LittleEndian.PutUint32(buf[12:16], crc32.Checksum(body, snapshotCRC32C))

	return append(buf, body...), nil
}

func encodeRecords[V any](codec Codec[V], values []V) ([]byte, error) {
	var body bytes.Buffer

	for i := range values {
		var w Writer

		err := codec.Encode(&w, values[i])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		payload := w.Bytes()
		if len(payload) > maxRecordSize {
			return nil, fmt.Errorf("%w: record %d: %w (%d bytes)", ErrEncode, i, errRecordTooLarge, len(payload))
		}

		var lenBytes [recordHeaderSize]byte

		binary.LittleEndian.PutUint32(lenBytes[:], uint32(len(payload)))
		body.Write(lenBytes[:])
		body.Write(payload)
	}

	return body.Bytes(), nil
}

// decodeSnapshot parses either the versioned or the legacy shape.
// Every failure wraps [ErrDecode].
func decodeSnapshot[V any](codec Codec[V], data []byte) ([]V, error) {
	if !bytes.HasPrefix(data, []byte(snapshotMagic)) {
		values, _, err := decodeRecords(codec, data, -1)
		if err != nil {
			return nil, fmt.Errorf("%w: legacy snapshot: %w", ErrDecode, err)
		}

		return values, nil
	}

	if len(data) < snapshotHeaderSize {
		return nil, fmt.Errorf("%w: %w (%d bytes)", ErrDecode, errShortHeader, len(data))
	}

	version := binary.LittleEndian.Uint16(data[4:6])
	if version != snapshotVersion {
		return nil, fmt.Errorf("%w: %w %d", ErrDecode, errBadVersion, version)
	}

	if kind := data[6]; kind != codec.Kind() {
		return nil, fmt.Errorf("%w: %w (file has %d, want %d)", ErrDecode, errKindMismatch, kind, codec.Kind())
	}

	count := int64(binary.LittleEndian.Uint32(data[8:12]))
	crc := binary.LittleEndian.Uint32(data[12:16])
	body := data[snapshotHeaderSize:]

	if sum := crc32.Checksum(body, snapshotCRC32C); sum != crc {
		return nil, fmt.Errorf("%w: %w (expected %08x got %08x)", ErrDecode, errChecksum, crc, sum)
	}

	values, consumed, err := decodeRecords(codec, body, count)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if consumed != len(body) {
		return nil, fmt.Errorf("%w: %w after %d records", ErrDecode, errTrailingBytes, count)
	}

	return values, nil
}

// decodeRecords reads records from body. With count < 0 it reads until the
// end of body; otherwise exactly count records. Returns the bytes consumed.
func decodeRecords[V any](codec Codec[V], body []byte, count int64) ([]V, int, error) {
	var values []V

	off := 0

	for i := int64(0); count < 0 || i < count; i++ {
		if count < 0 && off == len(body) {
			break
		}

		if len(body)-off < recordHeaderSize {
			return nil, off, fmt.Errorf("record %d: %w", i, errShortRecord)
		}

		size := int(binary.LittleEndian.Uint32(body[off : off+recordHeaderSize]))
		off += recordHeaderSize

		if size > maxRecordSize || size > len(body)-off {
			return nil, off, fmt.Errorf("record %d: %w (length %d)", i, errShortRecord, size)
		}

		r := NewReader(body[off : off+size])

		v, err := codec.Decode(r)
		if err == nil {
			err = r.Err()
		}

		if err != nil {
			return nil, off, fmt.Errorf("record %d: %w", i, err)
		}

		values = append(values, v)
		off += size
	}

	return values, off, nil
}
