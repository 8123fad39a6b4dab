package record

import "errors"

// Snapshot errors. Callers should use errors.Is.
var (
	// ErrDecode reports a snapshot file that exists but cannot be decoded.
	// The store is left empty when Load returns it.
	ErrDecode = errors.New("snapshot decode failed")

	// ErrIO reports a snapshot read or write failure.
	ErrIO = errors.New("snapshot io failed")

	// ErrEncode reports a value the codec cannot represent (for example a
	// string longer than the length prefix allows).
	ErrEncode = errors.New("snapshot encode failed")
)

var (
	errBadVersion     = errors.New("unsupported snapshot version")
	errKindMismatch   = errors.New("record kind mismatch")
	errChecksum       = errors.New("checksum mismatch")
	errShortHeader    = errors.New("truncated header")
	errShortRecord    = errors.New("truncated record")
	errTrailingBytes  = errors.New("trailing bytes")
	errStringTooLong  = errors.New("string too long (max 65535 bytes)")
	errRecordTooLarge = errors.New("record too large")
)
