package rentlog

import "errors"

var (
	// ErrInvalidArgument reports a patron id that cannot name a log file or an
	// event field that does not fit the record layout.
	ErrInvalidArgument = errors.New("invalid argument")

	errTooLong     = errors.New("string too long (max 65535 bytes)")
	errUnknownKind = errors.New("unknown event kind")
	errBadUTF8     = errors.New("invalid utf-8")
	errShortRecord = errors.New("truncated record")
)
