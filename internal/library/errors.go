package library

import (
	"errors"
	"fmt"

	"github.com/dmitriwamback/cs-dge-library-system/internal/record"
	"github.com/dmitriwamback/cs-dge-library-system/internal/rentlog"
)

// Rental outcomes. Callers should use errors.Is.
var (
	// ErrNotFound is wrapped by both [ErrStudentNotFound] and [ErrBookNotFound].
	ErrNotFound        = errors.New("not found")
	ErrStudentNotFound = fmt.Errorf("student %w", ErrNotFound)
	ErrBookNotFound    = fmt.Errorf("book %w", ErrNotFound)

	ErrAlreadyHeld   = errors.New("book already held by student")
	ErrNotHeld       = errors.New("book not held by student")
	ErrUnavailable   = errors.New("no copies available")
	ErrNotCheckedOut = errors.New("no copies checked out")
)

// Operational failures.
var (
	// ErrInvalidArgument reports blank identifiers, negative or inconsistent
	// copy counts, and values that do not fit the on-disk formats.
	ErrInvalidArgument = rentlog.ErrInvalidArgument

	// ErrIO wraps any snapshot or log read/write failure.
	ErrIO = errors.New("io failure")

	// ErrDecode reports a snapshot that exists but cannot be decoded.
	ErrDecode = record.ErrDecode

	ErrClosed   = errors.New("library service closed")
	ErrInternal = errors.New("internal error")
)

// storageErr classifies an error returned by a store or a log.
func storageErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDecode), errors.Is(err, ErrInvalidArgument):
		return err
	case errors.Is(err, record.ErrEncode):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	default:
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
}
