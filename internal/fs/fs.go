// Package fs provides the filesystem seam used by the snapshot stores and the
// rental logs.
//
// The main types are:
//   - [FS]: interface for the filesystem operations the library needs
//   - [File]: interface for open files (satisfied by [os.File])
//   - [Real]: production implementation using [os] package
//
// Tests wrap [Real] to inject write or sync failures at a precise step.
//
// Example usage:
//
//	fsys := fs.NewReal()
//	data, err := fsys.ReadFile("catalog.dat")
//	if err != nil {
//	    return err
//	}
package fs

import (
	"io"
	"os"
	"time"
)

// File represents an open file descriptor.
//
// This interface is satisfied by [os.File] and can be used with all
// standard library functions that accept [io.Reader], [io.Writer]
// or [io.Closer].
type File interface {
	io.ReadWriteCloser

	// Stat returns the [os.FileInfo] for this file. See [os.File.Stat].
	Stat() (os.FileInfo, error)

	// Sync commits the file's contents to disk. See [os.File.Sync].
	Sync() error
}

// Locker represents a held file lock.
// Call [Locker.Close] to release the lock.
//
// Example:
//
//	lock, err := fsys.Lock(filepath.Join(dataDir, ".lock"), 5*time.Second)
//	if err != nil {
//	    return err // another process owns the data directory
//	}
//	defer lock.Close()
type Locker interface {
	io.Closer
}

// FS defines filesystem operations for reading, writing, and managing files.
//
// All methods mirror their [os] package equivalents but can be intercepted
// for testing with fault injection.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type FS interface {
	// OpenFile opens a file with specified flags and permissions. See [os.OpenFile].
	// The rental logs use it with [os.O_APPEND]|[os.O_CREATE]|[os.O_WRONLY].
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	// ReadFile reads an entire file into memory. See [os.ReadFile].
	ReadFile(path string) ([]byte, error)

	// WriteFileAtomic replaces path with data using a temp file + rename,
	// so a crash never leaves a torn file behind.
	WriteFileAtomic(path string, data []byte, perm os.FileMode) error

	// MkdirAll creates a directory and all parents. See [os.MkdirAll].
	MkdirAll(path string, perm os.FileMode) error

	// Lock acquires an exclusive advisory lock on path, waiting at most
	// timeout. Returns an error wrapping [ErrLockTimeout] when the lock is
	// still held by someone else after timeout.
	Lock(path string, timeout time.Duration) (Locker, error)
}

// Compile-time interface checks.
var _ File = (*os.File)(nil)
