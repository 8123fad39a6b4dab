package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// ErrLockTimeout is returned when a lock is still held by another process
// after the acquisition timeout.
var ErrLockTimeout = errors.New("lock timeout")

// errInodeMismatch signals that the lock file was replaced between open and
// flock. Callers retry.
var errInodeMismatch = errors.New("inode mismatch")

const (
	lockFilePerm = 0o600
	lockDirPerm  = 0o755

	maxLockBackoff = 25 * time.Millisecond
)

// realLock holds an exclusive flock on an open lock file.
type realLock struct {
	mu   sync.Mutex
	file *os.File
}

// Close releases the lock and closes the underlying file descriptor.
// Close is idempotent.
//
// The lock file itself is left in place: unlinking it while another process
// waits on the old inode would let two processes "hold" the same path.
func (l *realLock) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	unlockErr := flockRetryEINTR(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if unlockErr != nil {
		unlockErr = fmt.Errorf("unlocking lock: %w", unlockErr)
	}

	if closeErr != nil {
		closeErr = fmt.Errorf("closing lock fd: %w", closeErr)
	}

	return errors.Join(unlockErr, closeErr)
}

// Lock acquires an exclusive lock on path, polling with a non-blocking flock
// and exponential backoff (1ms to 25ms) until timeout expires.
//
// The lock file and its parent directories are created lazily. The timeout
// is best-effort and may overshoot slightly under scheduler delay.
func (r *Real) Lock(path string, timeout time.Duration) (Locker, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("lock %s: timeout must be > 0", path)
	}

	deadline := time.Now().Add(timeout)
	backoff := time.Millisecond

	for {
		file, err := openLockFile(path)
		if err != nil {
			return nil, fmt.Errorf("opening lockfile: %w", err)
		}

		err = acquire(file, path)
		if err == nil {
			return &realLock{file: file}, nil
		}

		_ = file.Close()

		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, errInodeMismatch) {
			return nil, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: %s held after %s", ErrLockTimeout, path, timeout)
		}

		time.Sleep(min(backoff, remaining))

		backoff = min(backoff*2, maxLockBackoff)
	}
}

// acquire flocks file without blocking and verifies the inode still matches
// path. On failure the file is unlocked but not closed.
func acquire(file *os.File, path string) error {
	fd := int(file.Fd())

	err := flockRetryEINTR(fd, unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return unix.EWOULDBLOCK
		}

		return fmt.Errorf("flock: %w", err)
	}

	var openStat, pathStat unix.Stat_t

	err = unix.Fstat(fd, &openStat)
	if err != nil {
		_ = flockRetryEINTR(fd, unix.LOCK_UN)

		return fmt.Errorf("fstat lock file: %w", err)
	}

	err = unix.Stat(path, &pathStat)
	if err != nil || pathStat.Ino != openStat.Ino || pathStat.Dev != openStat.Dev {
		_ = flockRetryEINTR(fd, unix.LOCK_UN)

		return errInodeMismatch
	}

	return nil
}

func openLockFile(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFilePerm)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return file, err
	}

	err = os.MkdirAll(filepath.Dir(path), lockDirPerm)
	if err != nil {
		return nil, err
	}

	return os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFilePerm)
}

func flockRetryEINTR(fd int, how int) error {
	for {
		err := unix.Flock(fd, how)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}
