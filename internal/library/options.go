package library

import (
	"fmt"
	"time"

	"github.com/dmitriwamback/cs-dge-library-system/internal/fs"
)

// Logger receives operational messages. *slog.Logger satisfies it.
//
// Debug: rejected rentals and returns.
// Info: completed rentals, returns and reconciliation totals.
// Warn: log anomalies and discarded log tails.
// Error: persistence failures and recovered panics.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Option configures a [Service] in [Open].
type Option func(*Service) error

const (
	DefaultWorkers     = 8
	DefaultLockTimeout = 5 * time.Second
)

// WithLogger sets the logger. A nil logger discards everything.
func WithLogger(logger Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = nopLogger{}
		}

		s.logger = logger

		return nil
	}
}

// WithWorkers bounds how many rent/return tasks run at once.
func WithWorkers(n int) Option {
	return func(s *Service) error {
		if n < 1 {
			return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidArgument, n)
		}

		s.workers = n

		return nil
	}
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) error {
		if now == nil {
			return fmt.Errorf("%w: nil clock", ErrInvalidArgument)
		}

		s.now = now

		return nil
	}
}

// WithLocation sets the time zone used by [Service.ReadLog].
func WithLocation(loc *time.Location) Option {
	return func(s *Service) error {
		if loc == nil {
			return fmt.Errorf("%w: nil location", ErrInvalidArgument)
		}

		s.loc = loc

		return nil
	}
}

// WithLockTimeout sets how long Open waits for another process to release
// the data directory.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return fmt.Errorf("%w: lock timeout must be > 0, got %s", ErrInvalidArgument, d)
		}

		s.lockTimeout = d

		return nil
	}
}

// WithFS replaces the filesystem. Used by tests to inject failures.
func WithFS(fsys fs.FS) Option {
	return func(s *Service) error {
		if fsys == nil {
			return fmt.Errorf("%w: nil filesystem", ErrInvalidArgument)
		}

		s.fs = fsys

		return nil
	}
}
