package library

import (
	"context"
	"fmt"

	"github.com/dmitriwamback/cs-dge-library-system/internal/rentlog"
)

// Op names a coordinator operation.
type Op string

const (
	OpRent   Op = "rent"
	OpReturn Op = "return"
)

// Outcome is the result of one rent or return.
type Outcome struct {
	Op       Op
	PatronID string
	ISBN     string
	Err      error
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// RentAsync queues a rental of isbn by patronID and returns immediately. The
// channel receives exactly one Outcome.
func (s *Service) RentAsync(patronID, isbn string) <-chan Outcome {
	return s.dispatch(OpRent, patronID, isbn, s.rent)
}

// ReturnAsync queues a return of isbn by patronID and returns immediately.
// The channel receives exactly one Outcome.
func (s *Service) ReturnAsync(patronID, isbn string) <-chan Outcome {
	return s.dispatch(OpReturn, patronID, isbn, s.giveBack)
}

// Rent runs a rental and waits for its outcome. Cancelling ctx stops the
// wait, not the rental.
func (s *Service) Rent(ctx context.Context, patronID, isbn string) error {
	return wait(ctx, s.RentAsync(patronID, isbn))
}

// Return runs a return and waits for its outcome. Cancelling ctx stops the
// wait, not the return.
func (s *Service) Return(ctx context.Context, patronID, isbn string) error {
	return wait(ctx, s.ReturnAsync(patronID, isbn))
}

func wait(ctx context.Context, ch <-chan Outcome) error {
	select {
	case out := <-ch:
		return out.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) dispatch(op Op, patronID, isbn string, fn func(patronID, isbn string) error) <-chan Outcome {
	ch := make(chan Outcome, 1)
	out := Outcome{Op: op, PatronID: patronID, ISBN: isbn}

	err := s.pool.submit(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("task panicked", "op", op, "student", patronID, "isbn", isbn, "panic", r)
				out.Err = fmt.Errorf("%w: %s panicked: %v", ErrInternal, op, r)
			}

			ch <- out
		}()

		out.Err = fn(patronID, isbn)
	})
	if err != nil {
		out.Err = err
		ch <- out
	}

	return ch
}

func (s *Service) rent(patronID, isbn string) error {
	if _, ok := s.students.Get(patronID); !ok {
		return s.reject(OpRent, patronID, isbn, fmt.Errorf("%w: %q", ErrStudentNotFound, patronID))
	}

	if _, ok := s.books.Get(isbn); !ok {
		return s.reject(OpRent, patronID, isbn, fmt.Errorf("%w: %q", ErrBookNotFound, isbn))
	}

	unlockPatron := s.patronLocks.lock(patronID)
	defer unlockPatron()

	held := s.index.of(patronID)
	if held.has(isbn) {
		return s.reject(OpRent, patronID, isbn, fmt.Errorf("%w: %s has %s", ErrAlreadyHeld, patronID, isbn))
	}

	checkout := func(item Rentable) error {
		if !item.IsAvailable() {
			return fmt.Errorf("%w: %s", ErrUnavailable, isbn)
		}

		return item.Checkout()
	}

	title, err := s.changeCopies(isbn, checkout, func() { held.add(isbn) })
	if err != nil {
		return s.reject(OpRent, patronID, isbn, err)
	}

	return s.appendEvent(OpRent, patronID, rentlog.Event{Kind: rentlog.Rent, ISBN: isbn, Title: title})
}

func (s *Service) giveBack(patronID, isbn string) error {
	if _, ok := s.students.Get(patronID); !ok {
		return s.reject(OpReturn, patronID, isbn, fmt.Errorf("%w: %q", ErrStudentNotFound, patronID))
	}

	if _, ok := s.books.Get(isbn); !ok {
		return s.reject(OpReturn, patronID, isbn, fmt.Errorf("%w: %q", ErrBookNotFound, isbn))
	}

	unlockPatron := s.patronLocks.lock(patronID)
	defer unlockPatron()

	held := s.index.of(patronID)
	if !held.has(isbn) {
		return s.reject(OpReturn, patronID, isbn, fmt.Errorf("%w: %s does not have %s", ErrNotHeld, patronID, isbn))
	}

	title, err := s.changeCopies(isbn, Rentable.Checkin, func() { held.remove(isbn) })
	if err != nil {
		return s.reject(OpReturn, patronID, isbn, err)
	}

	return s.appendEvent(OpReturn, patronID, rentlog.Event{Kind: rentlog.Return, ISBN: isbn, Title: title})
}

// changeCopies applies change to the catalog entry of isbn, saves the catalog
// and then runs saved, all under the book's lock. The in-memory change is
// kept when the save fails; saved does not run.
func (s *Service) changeCopies(isbn string, change func(Rentable) error, saved func()) (string, error) {
	unlock := s.bookLocks.lock(isbn)
	defer unlock()

	book, ok := s.books.Get(isbn)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrBookNotFound, isbn)
	}

	err := change(&book)
	if err != nil {
		return "", err
	}

	s.books.Put(isbn, book)

	err = s.books.Save()
	if err != nil {
		s.logger.Error("saving catalog failed", "isbn", isbn, "error", err)

		return "", storageErr(err)
	}

	saved()

	return book.Title, nil
}

func (s *Service) appendEvent(op Op, patronID string, e rentlog.Event) error {
	e.Time = s.now()

	l, err := s.openLog(patronID)
	if err == nil {
		err = l.Append(e)
	}

	if err != nil {
		s.logger.Error("appending rental log failed", "op", op, "student", patronID, "isbn", e.ISBN, "error", err)

		return storageErr(err)
	}

	s.logger.Info("rental log appended", "op", op, "student", patronID, "isbn", e.ISBN)

	return nil
}

func (s *Service) reject(op Op, patronID, isbn string, err error) error {
	s.logger.Debug("request rejected", "op", op, "student", patronID, "isbn", isbn, "reason", err)

	return err
}
