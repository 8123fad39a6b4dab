package library

import (
	"fmt"
	"math"
	"strings"

	"github.com/dmitriwamback/cs-dge-library-system/internal/rentlog"
)

// Rentable is the capability set of a catalog item that can be lent out.
type Rentable interface {
	Checkout() error
	Checkin() error
	IsAvailable() bool
}

// Book is a catalog entry. Copy counts are only changed through its methods,
// which keep 0 <= CheckedOut <= TotalCopies.
type Book struct {
	ISBN  string
	Title string

	totalCopies int
	checkedOut  int
}

var _ Rentable = (*Book)(nil)

// NewBook returns a book with no copies checked out.
func NewBook(isbn, title string, totalCopies int) (Book, error) {
	return restoreBook(isbn, title, totalCopies, 0)
}

func restoreBook(isbn, title string, totalCopies, checkedOut int) (Book, error) {
	b := Book{ISBN: isbn, Title: title, totalCopies: totalCopies, checkedOut: checkedOut}

	err := b.Validate()
	if err != nil {
		return Book{}, err
	}

	return b, nil
}

// Validate checks identity fields and copy counts. ISBN and title must also
// fit a rental log record, so every stored book can be rented.
func (b Book) Validate() error {
	for _, field := range []struct{ name, value string }{{"isbn", b.ISBN}, {"title", b.Title}} {
		if err := rentlog.ValidateText(field.value); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}

	switch {
	case strings.TrimSpace(b.ISBN) == "":
		return fmt.Errorf("%w: isbn is blank", ErrInvalidArgument)
	case strings.TrimSpace(b.Title) == "":
		return fmt.Errorf("%w: title is blank", ErrInvalidArgument)
	case b.totalCopies < 0 || int64(b.totalCopies) > math.MaxUint32:
		return fmt.Errorf("%w: total copies %d out of range", ErrInvalidArgument, b.totalCopies)
	case b.checkedOut < 0 || b.checkedOut > b.totalCopies:
		return fmt.Errorf("%w: checked out %d not within [0, %d]", ErrInvalidArgument, b.checkedOut, b.totalCopies)
	}

	return nil
}

func (b Book) TotalCopies() int { return b.totalCopies }
func (b Book) CheckedOut() int  { return b.checkedOut }
func (b Book) Available() int   { return b.totalCopies - b.checkedOut }

// IsAvailable reports whether at least one copy is on the shelf.
func (b *Book) IsAvailable() bool {
	return b.checkedOut < b.totalCopies
}

// Checkout takes one copy off the shelf.
func (b *Book) Checkout() error {
	if !b.IsAvailable() {
		return fmt.Errorf("%w: %s (%d of %d out)", ErrUnavailable, b.ISBN, b.checkedOut, b.totalCopies)
	}

	b.checkedOut++

	return nil
}

// Checkin puts one copy back.
func (b *Book) Checkin() error {
	if b.checkedOut == 0 {
		return fmt.Errorf("%w: %s", ErrNotCheckedOut, b.ISBN)
	}

	b.checkedOut--

	return nil
}

// SetTotalCopies changes the number of owned copies. It refuses to drop
// below the number currently checked out.
func (b *Book) SetTotalCopies(n int) error {
	if n < b.checkedOut || n < 0 || int64(n) > math.MaxUint32 {
		return fmt.Errorf("%w: total copies %d with %d checked out", ErrInvalidArgument, n, b.checkedOut)
	}

	b.totalCopies = n

	return nil
}
