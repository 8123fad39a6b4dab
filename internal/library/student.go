package library

import (
	"fmt"
	"math"

	"github.com/dmitriwamback/cs-dge-library-system/internal/rentlog"
)

// Student is a registered patron.
type Student struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Program string `json:"program"`
	Year    int    `json:"year"`
}

// Validate checks that s can be stored. The id also names the student's log
// file, so it must not contain path separators.
func (s Student) Validate() error {
	err := rentlog.ValidatePatronID(s.ID)
	if err != nil {
		return err
	}

	for _, field := range []struct{ name, value string }{{"name", s.Name}, {"program", s.Program}} {
		if err := rentlog.ValidateText(field.value); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}

	if s.Year < 0 || s.Year > math.MaxInt32 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidArgument, s.Year)
	}

	return nil
}
