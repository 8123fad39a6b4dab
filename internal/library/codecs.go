package library

import (
	"fmt"

	"github.com/dmitriwamback/cs-dge-library-system/internal/record"
)

const (
	kindStudent byte = 1
	kindBook    byte = 2
)

type studentCodec struct{}

func (studentCodec) Kind() byte { return kindStudent }

func (studentCodec) Encode(w *record.Writer, s Student) error {
	for _, str := range []string{s.ID, s.Name, s.Program} {
		err := w.String(str)
		if err != nil {
			return err
		}
	}

	w.Int32(int32(s.Year))

	return nil
}

func (studentCodec) Decode(r *record.Reader) (Student, error) {
	s := Student{ID: r.String(), Name: r.String(), Program: r.String(), Year: int(r.Int32())}
	if r.Err() != nil {
		return Student{}, r.Err()
	}

	err := s.Validate()
	if err != nil {
		return Student{}, fmt.Errorf("student %q: %w", s.ID, err)
	}

	return s, nil
}

type bookCodec struct{}

func (bookCodec) Kind() byte { return kindBook }

func (bookCodec) Encode(w *record.Writer, b Book) error {
	err := w.String(b.ISBN)
	if err != nil {
		return err
	}

	err = w.String(b.Title)
	if err != nil {
		return err
	}

	w.Uint32(uint32(b.totalCopies))
	w.Uint32(uint32(b.checkedOut))

	return nil
}

func (bookCodec) Decode(r *record.Reader) (Book, error) {
	isbn, title := r.String(), r.String()
	total, out := r.Uint32(), r.Uint32()

	if r.Err() != nil {
		return Book{}, r.Err()
	}

	b, err := restoreBook(isbn, title, int(total), int(out))
	if err != nil {
		return Book{}, fmt.Errorf("book %q: %w", isbn, err)
	}

	return b, nil
}

func studentKey(s Student) string { return s.ID }
func bookKey(b Book) string       { return b.ISBN }
