package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/dmitriwamback/cs-dge-library-system/internal/library"
)

var errBookExists = errors.New("book already exists (use --replace to overwrite)")

// bookView is the JSON shape of a book.
type bookView struct {
	ISBN        string `json:"isbn"`
	Title       string `json:"title"`
	TotalCopies int    `json:"total_copies"`
	CheckedOut  int    `json:"checked_out"`
	Available   int    `json:"available"`
}

func viewBook(b library.Book) bookView {
	return bookView{
		ISBN:        b.ISBN,
		Title:       b.Title,
		TotalCopies: b.TotalCopies(),
		CheckedOut:  b.CheckedOut(),
		Available:   b.Available(),
	}
}

func formatBook(b library.Book) string {
	return fmt.Sprintf("%s - %s [%d/%d available]", b.ISBN, b.Title, b.Available(), b.TotalCopies())
}

// BookAddCmd returns the book add command.
func BookAddCmd(a *app) *Command {
	fs := flag.NewFlagSet("book add", flag.ContinueOnError)
	fs.StringP("title", "t", "", "Book title (required)")
	fs.Int("copies", 1, "Number of copies owned")
	fs.Bool("replace", false, "Overwrite the title and copies of an existing book")

	return &Command{
		Flags: fs,
		Usage: "book add <isbn> [flags]",
		Short: "Add a book to the catalog",
		Long: `Add a book to the catalog. An existing ISBN is refused unless --replace is given.

Replacing keeps the copies currently rented out, so --copies cannot go below them.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			err := exactArgs(args, 1, "book add <isbn> [flags]")
			if err != nil {
				return err
			}

			title, _ := fs.GetString("title")
			copies, _ := fs.GetInt("copies")
			replace, _ := fs.GetBool("replace")

			book, err := library.NewBook(args[0], title, copies)
			if err != nil {
				return err
			}

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			if _, exists := svc.FindBook(book.ISBN); exists && !replace {
				return fmt.Errorf("%w: %s", errBookExists, book.ISBN)
			}

			err = svc.AddBook(book)
			if err != nil {
				return err
			}

			io.Println("saved book", formatBook(book))

			return nil
		},
	}
}

// BookLsCmd returns the book ls command.
func BookLsCmd(a *app) *Command {
	fs := flag.NewFlagSet("book ls", flag.ContinueOnError)
	fs.Bool("json", false, "Output as JSON")

	return &Command{
		Flags: fs,
		Usage: "book ls [--json]",
		Short: "List the catalog",
		Long:  "List all books ordered by ISBN with their available copies.",
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			books := svc.ListBooks()

			if asJSON, _ := fs.GetBool("json"); asJSON {
				views := make([]bookView, len(books))
				for i, b := range books {
					views[i] = viewBook(b)
				}

				return io.JSON(views)
			}

			for _, b := range books {
				io.Println(formatBook(b))
			}

			return nil
		},
	}
}

// BookCopiesCmd returns the book copies command.
func BookCopiesCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("book copies", flag.ContinueOnError),
		Usage: "book copies <isbn> <n>",
		Short: "Set how many copies are owned",
		Long:  "Set the total number of copies of a book. Cannot drop below the copies currently rented out.",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			err := exactArgs(args, 2, "book copies <isbn> <n>")
			if err != nil {
				return err
			}

			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("%w: copies %q is not a number", library.ErrInvalidArgument, args[1])
			}

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			err = svc.SetTotalCopies(args[0], n)
			if err != nil {
				return err
			}

			b, _ := svc.FindBook(args[0])
			io.Println("saved book", formatBook(b))

			return nil
		},
	}
}
