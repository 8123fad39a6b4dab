package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// RentCmd returns the rent command.
func RentCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("rent", flag.ContinueOnError),
		Usage: "rent <student> <isbn>",
		Short: "Rent a copy of a book to a student",
		Long: `Rent a copy of a book to a student.

Fails if the student already holds the book or no copy is available.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			err := exactArgs(args, 2, "rent <student> <isbn>")
			if err != nil {
				return err
			}

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			err = svc.Rent(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			title := args[1]
			if b, ok := svc.FindBook(args[1]); ok {
				title = b.Title
			}

			io.Printf("%s rented %s (%s)\n", args[0], args[1], title)

			return nil
		},
	}
}

// ReturnCmd returns the return command.
func ReturnCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("return", flag.ContinueOnError),
		Usage: "return <student> <isbn>",
		Short: "Return a rented book",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			err := exactArgs(args, 2, "return <student> <isbn>")
			if err != nil {
				return err
			}

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			err = svc.Return(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			io.Println(args[0], "returned", args[1])

			return nil
		},
	}
}

// HoldingsCmd returns the holdings command.
func HoldingsCmd(a *app) *Command {
	fs := flag.NewFlagSet("holdings", flag.ContinueOnError)
	fs.Bool("json", false, "Output as JSON")

	return &Command{
		Flags: fs,
		Usage: "holdings <student> [--json]",
		Short: "List the books a student currently holds",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			err := exactArgs(args, 1, "holdings <student>")
			if err != nil {
				return err
			}

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			if _, ok := svc.FindStudent(args[0]); !ok {
				io.Warn("unknown student "+args[0], "register it with 'library student add'")
			}

			isbns := svc.Holdings(args[0])

			if asJSON, _ := fs.GetBool("json"); asJSON {
				return io.JSON(isbns)
			}

			for _, isbn := range isbns {
				if b, ok := svc.FindBook(isbn); ok {
					io.Println(isbn, "-", b.Title)
				} else {
					io.Println(isbn, "- (not in catalog)")
				}
			}

			return nil
		},
	}
}

// LogCmd returns the log command.
func LogCmd(a *app) *Command {
	fs := flag.NewFlagSet("log", flag.ContinueOnError)
	fs.Bool("json", false, "Output events as JSON")

	return &Command{
		Flags: fs,
		Usage: "log <student> [--json]",
		Short: "Show a student's rental history",
		Long: `Show every RENT and RETURN recorded for a student, oldest first.

Times are shown in the configured time_zone.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			err := exactArgs(args, 1, "log <student>")
			if err != nil {
				return err
			}

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			if asJSON, _ := fs.GetBool("json"); asJSON {
				events, err := svc.Events(args[0])
				if err != nil {
					return err
				}

				return io.JSON(events)
			}

			lines, err := svc.ReadLog(args[0])
			if err != nil {
				return err
			}

			for _, line := range lines {
				io.Println(line)
			}

			return nil
		},
	}
}
