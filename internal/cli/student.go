package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/dmitriwamback/cs-dge-library-system/internal/library"
)

// StudentAddCmd returns the student add command.
func StudentAddCmd(a *app) *Command {
	fs := flag.NewFlagSet("student add", flag.ContinueOnError)
	fs.String("name", "", "Display name")
	fs.String("program", "", "Study program")
	fs.Int("year", 0, "Year of study")

	return &Command{
		Flags: fs,
		Usage: "student add <id> [flags]",
		Short: "Register or update a student",
		Long:  "Register a student, or replace the name, program and year of an existing one.",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			err := exactArgs(args, 1, "student add <id> [flags]")
			if err != nil {
				return err
			}

			name, _ := fs.GetString("name")
			program, _ := fs.GetString("program")
			year, _ := fs.GetInt("year")

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			err = svc.AddOrUpdateStudent(library.Student{ID: args[0], Name: name, Program: program, Year: year})
			if err != nil {
				return err
			}

			io.Println("saved student", args[0])

			return nil
		},
	}
}

// StudentLsCmd returns the student ls command.
func StudentLsCmd(a *app) *Command {
	fs := flag.NewFlagSet("student ls", flag.ContinueOnError)
	fs.Bool("json", false, "Output as JSON")

	return &Command{
		Flags: fs,
		Usage: "student ls [--json]",
		Short: "List students",
		Long:  "List all registered students ordered by id.",
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			students := svc.ListStudents()

			if asJSON, _ := fs.GetBool("json"); asJSON {
				return io.JSON(students)
			}

			for _, s := range students {
				io.Println(formatStudent(s))
			}

			return nil
		},
	}
}

func formatStudent(s library.Student) string {
	return fmt.Sprintf("%s - %s (%s, year %d)", s.ID, s.Name, s.Program, s.Year)
}
