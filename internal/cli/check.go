package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"
)

// CheckCmd returns the check command.
func CheckCmd(a *app) *Command {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.Bool("json", false, "Output the report as JSON")

	return &Command{
		Flags: fs,
		Usage: "check [--json]",
		Short: "Replay rental logs and report problems",
		Long: `Replay every student's rental log and rebuild the active rentals.

Returns without a matching rent and logs with an unreadable tail are
reported as warnings (exit code 1). Nothing on disk is changed.`,
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			report, err := svc.Reconcile(ctx)
			if err != nil {
				return err
			}

			for _, an := range report.Anomalies {
				io.Warn(
					fmt.Sprintf("%s: return of %s without a matching rent (event %d)", an.StudentID, an.ISBN, an.Index),
					"inspect the log with 'library log "+an.StudentID+"'",
				)
			}

			for _, tr := range report.Truncated {
				io.Warn(
					fmt.Sprintf("%s: ignored %d unreadable bytes at the end of %s (%s)", tr.StudentID, tr.Discarded, tr.Path, tr.Reason),
					"the last rental may be missing; check the student's holdings",
				)
			}

			if asJSON, _ := fs.GetBool("json"); asJSON {
				return io.JSON(report)
			}

			io.Printf("checked %d students, %d active rentals\n", report.Students, report.Holdings)

			return nil
		},
	}
}

// RepairCmd returns the repair command.
func RepairCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("repair", flag.ContinueOnError),
		Usage: "repair",
		Short: "Fix checked-out counts from the rental logs",
		Long: `Set every book's checked-out count to the number of students holding it
according to the rental logs, and save the catalog if anything changed.`,
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			report, err := svc.Recount(ctx)
			if err != nil {
				return err
			}

			if len(report.Changed) == 0 {
				io.Println("nothing to repair")

				return nil
			}

			for _, c := range report.Changed {
				io.Printf("corrected %s: %d -> %d\n", c.ISBN, c.Before, c.After)
			}

			return nil
		},
	}
}
