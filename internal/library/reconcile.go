package library

import (
	"context"
	"fmt"

	"github.com/dmitriwamback/cs-dge-library-system/internal/rentlog"
)

// ReconcileReport summarizes a replay of every student's log.
type ReconcileReport struct {
	Students  int            `json:"students"`
	Holdings  int            `json:"holdings"`
	Anomalies []LogAnomaly   `json:"anomalies,omitempty"`
	Truncated []TruncatedLog `json:"truncated,omitempty"`
}

// LogAnomaly is a RETURN in a student's log that has no earlier RENT.
type LogAnomaly struct {
	StudentID string `json:"student"`
	rentlog.Anomaly
}

// TruncatedLog is a log whose tail could not be decoded and was ignored.
type TruncatedLog struct {
	StudentID string `json:"student"`
	Path      string `json:"path"`
	Discarded int    `json:"discarded_bytes"`
	Reason    string `json:"reason"`
}

// Reconcile rebuilds the active-rental index from the logs of all registered
// students. Each student's set is replaced by the ISBNs whose RENT count
// exceeds their RETURN count. Running it twice gives the same index.
//
// Anomalies and truncated logs are reported and logged but are not errors.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	for _, st := range s.ListStudents() {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		err := s.reconcileStudent(st.ID, &report)
		if err != nil {
			return report, err
		}

		report.Students++
	}

	for _, a := range report.Anomalies {
		s.logger.Warn("return without matching rent in log", "student", a.StudentID, "isbn", a.ISBN, "event", a.Index)
	}

	for _, tl := range report.Truncated {
		s.logger.Warn("ignored undecodable log tail", "student", tl.StudentID, "path", tl.Path, "bytes", tl.Discarded, "reason", tl.Reason)
	}

	s.logger.Info("reconciled rentals", "students", report.Students, "holdings", report.Holdings)

	return report, nil
}

func (s *Service) reconcileStudent(id string, report *ReconcileReport) error {
	unlock := s.patronLocks.lock(id)
	defer unlock()

	l, err := s.openLog(id)
	if err != nil {
		return fmt.Errorf("student %q: %w", id, err)
	}

	res, err := l.Scan()
	if err != nil {
		return fmt.Errorf("replaying log of %q: %w", id, storageErr(err))
	}

	held, anomalies := rentlog.Holdings(res.Events)

	s.index.of(id).replace(held)

	report.Holdings += len(held)

	for _, a := range anomalies {
		report.Anomalies = append(report.Anomalies, LogAnomaly{StudentID: id, Anomaly: a})
	}

	if res.Discarded > 0 {
		report.Truncated = append(report.Truncated, TruncatedLog{
			StudentID: id,
			Path:      l.Path(),
			Discarded: res.Discarded,
			Reason:    res.Reason.Error(),
		})
	}

	return nil
}

// RecountReport lists the books whose checked-out count was corrected.
type RecountReport struct {
	Changed []CountChange `json:"changed"`
}

// CountChange is one corrected book.
type CountChange struct {
	ISBN   string `json:"isbn"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

// Recount sets every book's checked-out count to the number of students
// holding it according to the active-rental index, capped at the book's total
// copies, and saves the catalog if anything changed.
func (s *Service) Recount(ctx context.Context) (RecountReport, error) {
	report := RecountReport{Changed: []CountChange{}}

	for _, b := range s.ListBooks() {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		change, changed := s.recountBook(b.ISBN)
		if changed {
			report.Changed = append(report.Changed, change)
		}
	}

	if len(report.Changed) == 0 {
		return report, nil
	}

	err := s.books.Save()
	if err != nil {
		s.logger.Error("saving catalog failed", "error", err)

		return report, storageErr(err)
	}

	for _, c := range report.Changed {
		s.logger.Warn("corrected checked-out count", "isbn", c.ISBN, "before", c.Before, "after", c.After)
	}

	return report, nil
}

func (s *Service) recountBook(isbn string) (CountChange, bool) {
	unlock := s.bookLocks.lock(isbn)
	defer unlock()

	b, ok := s.books.Get(isbn)
	if !ok {
		return CountChange{}, false
	}

	after := min(s.index.holders(isbn), b.totalCopies)
	if after == b.checkedOut {
		return CountChange{}, false
	}

	change := CountChange{ISBN: isbn, Before: b.checkedOut, After: after}
	b.checkedOut = after
	s.books.Put(isbn, b)

	return change, true
}
