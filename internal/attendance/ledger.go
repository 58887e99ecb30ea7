package attendance

import (
	"context"
	"fmt"
	"time"
)

// DateLayout is the calendar-day key stored with each record.
const DateLayout = "2006-01-02"

// Day formats t as a ledger date key.
func Day(t time.Time) string {
	return t.Format(DateLayout)
}

// Entry is the input for RecordAttendance.
type Entry struct {
	Name   string
	Major  string
	Code   string
	Date   string
	Source string
	At     time.Time
}

// Ledger is the authority for once-per-subject-per-day attendance.
// Uniqueness is enforced by the storage constraint, not by callers.
type Ledger struct {
	repo *Repository
}

// NewLedger creates a ledger backed by a repository.
func NewLedger(repo *Repository) *Ledger {
	return &Ledger{repo: repo}
}

// HasRecordToday reports whether code already has a record on date.
func (l *Ledger) HasRecordToday(ctx context.Context, code, date string) (bool, error) {
	n, err := l.repo.CountRecords(ctx, NormalizeCode(code), date)
	if err != nil {
		return false, fmt.Errorf("check %s on %s: %w", code, date, err)
	}
	return n > 0, nil
}

// RecordAttendance creates the record for (code, date). created is false, with a nil
// error, when a record already exists, including one written by a concurrent call.
func (l *Ledger) RecordAttendance(ctx context.Context, e Entry) (bool, error) {
	rec := Record{
		Name:       e.Name,
		Major:      e.Major,
		Code:       NormalizeCode(e.Code),
		Date:       e.Date,
		Source:     e.Source,
		RecordedAt: e.At.UTC(),
	}
	created, err := l.repo.InsertRecord(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("record %s on %s: %w", rec.Code, rec.Date, err)
	}
	return created, nil
}

// TotalScans counts records ever created for code, i.e. distinct days attended.
func (l *Ledger) TotalScans(ctx context.Context, code string) (int, error) {
	n, err := l.repo.CountRecords(ctx, NormalizeCode(code), "")
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", code, err)
	}
	return n, nil
}

// List returns records matching f, newest day first.
func (l *Ledger) List(ctx context.Context, f Filter) ([]Record, error) {
	if f.Code != "" {
		f.Code = NormalizeCode(f.Code)
	}
	return l.repo.ListRecords(ctx, f)
}
