package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Subject is a person enrolled in the registry, keyed by an upper-case code.
type Subject struct {
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Major      string    `json:"major"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// Record is one attendance row. At most one exists per (Code, Date).
type Record struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Major      string    `json:"major"`
	Code       string    `json:"code"`
	Date       string    `json:"date"`
	Scans      int       `json:"scans"`
	Source     string    `json:"source,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Filter narrows ListRecords.
type Filter struct {
	Code   string
	Date   string
	Limit  int
	Offset int
}

// Repository persists subjects and attendance records through database/sql.
// Queries use $n placeholders, which both pgx and SQLite accept.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertSubject adds a subject unless the code is taken; inserted is false on conflict.
func (r *Repository) InsertSubject(ctx context.Context, s Subject) (bool, error) {
	if s.EnrolledAt.IsZero() {
		s.EnrolledAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO subjects (code, name, major, enrolled_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO NOTHING
	`, s.Code, s.Name, s.Major, s.EnrolledAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetSubject returns a subject by code, or nil when absent.
func (r *Repository) GetSubject(ctx context.Context, code string) (*Subject, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT code, name, major, enrolled_at FROM subjects WHERE code = $1
	`, code)
	var s Subject
	if err := row.Scan(&s.Code, &s.Name, &s.Major, &s.EnrolledAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListSubjects returns every subject ordered by code.
func (r *Repository) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, name, major, enrolled_at FROM subjects ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.Code, &s.Name, &s.Major, &s.EnrolledAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountRecords counts rows for a code, optionally restricted to one date.
func (r *Repository) CountRecords(ctx context.Context, code, date string) (int, error) {
	query := `SELECT COUNT(*) FROM attendance_records WHERE code = $1`
	args := []any{code}
	if date != "" {
		query += ` AND date = $2`
		args = append(args, date)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// InsertRecord writes a record unless (code, date) exists; inserted is false on conflict.
// The check and the write are one statement, so concurrent writers cannot both win.
func (r *Repository) InsertRecord(ctx context.Context, rec Record) (bool, error) {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (name, major, code, date, scans, source, recorded_at)
		VALUES ($1, $2, $3, $4, 1, $5, $6)
		ON CONFLICT (code, date) DO NOTHING
	`, rec.Name, rec.Major, rec.Code, rec.Date, rec.Source, rec.RecordedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListRecords returns records newest day first, ties broken by id.
// A zero Limit returns everything.
func (r *Repository) ListRecords(ctx context.Context, f Filter) ([]Record, error) {
	query := `SELECT id, name, major, code, date, scans, source, recorded_at FROM attendance_records`
	var (
		args    []any
		clauses []string
	)
	if f.Code != "" {
		args = append(args, f.Code)
		clauses = append(clauses, "code = $"+strconv.Itoa(len(args)))
	}
	if f.Date != "" {
		args = append(args, f.Date)
		clauses = append(clauses, "date = $"+strconv.Itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY date DESC, id DESC"
	if f.Limit > 0 {
		offset := f.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, f.Limit, offset)
		query += " LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Major, &rec.Code, &rec.Date, &rec.Scans, &rec.Source, &rec.RecordedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
