package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// CodeLength is the length enrollment requires of a subject code.
// Elsewhere length is advisory.
const CodeLength = 6

var (
	// ErrInvalidSubject is returned when enrollment input fails validation.
	ErrInvalidSubject = errors.New("invalid subject")
	// ErrSubjectExists is returned when the code is already enrolled.
	ErrSubjectExists = errors.New("subject already enrolled")
)

// NormalizeCode trims and upper-cases a subject code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Registry resolves subjects by code and enrolls new ones.
type Registry struct {
	repo *Repository
}

// NewRegistry creates a registry backed by a repository.
func NewRegistry(repo *Repository) *Registry {
	return &Registry{repo: repo}
}

// Resolve looks up a subject after upper-casing the code.
// found is false when no subject matches; err is only set for storage failures.
func (r *Registry) Resolve(ctx context.Context, code string) (Subject, bool, error) {
	code = NormalizeCode(code)
	if code == "" {
		return Subject{}, false, nil
	}
	s, err := r.repo.GetSubject(ctx, code)
	if err != nil {
		return Subject{}, false, fmt.Errorf("resolve %s: %w", code, err)
	}
	if s == nil {
		return Subject{}, false, nil
	}
	return *s, true, nil
}

// Enroll validates and stores a new subject.
func (r *Registry) Enroll(ctx context.Context, name, major, code string) (Subject, error) {
	s := Subject{
		Name:  strings.TrimSpace(name),
		Major: strings.TrimSpace(major),
		Code:  NormalizeCode(code),
	}
	if s.Name == "" || s.Major == "" || s.Code == "" {
		return Subject{}, fmt.Errorf("%w: name, major and code are required", ErrInvalidSubject)
	}
	if n := utf8.RuneCountInString(s.Code); n != CodeLength {
		return Subject{}, fmt.Errorf("%w: code must be %d characters, got %d", ErrInvalidSubject, CodeLength, n)
	}
	inserted, err := r.repo.InsertSubject(ctx, s)
	if err != nil {
		return Subject{}, fmt.Errorf("enroll %s: %w", s.Code, err)
	}
	if !inserted {
		return Subject{}, fmt.Errorf("%w: %s", ErrSubjectExists, s.Code)
	}
	stored, err := r.repo.GetSubject(ctx, s.Code)
	if err != nil || stored == nil {
		return s, err
	}
	return *stored, nil
}

// Get returns the subject for code, or nil when absent.
func (r *Registry) Get(ctx context.Context, code string) (*Subject, error) {
	return r.repo.GetSubject(ctx, NormalizeCode(code))
}

// List returns all enrolled subjects.
func (r *Registry) List(ctx context.Context) ([]Subject, error) {
	return r.repo.ListSubjects(ctx)
}
