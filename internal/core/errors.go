package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is wrapped by lookups that match no row.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is wrapped when a status change is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict is wrapped when a unique key already exists.
	ErrConflict = errors.New("already exists")
)

// ValidationErrors collects field-level problems so callers can report them all at once.
type ValidationErrors struct {
	Fields map[string]string `json:"fields"`
}

// NewValidationErrors returns an empty accumulator.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Fields: make(map[string]string)}
}

// Add records msg for field. The first message for a field wins.
func (v *ValidationErrors) Add(field, msg string) {
	if _, ok := v.Fields[field]; !ok {
		v.Fields[field] = msg
	}
}

// Err returns v as an error, or nil if nothing was added.
func (v *ValidationErrors) Err() error {
	if len(v.Fields) == 0 {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// notFound wraps ErrNotFound with the entity and key that were looked up.
func notFound(entity string, key any) error {
	return fmt.Errorf("%s %v: %w", entity, key, ErrNotFound)
}

// isUniqueViolation reports whether err is a Postgres unique_violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// lookupErr maps pgx.ErrNoRows to ErrNotFound and wraps everything else.
func lookupErr(entity string, key any, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(entity, key)
	}
	return fmt.Errorf("get %s %v: %w", entity, key, err)
}
