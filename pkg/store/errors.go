package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vango-dev/postboard/pkg/model"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Sentinel errors. Store methods wrap them, compare with errors.Is.
var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a write violates a unique index.
	ErrConflict = errors.New("store: conflict")

	// ErrForeignKey is returned when a write references a missing row.
	ErrForeignKey = errors.New("store: missing referenced row")

	// ErrInvalidName is the cause of a NameError for names that fail
	// validation before storage is consulted.
	ErrInvalidName = errors.New("store: invalid account name")

	// ErrNameTaken is the cause of a NameError for names already in use.
	ErrNameTaken = errors.New("store: account name taken")

	// ErrInvalidBody is returned for empty or oversized post and comment bodies.
	ErrInvalidBody = errors.New("store: invalid body")

	// ErrEmptyURL is returned by Open for an empty DATABASE_URL.
	ErrEmptyURL = errors.New("store: empty database url")

	// ErrUnsupportedURL is returned by Open for a URL scheme that names
	// neither PostgreSQL nor SQLite.
	ErrUnsupportedURL = errors.New("store: unsupported database url")

	// ErrUnreachable is returned by Open when the database was opened
	// but did not answer a ping.
	ErrUnreachable = errors.New("store: database unreachable")

	// ErrNothingToRollback is returned by Rollback when no migration is applied.
	ErrNothingToRollback = errors.New("store: no migration to roll back")
)

// NameError reports why an account name was refused.
type NameError struct {
	Name  string
	Check model.NameCheck
	Err   error // ErrInvalidName or ErrNameTaken
}

// Error returns the error message.
func (e *NameError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Name)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *NameError) Unwrap() error {
	return e.Err
}

// ValidationError reports a post or comment body that was refused.
type ValidationError struct {
	Field string // "post" or "comment"
	Len   int    // length in characters after trimming
	Max   int
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if e.Len == 0 {
		return fmt.Sprintf("%v: %s is empty", ErrInvalidBody, e.Field)
	}
	return fmt.Sprintf("%v: %s has %d characters, max %d", ErrInvalidBody, e.Field, e.Len, e.Max)
}

// Unwrap returns ErrInvalidBody.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidBody
}

// castErr replaces driver-level errors with the package sentinels. Unknown
// errors are returned unchanged.
//
// SQLite extended codes: https://www.sqlite.org/rescode.html
// PostgreSQL codes: https://www.postgresql.org/docs/current/errcodes-appendix.html
func castErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %v", ErrForeignKey, err)
		case sqlite3.SQLITE_CONSTRAINT:
			// Extended codes disabled on this connection.
			msg := se.Error()
			switch {
			case strings.Contains(msg, "UNIQUE"):
				return fmt.Errorf("%w: %v", ErrConflict, err)
			case strings.Contains(msg, "FOREIGN KEY"):
				return fmt.Errorf("%w: %v", ErrForeignKey, err)
			}
		}
		return err
	}

	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		switch pe.Code {
		case "23505":
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case "23503":
			return fmt.Errorf("%w: %v", ErrForeignKey, err)
		}
	}
	return err
}
