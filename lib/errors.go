package lib

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Database errors
var (
	ErrConflict  = errors.New("conflict")
	ErrNotFound  = errors.New("not found")
	ErrTransient = errors.New("temporarily unavailable")
)

// Input errors
var (
	ErrValidation = errors.New("validation failed")
)

// Auth errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
	ErrForbidden    = errors.New("forbidden")
)

// InputError is a rule violation with a message meant for the admin UI
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Unwrap() error { return ErrValidation }

func NewInputError(format string, args ...any) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

// InconsistentStateError reports a compound operation that stopped after
// some of its writes were committed. Step names the last completed step.
type InconsistentStateError struct {
	Step     string
	ReturnID uuid.UUID
	OrderID  uuid.UUID
	Err      error
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("inconsistent state after step %q (return=%s, order=%s): %v", e.Step, e.ReturnID, e.OrderID, e.Err)
}

func (e *InconsistentStateError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying by the caller
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// MapPgError translates driver errors into the package sentinels. Unknown
// errors are returned unchanged.
func MapPgError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrTransient) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if mapped := mapSQLState(pgErr.Code); mapped != nil {
			return fmt.Errorf("%w: %v", mapped, err)
		}
		return err
	}

	var drvErr pgdriver.Error
	if errors.As(err, &drvErr) {
		if mapped := mapSQLState(drvErr.Field('C')); mapped != nil { // SQLSTATE
			return fmt.Errorf("%w: %v", mapped, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	return err
}

func mapSQLState(code string) error {
	switch code {
	case "23505": // unique_violation
		return ErrConflict
	case "P0002": // no_data_found
		return ErrNotFound
	case "23503", "23502", "23514", "22P02": // foreign_key, not_null, check, invalid_text_representation
		return ErrValidation
	case "40001", "40P01", "53300", "57P03", "57014": // serialization, deadlock, too_many_connections, cannot_connect_now, query_canceled
		return ErrTransient
	}

	if len(code) == 5 && code[:2] == "08" { // connection_exception class
		return ErrTransient
	}

	return nil
}
