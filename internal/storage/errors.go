package storage

import (
	"errors"
	"fmt"

	"github.com/dataq-io/dataq/internal/driver"
)

// Code categorizes engine errors. Callers branch on the recoverable codes
// (conflict, not-found, soft-deleted) rather than treating them as generic
// failures.
type Code string

const (
	// CodeBadInput marks caller mistakes: invalid identifiers, disallowed
	// property types, id/type mismatches. Never retried.
	CodeBadInput Code = "BAD_INPUT"

	// CodeConflict marks an optimistic-concurrency version mismatch. The
	// error carries the server's current row for reconciliation.
	CodeConflict Code = "CONFLICT"

	// CodeItemNotFound marks a row that does not exist.
	CodeItemNotFound Code = "ITEM_NOT_FOUND"

	// CodeItemSoftDeleted marks a row present but flagged deleted.
	CodeItemSoftDeleted Code = "ITEM_SOFT_DELETED"

	// CodeSQLError marks a non-transient database failure (login failure,
	// constraint violation, driver fault). Logged and surfaced, not retried.
	CodeSQLError Code = "SQL_ERROR"

	// CodeRetriesExhausted marks a transient failure that persisted through
	// every retry attempt. Distinguished from CodeSQLError for observability.
	CodeRetriesExhausted Code = "RETRIES_EXHAUSTED"

	// CodeInternal wraps unexpected failures so no internal detail leaks.
	CodeInternal Code = "INTERNAL"
)

// Error is the engine's error type.
type Error struct {
	Code    Code
	Message string

	// Item holds the server's current row for CodeConflict and
	// CodeItemSoftDeleted, nil otherwise.
	Item driver.Row

	// Err is the wrapped cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the engine code of err, or CodeInternal when err is not an
// engine error.
func CodeOf(err error) Code {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code
	}
	return CodeInternal
}

// IsBadInput reports whether err is a caller mistake.
func IsBadInput(err error) bool { return is(err, CodeBadInput) }

// IsConflict reports whether err is a version conflict.
func IsConflict(err error) bool { return is(err, CodeConflict) }

// IsNotFound reports whether err is a missing row.
func IsNotFound(err error) bool { return is(err, CodeItemNotFound) }

// IsSoftDeleted reports whether err is a logically deleted row.
func IsSoftDeleted(err error) bool { return is(err, CodeItemSoftDeleted) }

// IsRetriesExhausted reports whether err is a transient failure that
// outlived its retry budget.
func IsRetriesExhausted(err error) bool { return is(err, CodeRetriesExhausted) }

func is(err error, code Code) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Code == code
}

func badInputf(format string, args ...any) *Error {
	return &Error{Code: CodeBadInput, Message: fmt.Sprintf(format, args...)}
}

func conflictError(current driver.Row) *Error {
	return &Error{
		Code:    CodeConflict,
		Message: "the supplied version does not match the row's current version",
		Item:    current,
	}
}

func notFoundError(table string, id any) *Error {
	return &Error{
		Code:    CodeItemNotFound,
		Message: fmt.Sprintf("no item with id %v in table %q", id, table),
	}
}

func softDeletedError(current driver.Row) *Error {
	return &Error{
		Code:    CodeItemSoftDeleted,
		Message: "the item has been deleted",
		Item:    current,
	}
}

func internalError(err error) *Error {
	return &Error{Code: CodeInternal, Message: "unexpected storage failure", Err: err}
}
