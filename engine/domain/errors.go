package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned across the repository boundary matches
// exactly one of these via errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrConnection = errors.New("connection failed")
	ErrQuery      = errors.New("query failed")
	ErrNotFound   = errors.New("not found")
)

// Sentinel causes wrapped by the error kinds above.
var (
	ErrRequired          = errors.New("required field missing")
	ErrOutOfRange        = errors.New("value out of range")
	ErrWrongType         = errors.New("wrong scalar type")
	ErrUnbounded         = errors.New("result size bound required")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrUnknownKind       = errors.New("unknown entity kind")
	ErrNotConnected      = errors.New("not connected")
	ErrAlreadyOpen       = errors.New("already open")
	ErrClosed            = errors.New("manager closed")
	ErrAuth              = errors.New("authentication rejected")
	ErrUnreachable       = errors.New("endpoint unreachable")
	ErrTimeout           = errors.New("timed out")
	ErrNoResult          = errors.New("no result returned")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// Is reports ErrValidation for every ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// ConnectionError reports an unreachable endpoint, rejected credentials or a
// session that could not be acquired in time.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// NewConnectionError creates a ConnectionError.
func NewConnectionError(op string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Err: err}
}

// QueryError reports an execution failure of a well-formed request. The
// message carries the operation and label only, never parameter values.
type QueryError struct {
	Op    string
	Label string
	Err   error
}

func (e *QueryError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("query: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("query: %s %s: %v", e.Op, e.Label, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) Is(target error) bool { return target == ErrQuery }

// NewQueryError creates a QueryError.
func NewQueryError(op, label string, err error) *QueryError {
	return &QueryError{Op: op, Label: label, Err: err}
}

// NotFoundError is returned by operations that presuppose an existing node.
// Point lookups report absence through their boolean result instead.
type NotFoundError struct {
	Label string
	Key   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Label)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(label, key string) *NotFoundError {
	return &NotFoundError{Label: label, Key: key}
}

// ErrorKind names the kind of err for metrics labels and wire replies:
// "validation", "connection", "query", "not_found", or "" for nil and
// unclassified errors.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConnection):
		return "connection"
	case errors.Is(err, ErrQuery):
		return "query"
	}
	return ""
}
