package types

import (
	"errors"
	"fmt"
)

// ErrorCode is a namespaced code identifying a failure class.
type ErrorCode string

// Graph engine error codes. These are the expected failure modes that cross
// the provider boundary; anything else is wrapped as STORE_ERROR.
const (
	ErrNotConnected     ErrorCode = "NOT_CONNECTED"
	ErrSchemaMissing    ErrorCode = "SCHEMA_MISSING"
	ErrAccessDenied     ErrorCode = "ACCESS_DENIED"
	ErrNotFound         ErrorCode = "NOT_FOUND"
	ErrUnsupportedQuery ErrorCode = "UNSUPPORTED_QUERY"
	ErrStore            ErrorCode = "STORE_ERROR"
	ErrInvalidConfig    ErrorCode = "INVALID_CONFIG"
	ErrConnectionFailed ErrorCode = "CONNECTION_FAILED"
)

// Error is a structured error with a code, message, optional cause, and a
// retryability hint. It supports errors.Is/errors.As matching by code.
type Error struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
	Context   map[string]any
}

// Error implements the error interface.
// Format: "[CODE] message" or "[CODE] message: cause" if a cause exists.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so callers can write errors.Is(err, &Error{Code: ...}).
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

// WithContext attaches a debugging key/value pair and returns the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// NewError creates a non-retryable Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates an Error wrapping an underlying cause.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NewRetryableError creates an Error marked retryable, for transient faults
// such as connection drops.
func NewRetryableError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause, Retryable: true}
}

// CodeOf extracts the ErrorCode from err if it is (or wraps) an *Error.
// Returns ErrStore for foreign errors and "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ErrStore
}
