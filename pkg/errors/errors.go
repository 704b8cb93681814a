// Package errors defines the structured error types used by the taskhub API service.
// Application errors carry a stable machine-readable code and the HTTP status they map to.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes returned in API error bodies.
const (
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInvalidConfig     = "INVALID_CONFIG"
)

// ErrStoreUnavailable is wrapped by every counter store failure.
var ErrStoreUnavailable = stderrors.New("counter store unavailable")

// AppError represents a structured application error
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	cause      error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause sets the underlying cause and returns the error
func (e *AppError) WithCause(cause error) *AppError {
	e.cause = cause
	return e
}

// New creates an internal error with the given message
func New(message string) *AppError {
	return &AppError{
		Code:       ErrCodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// ErrInvalidRequest creates an invalid request error
func ErrInvalidRequest(message string) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidRequest,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// ErrRateLimitExceeded creates the error returned when a policy rejects a request
func ErrRateLimitExceeded(message string) *AppError {
	return &AppError{
		Code:       ErrCodeRateLimitExceeded,
		Message:    message,
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// ErrInvalidConfig creates a configuration error. Configuration errors abort startup.
func ErrInvalidConfig(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidConfig,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusInternalServerError,
	}
}

// StoreError wraps a counter store failure for the given operation and key.
// The result matches ErrStoreUnavailable with errors.Is.
func StoreError(op, key string, err error) error {
	return fmt.Errorf("%w: %s %q: %w", ErrStoreUnavailable, op, key, err)
}

// IsStoreError reports whether err originates from the counter store
func IsStoreError(err error) bool {
	return stderrors.Is(err, ErrStoreUnavailable)
}

// As is a shorthand for the standard library errors.As
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
