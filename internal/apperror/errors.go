// Package apperror provides domain-specific error types for the accounts
// service. These errors carry an HTTP status code and a message for the
// client. The Echo error handler maps them to JSON responses automatically.
//
// NEVER return raw database or infrastructure errors to the client without
// wrapping them in an apperror type first.
package apperror

import (
	"fmt"
	"net/http"
)

// AppError is the base error type for all domain errors. It carries an
// HTTP status code, a machine-readable error type, and a human-readable
// message returned to the client.
type AppError struct {
	// Code is the HTTP status code (e.g., 400, 401, 500).
	Code int `json:"-"`

	// Type is a machine-readable error classifier (e.g., "conflict").
	Type string `json:"type"`

	// Message is a human-readable description returned to the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// --- Constructors for common error types ---

// NewBadRequest creates a 400 error for malformed or out-of-range input.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    "validation_error",
		Message: message,
	}
}

// NewUnauthorized creates a 401 error for bad credentials or an absent,
// invalid, or superseded session token.
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    "auth_error",
		Message: message,
	}
}

// NewConflict creates a 409 error for duplicate unique keys.
func NewConflict(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Type:    "conflict",
		Message: message,
	}
}

// NewNotFound creates a 404 Not Found error. Repositories return this for
// missing rows; callers decide how it surfaces (the auth gate converts it
// to 401).
func NewNotFound(message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    "not_found",
		Message: message,
	}
}

// NewProcessing creates a 500 error for a downstream library failure, such
// as an image that cannot be decoded or encoded.
func NewProcessing(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "processing_error",
		Message:  err.Error(),
		Internal: err,
	}
}

// NewInternal creates a 500 Internal Server Error. The underlying message
// is surfaced to the caller; this is an internal-facing API and the full
// error also goes to the logs.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "internal_error",
		Message:  err.Error(),
		Internal: err,
	}
}
