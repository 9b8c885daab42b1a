package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")

	// ErrInvalidKey indicates that a tenant key could not be decoded
	ErrInvalidKey = errors.New("invalid tenant key")

	// ErrBlocked indicates that a message contains a word from the tenant's block list
	ErrBlocked = errors.New("message blocked")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// UserError is a failure caused by the caller's input. Its Message is safe to
// return verbatim to the caller.
type UserError struct {
	Message string
	Err     error
}

// NewUserError creates a UserError with a caller-facing message and an optional cause.
func NewUserError(message string, err error) *UserError {
	return &UserError{Message: message, Err: err}
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// DependencyError is a failure reported by, or while talking to, a downstream provider.
//
// When Err is set the HTTPS call itself failed (timeout, DNS, TLS, malformed
// response). Otherwise the provider answered with a non-success Code and Message.
type DependencyError struct {
	Provider string
	Op       string
	Code     int
	Message  string
	Err      error
}

func (e *DependencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: transport error: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: provider error %d: %s", e.Provider, e.Op, e.Code, e.Message)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether the error came from the transport rather than the provider.
func (e *DependencyError) IsTransport() bool {
	return e.Err != nil
}

// IsUserError reports whether err is, or wraps, a UserError.
func IsUserError(err error) bool {
	var userErr *UserError
	return errors.As(err, &userErr)
}

// IsDependencyError reports whether err is, or wraps, a DependencyError.
func IsDependencyError(err error) bool {
	var depErr *DependencyError
	return errors.As(err, &depErr)
}
