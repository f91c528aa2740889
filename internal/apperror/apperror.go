// Package apperror defines the typed errors shared by the service and
// repository layers. Handlers translate them into HTTP responses.
//
// Every constructor returns an *AppError that wraps one of the sentinel
// errors below, so callers can branch with errors.Is and still read the
// human-readable Message (and Field, for validation failures).
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("Validation Error")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrExternalLogin      = errors.New("external login required")
	ErrInvalidMode        = errors.New("invalid mode")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// DuplicateKey reports a uniqueness violation on one field of a resource.
// The value itself is deliberately left out of the message: it is usually
// an email address and ends up in logs.
func DuplicateKey(resource, field string) *AppError {
	return &AppError{
		Err:     ErrDuplicateKey,
		Message: fmt.Sprintf("%s with this %s already exists", resource, field),
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// InvalidCredentials is returned for an unknown email or a wrong password.
// Both cases share one message so the response does not reveal which
// emails are registered.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Invalid credentials",
	}
}

// ExternalLogin is returned when a password login targets an account that
// was created through the identity provider and has no password.
func ExternalLogin(provider string) *AppError {
	return &AppError{
		Err:     ErrExternalLogin,
		Message: fmt.Sprintf("Please sign in with %s for this account.", provider),
	}
}

func InvalidMode(mode string) *AppError {
	return &AppError{
		Err:     ErrInvalidMode,
		Message: fmt.Sprintf("invalid mode %q: must be one of normal, voice", mode),
		Field:   "mode",
	}
}
