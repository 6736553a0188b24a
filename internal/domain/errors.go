package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by store lookups and read queries when no record
// matches. Callers match it with errors.Is.
var ErrNotFound = errors.New("not found")

// ValidationError means caller-supplied input or state violates a
// precondition: malformed email, short password, duplicate handle, unknown
// reset code, and so on. Bad credentials on login are deliberately reported
// as this kind too, so the error kind doesn't reveal which check failed.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AuthError means a token failed structural or signature verification, or
// references a session nobody holds. Distinct from ValidationError so
// callers can surface the two as separate failure categories.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "auth: " + e.Reason
}

// Authf builds an AuthError from a format string.
func Authf(format string, args ...any) error {
	return &AuthError{Reason: fmt.Sprintf(format, args...)}
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
