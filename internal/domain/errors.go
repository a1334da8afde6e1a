package domain

import "errors"

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailAlreadyExists    = errors.New("an account with this email already exists")
	ErrAccountNotFound       = errors.New("account not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrForbidden             = errors.New("permission denied")
)

// ValidationError is a client-caused input problem; Message is safe to show to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}
