package domain

import "fmt"

// Error types for consistent error handling across the invoicer.

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrDuplicateAccount indicates an account with the same email is already registered.
type ErrDuplicateAccount struct {
	Email string
}

func (e *ErrDuplicateAccount) Error() string {
	return "User already exists"
}

// ErrInvalidCredentials indicates no stored account matches the email/secret pair.
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "Invalid credentials"
}

// ErrUnreadableFile indicates an uploaded file could not be turned into an embeddable image.
type ErrUnreadableFile struct {
	Name string
	Err  error
}

func (e *ErrUnreadableFile) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unreadable file %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("unreadable file %q", e.Name)
}

func (e *ErrUnreadableFile) Unwrap() error {
	return e.Err
}

// ErrUnauthorized indicates a missing, invalid or stale session token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}
