package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotAuthenticated indicates no principal where one is required.
	ErrNotAuthenticated = errors.New("authentication required")
	// ErrForbidden indicates a principal without rights over the instance.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports malformed input, naming the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError reports a uniqueness-constraint violation.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Field, e.Message)
}

// NewConflictError builds a ConflictError for a field.
func NewConflictError(field, message string) *ConflictError {
	return &ConflictError{Field: field, Message: message}
}
