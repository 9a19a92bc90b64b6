package domain

import (
	"errors"
	"fmt"
)

// Sentinel categories for domain errors. Handlers map these to HTTP statuses.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state transition")
	ErrInternal     = errors.New("internal error")
)

// DomainError wraps a sentinel category with a human-readable message.
type DomainError struct {
	Err     error
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Unwrap() error { return e.Err }

// NewNotFoundError creates a not-found error for a resource and identifier.
func NewNotFoundError(resource, id string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s with id '%s' not found", resource, id),
	}
}

// NewConflictError creates a conflict error (uniqueness or concurrent update).
func NewConflictError(message string) *DomainError {
	return &DomainError{Err: ErrConflict, Message: message}
}

// NewValidationError creates a validation error for malformed input.
func NewValidationError(message string) *DomainError {
	return &DomainError{Err: ErrValidation, Message: message}
}

// NewInvalidStateError creates an error for an illegal state transition.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidState,
		Message: fmt.Sprintf("cannot transition from '%s' to '%s'", from, to),
	}
}

// NewInternalError creates an internal error indicating data corruption or an
// exhausted retry budget. These are never business outcomes.
func NewInternalError(message string) *DomainError {
	return &DomainError{Err: ErrInternal, Message: message}
}

// IsNotFound reports whether err is a not-found domain error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is a conflict domain error.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
