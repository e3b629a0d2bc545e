package core

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the typed domain errors below.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// ValidationError reports malformed or referentially invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an operation on an id that does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func NewNotFoundError(kind string, id fmt.Stringer) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id.String()}
}

func (e *NotFoundError) Error() string { return e.Kind + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports a delete blocked by existing references.
type ConflictError struct {
	Message    string
	References int
}

func NewCategoryInUseError(references int) *ConflictError {
	return &ConflictError{
		Message:    fmt.Sprintf("Category in use by %d transactions. Use ?force=true to delete and detach.", references),
		References: references,
	}
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// IsDomainError reports whether err belongs to the classified domain
// taxonomy. Anything else is an internal failure.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict)
}
