package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation matches any *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound matches any *NotFoundError via errors.Is.
	ErrNotFound = errors.New("tenant not found")
	// ErrAmbiguousState matches any *AmbiguousStateError via errors.Is.
	ErrAmbiguousState = errors.New("more than one active tenant")
	// ErrConflict matches any *ConflictError via errors.Is.
	ErrConflict = errors.New("tenant conflict")
)

// ValidationError reports a missing or malformed field on create or update.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an operation on an unknown tenant id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tenant %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AmbiguousStateError means persistence holds more than one active tenant. It is never
// resolved by picking one; operators must fix the data.
type AmbiguousStateError struct {
	IDs []string
}

func (e *AmbiguousStateError) Error() string {
	return fmt.Sprintf("more than one active tenant: %s", strings.Join(e.IDs, ", "))
}

func (e *AmbiguousStateError) Is(target error) bool { return target == ErrAmbiguousState }

// ConflictError reports a slug or domain already claimed by another tenant.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q is already in use", e.Field, e.Value)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
