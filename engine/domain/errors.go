package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrQuestionTooShort = errors.New("question too short")
	ErrEmptyText        = errors.New("empty text")
	ErrEmptyQuestion    = errors.New("patient question is empty")
	ErrEmptyResponse    = errors.New("doctor response is empty")
	ErrBadEmbedding     = errors.New("bad embedding")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// UpstreamResponseError reports that an external service answered with a
// shape the client does not recognise. It replaces silently falling through
// to a default string when a field is missing.
type UpstreamResponseError struct {
	Service string
	Detail  string
}

func (e *UpstreamResponseError) Error() string {
	return fmt.Sprintf("%s: unexpected response: %s", e.Service, e.Detail)
}
