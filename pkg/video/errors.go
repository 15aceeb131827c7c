package video

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the ingestion, library and search layers.
var (
	ErrValidation       = errors.New("validation error")
	ErrPlatformRequired = errors.New("platform required")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrNotFound         = errors.New("not found")
	ErrPersistence      = errors.New("persistence failure")
	ErrProcessing       = errors.New("processing trigger failed")
	ErrSearch           = errors.New("search failed")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// PersistenceError wraps a failed read or write against the video store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// ProcessingTriggerError records why the processing service rejected or never
// received a trigger. It is kept in state and logs, not returned to submitters.
type ProcessingTriggerError struct {
	VideoID    string
	StatusCode int
	Err        error
}

func (e *ProcessingTriggerError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("processing trigger for %s: status %d", e.VideoID, e.StatusCode)
	}
	return fmt.Sprintf("processing trigger for %s: %v", e.VideoID, e.Err)
}

func (e *ProcessingTriggerError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProcessing}
	}
	return []error{ErrProcessing, e.Err}
}

// SearchError wraps a failed search backend call.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() []error { return []error{ErrSearch, e.Err} }
