// Package apperrors defines the error taxonomy shared across the pipeline.
// Scanner sentinels are fatal to the affected feed; the typed errors are
// caught at the tool-dispatch boundary and serialized into tool results
// instead of raised.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrSectionNotFound  = errors.New("section not found in spreadsheet")
	ErrNoDateSections   = errors.New("no date sections found within section")
	ErrMaxTurnsExceeded = errors.New("max turns reached")
)

// ValidationError reports a missing or invalid tool argument. Non-fatal: the
// decision engine sees it as a tool-result error and can adjust.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// DataReferenceError reports a tool argument that points at a nonexistent
// stored entity. Surfaced the same way as ValidationError.
type DataReferenceError struct {
	Entity string
	ID     string
}

func (e *DataReferenceError) Error() string {
	return fmt.Sprintf("%s %s does not exist", e.Entity, e.ID)
}

// NewDataReferenceError creates a DataReferenceError for an entity lookup.
func NewDataReferenceError(entity, id string) *DataReferenceError {
	return &DataReferenceError{Entity: entity, ID: id}
}
