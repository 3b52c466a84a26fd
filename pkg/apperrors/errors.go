package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrExtractionRunning indicates a metadata extraction run is already in
	// flight. A second trigger is rejected immediately, never queued.
	ErrExtractionRunning = errors.New("extraction already in progress")

	// ErrNotIndexed indicates no extraction has ever completed successfully,
	// so there is nothing to search.
	ErrNotIndexed = errors.New("no metadata has been extracted yet")

	// ErrSourceNotConfigured indicates the requested source has no connection
	// settings configured.
	ErrSourceNotConfigured = errors.New("source is not configured")

	// ErrUnknownSource indicates an unrecognized source name or source_type tag.
	ErrUnknownSource = errors.New("unknown source")
)

// ValidationError describes a rejected request parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
