package core

import (
	"errors"
	"fmt"
)

// ValidationError reports bad caller input. It is never retried and its
// message is surfaced verbatim to the user.
type ValidationError struct {
	// Field names the offending input, e.g. "mimeType" or "resolution".
	Field string

	// Message is the human-readable explanation.
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsValidationError reports whether an error chain contains a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
