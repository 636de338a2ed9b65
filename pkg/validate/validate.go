package validate

import (
	"errors"
	"fmt"
)

// Error represents a domain validation failure. Inputs that fail validation
// are rejected before any computation runs, never silently clamped.
type Error struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// Errorf builds a validation error for a field.
func Errorf(field, format string, args ...interface{}) *Error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is (or wraps) a validation error.
func IsValidationError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

// Range rejects values outside [min, max].
func Range(field string, value, min, max float64) error {
	if value < min || value > max {
		return Errorf(field, "must be between %v and %v, got %v", min, max, value)
	}
	return nil
}
