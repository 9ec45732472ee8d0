package model

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the sentinel matched by errors.Is for every malformed
// schedule: bad time strings, start >= end, empty day list, bad step values.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError names the offending field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// Invalid builds an *InvalidInputError with a formatted reason.
func Invalid(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
