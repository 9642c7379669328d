package models

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that no ledger record exists for a (pipeline, date).
// It is distinct from a zero-valued record.
var ErrNotFound = errors.New("ledger record not found")

// ErrConflict indicates another writer is mutating the same pipeline chain.
// Callers are expected to retry.
var ErrConflict = errors.New("concurrent ledger mutation")

// ValidationError rejects input before any state is changed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
