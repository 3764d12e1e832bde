package shared

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across domain packages.
var (
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a storage-level conflict (duplicate key,
	// concurrent update) that survived the bounded retries.
	ErrConflict = errors.New("conflict")
	// ErrInvalidConfig indicates configuration that is present but unusable,
	// e.g. a points rate of zero. Distinct from "no configuration".
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Violation describes a single field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every violation found in a request so the
// caller sees the full list, not just the first failure.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a violation and returns the receiver for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Violations = append(e.Violations, Violation{Field: field, Message: message})
	return e
}

// Empty reports whether no violations were recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Violations) == 0
}
