package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by the inventory, registry and stocktake layers.
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("already exists")
	ErrUnauthorized = errors.New("not signed in")
	ErrInvalidState = errors.New("invalid state")
)

// FieldError describes one rejected field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError lists every rejected field of a submitted draft.
type ValidationError struct {
	Errors []FieldError
}

// Fields returns the rejected field names in declaration order.
func (e *ValidationError) Fields() []string {
	fields := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		fields[i] = fe.Field
	}
	return fields
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + " " + fe.Rule
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// StoreError wraps a backend failure. Retryable is set when the call timed
// out or was cut short and may succeed if repeated.
type StoreError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
