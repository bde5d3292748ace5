package contact

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("contact not found")
	ErrInvalidPriority = errors.New("invalid priority level")
	ErrStore           = errors.New("contact store failure")
)

// FieldViolation names one broken field rule.
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError enumerates every violated field rule of one input.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Fields returns the offending field names in rule order.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v.Field)
	}
	return out
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Violations: []FieldViolation{{Field: field, Reason: reason}}}
}

type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string        { return fmt.Sprintf("contact %q not found", e.ID) }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type InvalidPriorityError struct {
	Value string
}

func (e *InvalidPriorityError) Error() string {
	return fmt.Sprintf("invalid priority level %q", e.Value)
}
func (e *InvalidPriorityError) Is(target error) bool { return target == ErrInvalidPriority }

// StoreError wraps a backing-store failure. It is never retried here.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string        { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error        { return e.Err }
func (e *StoreError) Is(target error) bool { return target == ErrStore }
