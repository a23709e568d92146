package utils

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError carries field-scoped messages for malformed or
// constraint-violating input. It is surfaced verbatim to the caller and
// never logged as a server fault.
type ValidationError map[string]string

func (e ValidationError) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e[k]))
	}
	return strings.Join(parts, "; ")
}

func NewValidationError(field string, message string) ValidationError {
	return ValidationError{field: message}
}

// ConflictError marks a status transition attempted from an ineligible
// current state. Distinct from ValidationError so callers can tell
// "bad input" apart from "stale view of state".
type ConflictError struct {
	Detail string
}

func (e *ConflictError) Error() string {
	return e.Detail
}

func NewConflictError(format string, args ...any) *ConflictError {
	return &ConflictError{Detail: fmt.Sprintf(format, args...)}
}

func AsValidationError(err error) (ValidationError, bool) {
	var ve ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func AsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
