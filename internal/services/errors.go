package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidCredentials is returned for every failed login, whether the
// username is unknown or the password is wrong. One error for both
// cases keeps account existence unobservable.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrNotAuthenticated is returned when a protected operation is invoked
// without a live session. The operation must not have produced any side
// effect by the time this is returned.
var ErrNotAuthenticated = errors.New("authentication required")

// ValidationError reports malformed or missing input, keyed by field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldErrors accumulates field-level validation messages.
type fieldErrors map[string]string

func (f fieldErrors) set(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}
