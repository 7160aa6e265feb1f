package application

import (
	"errors"
	"sort"
	"strings"

	"github.com/example/maintenance-scheduler/internal/recurrence"
)

var (
	// ErrNotFound is returned when the requested schedule does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a schedule id is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidRule aliases recurrence.ErrInvalidRule so callers can match rule
	// rejections without importing the recurrence package.
	ErrInvalidRule = recurrence.ErrInvalidRule
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
