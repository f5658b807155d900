package timesheet

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrProfileMissing means the account has no engineer profile yet; it can
	// be created through CreateProfile.
	ErrProfileMissing = errors.New("engineer profile not found")
	ErrDeactivated    = errors.New("engineer account is deactivated")
	ErrProfileExists  = errors.New("engineer profile already exists")
	ErrZeroHours      = errors.New("total hours must be greater than zero")
	ErrNotFound       = errors.New("activity not found")
)

// ValidationError maps field names to what is wrong with them.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) empty() bool { return len(e.Fields) == 0 }

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
