package model

import (
	"sort"
	"strings"
)

// FieldErrors maps a form field name to the message displayed next to it.
// It is returned for client-side validation failures, which are never sent
// to the API.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for one field, or "".
func (e FieldErrors) Field(name string) string {
	return e[name]
}
