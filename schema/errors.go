package schema

import (
	"errors"
	"fmt"
)

// ErrUnknownScheduler is returned by Validate when valid_data's
// CIS_SCHEDULER does not name one of the schedulers passed in.
var ErrUnknownScheduler = errors.New("unregistered scheduler")

// FieldError describes why a single request field failed validation.
type FieldError struct {
	Path   string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// ValidationErrors collects every field-level failure found while
// validating one request; Validate returns all of them together rather
// than stopping at the first.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var b []byte
	b = append(b, fmt.Sprintf("%d validation errors:\n", len(e))...)
	for i, fe := range e {
		if i > 0 {
			b = append(b, '\n')
		}
		b = append(b, "  - "...)
		b = append(b, fe.Error()...)
	}
	return string(b)
}
