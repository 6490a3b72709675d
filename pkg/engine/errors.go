// pkg/engine/errors.go
package engine

import (
	"fmt"
	"sort"
	"strings"
)

// StatusError lets a handler attach an explicit HTTP status to a failure.
// Without one, handler failures map to 500.
type StatusError struct {
	Status int
	Err    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %v", e.Status, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Status wraps err with an explicit status hint.
func Status(status int, err error) error {
	return &StatusError{Status: status, Err: err}
}

// ValidationError carries structured field errors produced by the upstream
// validation collaborator. The engine only forwards them.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}
