package registry

import (
	"errors"
	"fmt"
)

// Tool registry errors.
var (
	// ErrDuplicateTool is returned when a tool name is already registered.
	ErrDuplicateTool = errors.New("duplicate tool")

	// ErrToolNameEmpty is returned when no name can be resolved for a tool.
	ErrToolNameEmpty = errors.New("tool name cannot be resolved")

	// ErrNilFunc is returned when a tool has no callable.
	ErrNilFunc = errors.New("tool func cannot be nil")

	// ErrToolPanic is returned by Call when the callable panics.
	ErrToolPanic = errors.New("tool panicked")
)

// HTTPError is an error a tool returns when it already knows the HTTP status
// the caller should see. The REST surface passes it through unchanged.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}
