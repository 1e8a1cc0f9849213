package artifact

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrInvalidName = errors.New("invalid artifact name")
	ErrNoBucket    = errors.New("no bucket configured")
)

// Error describes a failed artifact operation.
type Error struct {
	Op       string // "put", "rename", "mirror"
	Name     string
	Location string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s artifact %s (%s): %v", e.Op, e.Name, e.Location, e.Cause)
	}
	return fmt.Sprintf("%s artifact %s: %v", e.Op, e.Name, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}
