package network

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNoRoot          = errors.New("document has no root element")
	ErrEmptyFragment   = errors.New("fragment is empty")
	ErrTrailingContent = errors.New("fragment has more than one element")
)

// ParseError provides structured error information for codec operations.
type ParseError struct {
	Op    string // Operation that failed (e.g., "load", "decode", "fragment")
	Path  string // Source path, if any
	Tag   string // Element being decoded, if known
	Cause error  // Underlying error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	switch {
	case e.Path != "" && e.Tag != "":
		return fmt.Sprintf("%s %s (element %s): %v", e.Op, e.Path, e.Tag, e.Cause)
	case e.Path != "":
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
	case e.Tag != "":
		return fmt.Sprintf("%s element %s: %v", e.Op, e.Tag, e.Cause)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}
