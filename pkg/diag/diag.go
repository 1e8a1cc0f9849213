// Package diag records non-fatal conditions found while processing
// untrusted input, so stages can report them instead of failing.
package diag

import "fmt"

// Diagnostic is one recorded condition.
type Diagnostic struct {
	Stage   string `json:"stage"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Subject == "" {
		return fmt.Sprintf("%s: %s", d.Stage, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Stage, d.Subject, d.Message)
}

// List is an ordered set of diagnostics.
type List []Diagnostic

// Add appends a formatted diagnostic.
func (l *List) Add(stage, subject, format string, args ...any) {
	*l = append(*l, Diagnostic{Stage: stage, Subject: subject, Message: fmt.Sprintf(format, args...)})
}

// Len returns the number of diagnostics.
func (l List) Len() int {
	return len(l)
}
