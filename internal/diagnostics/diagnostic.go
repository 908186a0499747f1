// Package diagnostics carries compiler and build diagnostics from the many
// goroutines that produce them to the single reporter that renders and
// counts them.
//
// Producers (walker workers, the package orchestrator) only ever Send
// batches into a Queue. Exactly one Reporter drains the queue until it
// receives the end-of-stream sentinel posted by Finish, accumulating the
// error and warning totals that decide the process exit status.
package diagnostics

import (
	"errors"
	"fmt"
	"strings"
)

// Severity represents the severity of a diagnostic
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "info":
		*s = SeverityInfo
	case "warning", "warn":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Source is the text a diagnostic points into, attached so renderers can
// show a code frame without reading the file again.
type Source struct {
	Name string `json:"name"`
	Text string `json:"-"`
}

// Diagnostic is a single message about a file.
// Line and Column are 1-based; zero means unknown.
type Diagnostic struct {
	Severity   Severity `json:"severity"`
	Code       string   `json:"code,omitempty"`
	Message    string   `json:"message"`
	File       string   `json:"file,omitempty"`
	Line       int      `json:"line,omitempty"`
	Column     int      `json:"column,omitempty"`
	Length     int      `json:"length,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
	Source     *Source  `json:"-"`
}

// Error implements the error interface
func (d Diagnostic) Error() string {
	var b strings.Builder
	if d.File != "" {
		b.WriteString(d.File)
		if d.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", d.Line, d.Column)
		}
		b.WriteString(": ")
	}
	b.WriteString(d.Severity.String())
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

// Batch is the unit of reporting: every diagnostic produced for one path.
type Batch struct {
	Path        string       `json:"path"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// NewBatch builds a batch for path and fills in File on diagnostics that
// do not name one.
func NewBatch(path string, diags ...Diagnostic) Batch {
	for i := range diags {
		if diags[i].File == "" {
			diags[i].File = path
		}
	}
	return Batch{Path: path, Diagnostics: diags}
}

// WithSource attaches the same source text to every diagnostic in the batch.
func (b Batch) WithSource(src *Source) Batch {
	for i := range b.Diagnostics {
		if b.Diagnostics[i].Source == nil {
			b.Diagnostics[i].Source = src
		}
	}
	return b
}

// Counts are the running totals kept by the reporter.
type Counts struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// HasErrors reports whether the run failed.
func (c Counts) HasErrors() bool {
	return c.Errors > 0
}

// Add classifies one diagnostic into the totals.
func (c *Counts) Add(d Diagnostic) {
	switch d.Severity {
	case SeverityError:
		c.Errors++
	case SeverityWarning:
		c.Warnings++
	}
}

// CompileError is returned by a compiler when a file cannot be compiled.
type CompileError struct {
	Diagnostics []Diagnostic
}

// Error implements the error interface
func (e *CompileError) Error() string {
	switch len(e.Diagnostics) {
	case 0:
		return "compilation failed"
	case 1:
		return e.Diagnostics[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", e.Diagnostics[0].Error(), len(e.Diagnostics)-1)
	}
}

// Diagnosable is implemented by errors that know how to describe
// themselves as diagnostics.
type Diagnosable interface {
	error
	AsDiagnostics() []Diagnostic
}

// AsDiagnostics implements Diagnosable
func (e *CompileError) AsDiagnostics() []Diagnostic {
	return e.Diagnostics
}

// FromError converts an arbitrary error into diagnostics. Errors that
// carry their own diagnostics are unwrapped; anything else becomes a single
// error-severity diagnostic.
func FromError(err error) []Diagnostic {
	if err == nil {
		return nil
	}
	var d Diagnosable
	if errors.As(err, &d) {
		if diags := d.AsDiagnostics(); len(diags) > 0 {
			out := make([]Diagnostic, len(diags))
			copy(out, diags)
			return out
		}
	}
	return []Diagnostic{{Severity: SeverityError, Message: err.Error()}}
}

// ErrorBatch is shorthand for the batch reported when err is attributed
// to path.
func ErrorBatch(path string, err error) Batch {
	return NewBatch(path, FromError(err)...)
}
