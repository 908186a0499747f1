package tsconfig

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds, matched with errors.Is.
var (
	ErrIO                 = errors.New("cannot read config")
	ErrParse              = errors.New("invalid config")
	ErrCircularDependency = errors.New("circular extends")
)

// Error reports a failure resolving one config file. Path is the file that
// is to blame, which may be an ancestor of the file that was requested.
type Error struct {
	Kind  error
	Path  string
	Chain []string
	Err   error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v", e.Path, e.Kind)
	if len(e.Chain) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Chain, " -> "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
