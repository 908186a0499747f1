package workspace

import (
	"errors"
	"fmt"

	"github.com/conneroisu/jsbuild/internal/diagnostics"
)

var (
	ErrNoProjectRoot   = errors.New("no package.json found in this directory or any parent")
	ErrNoManifest      = errors.New("package.json not found")
	ErrInvalidManifest = errors.New("invalid package.json")
	ErrInvalidPnpm     = errors.New("invalid pnpm workspace file")
)

// PackageError is a failure that prevents one package from being built.
// Path is the package manifest the failure is reported against; Blame is
// the file that actually caused it when that is a different file, such as
// a tsconfig.json somewhere in an extends chain.
type PackageError struct {
	Path  string
	Blame string
	Err   error
}

// Error implements the error interface
func (e *PackageError) Error() string {
	return fmt.Sprintf("package %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PackageError) Unwrap() error {
	return e.Err
}

// AsDiagnostics implements diagnostics.Diagnosable
func (e *PackageError) AsDiagnostics() []diagnostics.Diagnostic {
	file := e.Blame
	if file == "" {
		file = e.Path
	}
	return []diagnostics.Diagnostic{{
		Severity: diagnostics.SeverityError,
		Code:     "package",
		Message:  e.Err.Error(),
		File:     file,
	}}
}

// GlobError reports a workspace pattern that could not be expanded. The
// remaining patterns are still expanded. Location is the file that declared
// the pattern.
type GlobError struct {
	Pattern  string
	Location string
	Err      error
}

// Error implements the error interface
func (e *GlobError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("workspace pattern %q: %v", e.Pattern, e.Err)
	}
	return fmt.Sprintf("workspace pattern %q in %s: %v", e.Pattern, e.Location, e.Err)
}

// Unwrap returns the underlying error
func (e *GlobError) Unwrap() error {
	return e.Err
}
