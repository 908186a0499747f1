package build

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/conneroisu/jsbuild/internal/diagnostics"
)

// Output is everything a successful compile produces for one file.
// Nil optional fields produce no artifact.
type Output struct {
	Code            []byte
	SourceMap       []byte
	Declarations    []byte
	DeclarationsMap []byte
	Warnings        []diagnostics.Diagnostic
}

// Compiler turns one source file into output. Implementations must be safe
// to call from many goroutines at once. A failed compile returns a
// *diagnostics.CompileError.
type Compiler interface {
	Compile(ctx context.Context, source []byte, path string, opts *CompileOptions) (*Output, error)
}

// DeclarationEmitter is implemented by compilers that can say whether they
// write declaration files. A compiler that does not implement it is taken
// to honor CompileOptions.Declarations.
type DeclarationEmitter interface {
	EmitsDeclarations() bool
}

func emitsDeclarations(c Compiler) bool {
	if d, ok := c.(DeclarationEmitter); ok {
		return d.EmitsDeclarations()
	}
	return true
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(ctx context.Context, source []byte, path string, opts *CompileOptions) (*Output, error)

// Compile implements Compiler
func (f CompilerFunc) Compile(ctx context.Context, source []byte, path string, opts *CompileOptions) (*Output, error) {
	return f(ctx, source, path, opts)
}

var sourceExtensions = map[string]struct{}{
	".ts": {}, ".tsx": {}, ".cts": {}, ".mts": {},
	".js": {}, ".jsx": {}, ".mjs": {}, ".cjs": {},
}

// Artifact suffixes appended to the mirrored output path.
const (
	ExtCode            = ".js"
	ExtSourceMap       = ".js.map"
	ExtDeclarations    = ".d.ts"
	ExtDeclarationsMap = ".d.ts.map"
)

// IsSource reports whether the file at path is compiled. Extensions match
// case-sensitively, so a.TS is not a source file. Declaration files such as
// foo.d.ts are inputs to the type checker only and are skipped.
func IsSource(path string) bool {
	ext := filepath.Ext(path)
	if _, ok := sourceExtensions[ext]; !ok {
		return false
	}
	return !strings.HasSuffix(strings.TrimSuffix(filepath.Base(path), ext), ".d")
}
