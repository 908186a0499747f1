package build

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/conneroisu/jsbuild/internal/diagnostics"
	"github.com/conneroisu/jsbuild/internal/tsconfig"
)

// EsbuildCompiler transpiles TypeScript and JavaScript with esbuild's
// transform API. It strips types and lowers syntax but does not type-check
// and never produces declaration files.
type EsbuildCompiler struct{}

// NewEsbuildCompiler creates an esbuild-backed compiler
func NewEsbuildCompiler() *EsbuildCompiler {
	return &EsbuildCompiler{}
}

var esbuildTargets = map[Target]api.Target{
	TargetDefault: api.ESNext,
	TargetES5:     api.ES5,
	TargetES2015:  api.ES2015,
	TargetES2016:  api.ES2016,
	TargetES2017:  api.ES2017,
	TargetES2018:  api.ES2018,
	TargetES2019:  api.ES2019,
	TargetES2020:  api.ES2020,
	TargetES2021:  api.ES2021,
	TargetES2022:  api.ES2022,
	TargetES2023:  api.ES2023,
	TargetES2024:  api.ES2024,
	TargetESNext:  api.ESNext,
}

// EmitsDeclarations implements DeclarationEmitter
func (c *EsbuildCompiler) EmitsDeclarations() bool {
	return false
}

// Compile implements Compiler
func (c *EsbuildCompiler) Compile(ctx context.Context, source []byte, path string, opts *CompileOptions) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := opts.OutputBase(path)
	if err != nil {
		return nil, err
	}
	sourcefile, err := filepath.Rel(filepath.Dir(base), path)
	if err != nil {
		sourcefile = path
	}

	topts := api.TransformOptions{
		Loader:      loaderFor(path),
		Target:      esbuildTargets[opts.Features.Target],
		Format:      formatFor(opts.Features.Module, path),
		Sourcefile:  filepath.ToSlash(sourcefile),
		TsconfigRaw: tsconfigRaw(opts.Features),
	}
	applyJSX(&topts, opts.Features)

	switch {
	case opts.Features.InlineSourceMap:
		topts.Sourcemap = api.SourceMapInline
	case opts.Features.SourceMap:
		topts.Sourcemap = api.SourceMapExternal
	}
	if opts.Features.InlineSources {
		topts.SourcesContent = api.SourcesContentInclude
	} else {
		topts.SourcesContent = api.SourcesContentExclude
	}
	if opts.Features.RemoveComments {
		topts.LegalComments = api.LegalCommentsNone
	}

	result := api.Transform(string(source), topts)
	if len(result.Errors) > 0 {
		return nil, &diagnostics.CompileError{Diagnostics: convertMessages(path, result.Errors, diagnostics.SeverityError)}
	}

	out := &Output{
		Code:     result.Code,
		Warnings: convertMessages(path, result.Warnings, diagnostics.SeverityWarning),
	}
	if topts.Sourcemap == api.SourceMapExternal && len(result.Map) > 0 {
		out.SourceMap = result.Map
		out.Code = append(out.Code, []byte("//# sourceMappingURL="+filepath.Base(base)+ExtSourceMap+"\n")...)
	}
	return out, nil
}

func loaderFor(path string) api.Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".cts", ".mts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".jsx":
		return api.LoaderJSX
	default:
		return api.LoaderJS
	}
}

func formatFor(module ModuleFormat, path string) api.Format {
	switch module {
	case ModuleESM:
		return api.FormatESModule
	case ModuleCommonJS:
		return api.FormatCommonJS
	case ModuleNode:
		switch strings.ToLower(filepath.Ext(path)) {
		case ".cts", ".cjs":
			return api.FormatCommonJS
		case ".mts", ".mjs":
			return api.FormatESModule
		}
	}
	return api.FormatDefault
}

func applyJSX(topts *api.TransformOptions, f Features) {
	switch f.JSX {
	case tsconfig.JSXPreserve, tsconfig.JSXReactNative:
		topts.JSX = api.JSXPreserve
	case tsconfig.JSXReactJSX:
		topts.JSX = api.JSXAutomatic
	case tsconfig.JSXReactJSXDev:
		topts.JSX = api.JSXAutomatic
		topts.JSXDev = true
	case tsconfig.JSXReact:
		topts.JSX = api.JSXTransform
	}
	topts.JSXFactory = f.JSXFactory
	topts.JSXFragment = f.JSXFragmentFactory
	topts.JSXImportSource = f.JSXImportSource
}

type rawCompilerOptions struct {
	ExperimentalDecorators  *bool `json:"experimentalDecorators,omitempty"`
	UseDefineForClassFields *bool `json:"useDefineForClassFields,omitempty"`
}

// tsconfigRaw passes the class-field settings esbuild only reads from a
// tsconfig document.
func tsconfigRaw(f Features) string {
	raw := rawCompilerOptions{UseDefineForClassFields: f.UseDefineForClassFields}
	if f.ExperimentalDecorators {
		raw.ExperimentalDecorators = &f.ExperimentalDecorators
	}
	if raw == (rawCompilerOptions{}) {
		return ""
	}
	data, err := json.Marshal(map[string]rawCompilerOptions{"compilerOptions": raw})
	if err != nil {
		return ""
	}
	return string(data)
}

func convertMessages(path string, msgs []api.Message, severity diagnostics.Severity) []diagnostics.Diagnostic {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]diagnostics.Diagnostic, 0, len(msgs))
	for _, m := range msgs {
		d := diagnostics.Diagnostic{
			Severity: severity,
			Code:     m.ID,
			Message:  m.Text,
			File:     path,
		}
		if loc := m.Location; loc != nil {
			d.Line = loc.Line
			d.Column = loc.Column + 1
			d.Length = loc.Length
			d.Suggestion = loc.Suggestion
		}
		if d.Suggestion == "" && len(m.Notes) > 0 {
			d.Suggestion = m.Notes[0].Text
		}
		out = append(out, d)
	}
	return out
}
