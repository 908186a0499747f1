package build

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/conneroisu/jsbuild/internal/tsconfig"
)

// ErrUnsupportedTarget is returned for a "target" the compiler cannot emit.
var ErrUnsupportedTarget = errors.New("unsupported target")

// Target is the ECMAScript version to emit.
type Target int

const (
	TargetDefault Target = iota
	TargetES5
	TargetES2015
	TargetES2016
	TargetES2017
	TargetES2018
	TargetES2019
	TargetES2020
	TargetES2021
	TargetES2022
	TargetES2023
	TargetES2024
	TargetESNext
)

var targetNames = map[string]Target{
	"es5":    TargetES5,
	"es6":    TargetES2015,
	"es2015": TargetES2015,
	"es2016": TargetES2016,
	"es2017": TargetES2017,
	"es2018": TargetES2018,
	"es2019": TargetES2019,
	"es2020": TargetES2020,
	"es2021": TargetES2021,
	"es2022": TargetES2022,
	"es2023": TargetES2023,
	"es2024": TargetES2024,
	"esnext": TargetESNext,
}

// ParseTarget maps a tsconfig "target" value, ignoring case.
func ParseTarget(s string) (Target, error) {
	if t, ok := targetNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return TargetDefault, fmt.Errorf("%w: %q", ErrUnsupportedTarget, s)
}

// String returns the string representation of the target
func (t Target) String() string {
	switch t {
	case TargetDefault:
		return "default"
	case TargetES5:
		return "es5"
	case TargetESNext:
		return "esnext"
	default:
		return fmt.Sprintf("es%d", 2015+int(t-TargetES2015))
	}
}

// ModuleFormat is the module system of the emitted code.
type ModuleFormat int

const (
	// ModulePreserve keeps whatever import/export syntax the source uses.
	ModulePreserve ModuleFormat = iota
	ModuleESM
	ModuleCommonJS
	// ModuleNode picks the format from the file extension (.cts/.cjs are
	// CommonJS, .mts/.mjs are ES modules, everything else is preserved).
	ModuleNode
)

func parseModule(s string) ModuleFormat {
	switch strings.ToLower(s) {
	case "commonjs":
		return ModuleCommonJS
	case "es6", "es2015", "es2020", "es2022", "esnext":
		return ModuleESM
	case "node16", "node18", "nodenext":
		return ModuleNode
	default:
		return ModulePreserve
	}
}

// Features is the language feature bundle handed to the compiler. Zero
// values mean the compiler's defaults.
type Features struct {
	Target                  Target
	Module                  ModuleFormat
	JSX                     tsconfig.JSX
	JSXFactory              string
	JSXFragmentFactory      string
	JSXImportSource         string
	ExperimentalDecorators  bool
	EmitDecoratorMetadata   bool
	UseDefineForClassFields *bool
	SourceMap               bool
	InlineSourceMap         bool
	InlineSources           bool
	RemoveComments          bool
}

// CompileOptions is everything needed to compile one package. It is
// computed once per package and only read afterwards.
type CompileOptions struct {
	PackageRoot    string
	SrcDir         string
	OutDir         string
	Declarations   bool
	DeclarationMap bool
	StripInternal  bool
	Exclude        []string
	Features       Features
}

// NewCompileOptions derives the compile options for the package rooted at
// packageRoot. cfg may be nil. Only an unsupported target fails.
func NewCompileOptions(packageRoot string, cfg *tsconfig.Config) (*CompileOptions, error) {
	co := cfg.Options()
	opts := &CompileOptions{
		PackageRoot: packageRoot,
		SrcDir:      resolveDir(packageRoot, co.RootDir, "src"),
		OutDir:      resolveDir(packageRoot, co.OutDir, "dist"),
		Features: Features{
			SourceMap:               valueOr(co.SourceMap, true),
			InlineSourceMap:         valueOr(co.InlineSourceMap, false),
			InlineSources:           valueOr(co.InlineSources, false),
			ExperimentalDecorators:  valueOr(co.ExperimentalDecorators, false),
			EmitDecoratorMetadata:   valueOr(co.EmitDecoratorMetadata, false),
			UseDefineForClassFields: co.UseDefineForClassFields,
			JSX:                     valueOr(co.JSX, ""),
			JSXFactory:              valueOr(co.JSXFactory, ""),
			JSXFragmentFactory:      valueOr(co.JSXFragmentFactory, ""),
			JSXImportSource:         valueOr(co.JSXImportSource, ""),
			RemoveComments:          valueOr(co.RemoveComments, false),
		},
	}

	if co.Target != nil {
		t, err := ParseTarget(*co.Target)
		if err != nil {
			return nil, err
		}
		opts.Features.Target = t
	}
	if co.Module != nil {
		opts.Features.Module = parseModule(*co.Module)
	}

	opts.Declarations = valueOr(co.IsolatedDeclarations, false)
	opts.DeclarationMap = opts.Declarations && valueOr(co.DeclarationMap, false)
	opts.StripInternal = valueOr(co.StripInternal, false)

	if cfg != nil && len(cfg.Exclude) > 0 {
		opts.Exclude = append([]string(nil), cfg.Exclude...)
	}
	return opts, nil
}

func valueOr[T any](v *T, fallback T) T {
	if v != nil {
		return *v
	}
	return fallback
}

func resolveDir(root string, dir *string, fallback string) string {
	if dir == nil || *dir == "" {
		return filepath.Join(root, fallback)
	}
	if filepath.IsAbs(*dir) {
		return filepath.Clean(*dir)
	}
	return filepath.Join(root, *dir)
}

// OutputBase returns the artifact path for srcPath without its extension:
// the path mirrored from SrcDir into OutDir.
func (o *CompileOptions) OutputBase(srcPath string) (string, error) {
	rel, err := filepath.Rel(o.SrcDir, srcPath)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the source directory %s", srcPath, o.SrcDir)
	}
	return filepath.Join(o.OutDir, strings.TrimSuffix(rel, filepath.Ext(rel))), nil
}

// Excluded reports whether path matches one of the tsconfig exclude
// patterns, which are relative to the package root.
func (o *CompileOptions) Excluded(p string) bool {
	if len(o.Exclude) == 0 {
		return false
	}
	rel, err := filepath.Rel(o.PackageRoot, p)
	if err != nil {
		return false
	}
	return matchAny(o.Exclude, filepath.ToSlash(rel))
}

func normalizeExclude(pattern string) string {
	p := path.Clean(filepath.ToSlash(strings.TrimSpace(pattern)))
	return strings.TrimPrefix(p, "./")
}
