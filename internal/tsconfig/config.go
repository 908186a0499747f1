// Package tsconfig loads tsconfig.json files and flattens their extends
// chains into resolved configurations.
//
// Every field is optional. Resolution applies ancestors from the root of
// the chain down to the file itself with the nearest definition winning, so
// a resolved Config never has Extends set. Results are cached per canonical
// path in a Store.
package tsconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tailscale/hujson"
)

// JSX selects how JSX syntax is emitted.
type JSX string

const (
	JSXPreserve    JSX = "preserve"
	JSXReact       JSX = "react"
	JSXReactJSX    JSX = "react-jsx"
	JSXReactJSXDev JSX = "react-jsxdev"
	JSXReactNative JSX = "react-native"
)

// UnmarshalText rejects modes the compiler does not understand.
func (j *JSX) UnmarshalText(text []byte) error {
	switch v := JSX(strings.ToLower(string(text))); v {
	case JSXPreserve, JSXReact, JSXReactJSX, JSXReactJSXDev, JSXReactNative:
		*j = v
		return nil
	default:
		return fmt.Errorf("unknown jsx mode %q", text)
	}
}

// CompilerOptions holds the compiler-relevant subset of "compilerOptions".
// A nil field is absent and inherits from the parent config.
type CompilerOptions struct {
	RootDir                 *string             `json:"rootDir,omitempty" yaml:"rootDir,omitempty" toml:"rootDir,omitempty"`
	OutDir                  *string             `json:"outDir,omitempty" yaml:"outDir,omitempty" toml:"outDir,omitempty"`
	Target                  *string             `json:"target,omitempty" yaml:"target,omitempty" toml:"target,omitempty"`
	Module                  *string             `json:"module,omitempty" yaml:"module,omitempty" toml:"module,omitempty"`
	JSX                     *JSX                `json:"jsx,omitempty" yaml:"jsx,omitempty" toml:"jsx,omitempty"`
	JSXFactory              *string             `json:"jsxFactory,omitempty" yaml:"jsxFactory,omitempty" toml:"jsxFactory,omitempty"`
	JSXFragmentFactory      *string             `json:"jsxFragmentFactory,omitempty" yaml:"jsxFragmentFactory,omitempty" toml:"jsxFragmentFactory,omitempty"`
	JSXImportSource         *string             `json:"jsxImportSource,omitempty" yaml:"jsxImportSource,omitempty" toml:"jsxImportSource,omitempty"`
	ExperimentalDecorators  *bool               `json:"experimentalDecorators,omitempty" yaml:"experimentalDecorators,omitempty" toml:"experimentalDecorators,omitempty"`
	EmitDecoratorMetadata   *bool               `json:"emitDecoratorMetadata,omitempty" yaml:"emitDecoratorMetadata,omitempty" toml:"emitDecoratorMetadata,omitempty"`
	UseDefineForClassFields *bool               `json:"useDefineForClassFields,omitempty" yaml:"useDefineForClassFields,omitempty" toml:"useDefineForClassFields,omitempty"`
	SourceMap               *bool               `json:"sourceMap,omitempty" yaml:"sourceMap,omitempty" toml:"sourceMap,omitempty"`
	InlineSourceMap         *bool               `json:"inlineSourceMap,omitempty" yaml:"inlineSourceMap,omitempty" toml:"inlineSourceMap,omitempty"`
	InlineSources           *bool               `json:"inlineSources,omitempty" yaml:"inlineSources,omitempty" toml:"inlineSources,omitempty"`
	AllowJS                 *bool               `json:"allowJs,omitempty" yaml:"allowJs,omitempty" toml:"allowJs,omitempty"`
	Declaration             *bool               `json:"declaration,omitempty" yaml:"declaration,omitempty" toml:"declaration,omitempty"`
	DeclarationMap          *bool               `json:"declarationMap,omitempty" yaml:"declarationMap,omitempty" toml:"declarationMap,omitempty"`
	EmitDeclarationOnly     *bool               `json:"emitDeclarationOnly,omitempty" yaml:"emitDeclarationOnly,omitempty" toml:"emitDeclarationOnly,omitempty"`
	StripInternal           *bool               `json:"stripInternal,omitempty" yaml:"stripInternal,omitempty" toml:"stripInternal,omitempty"`
	IsolatedDeclarations    *bool               `json:"isolatedDeclarations,omitempty" yaml:"isolatedDeclarations,omitempty" toml:"isolatedDeclarations,omitempty"`
	RemoveComments          *bool               `json:"removeComments,omitempty" yaml:"removeComments,omitempty" toml:"removeComments,omitempty"`
	BaseURL                 *string             `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty" toml:"baseUrl,omitempty"`
	Paths                   map[string][]string `json:"paths,omitempty" yaml:"paths,omitempty" toml:"paths,omitempty"`
}

// Config is one tsconfig.json file, or the flattened result of a chain.
type Config struct {
	Extends         *string          `json:"extends,omitempty" yaml:"extends,omitempty" toml:"extends,omitempty"`
	CompilerOptions *CompilerOptions `json:"compilerOptions,omitempty" yaml:"compilerOptions,omitempty" toml:"compilerOptions,omitempty"`
	Include         []string         `json:"include,omitempty" yaml:"include,omitempty" toml:"include,omitempty"`
	Exclude         []string         `json:"exclude,omitempty" yaml:"exclude,omitempty" toml:"exclude,omitempty"`
}

// Parse decodes a tsconfig.json document. Comments and trailing commas are
// accepted. An empty "exclude" list is treated as absent.
func Parse(data []byte) (*Config, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.NewDecoder(bytes.NewReader(std)).Decode(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Exclude) == 0 {
		cfg.Exclude = nil
	}
	return &cfg, nil
}

// Options returns the compiler options, never nil.
func (c *Config) Options() *CompilerOptions {
	if c == nil || c.CompilerOptions == nil {
		return &CompilerOptions{}
	}
	return c.CompilerOptions
}
