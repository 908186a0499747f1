// Package workspace finds the project root, decides whether it is a
// monorepo, and enumerates the member packages declared by its workspace
// globs.
package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const (
	// ManifestName is the file that marks a directory as a package.
	ManifestName = "package.json"
	// TsconfigName is the per-package compiler configuration file.
	TsconfigName = "tsconfig.json"
)

// PnpmManifestNames are the pnpm workspace files, in order of preference.
var PnpmManifestNames = []string{"pnpm-workspace.yaml", "pnpm-workspace.yml"}

// Manifest is the part of package.json the build cares about.
type Manifest struct {
	Name       string      `json:"name,omitempty" yaml:"name,omitempty"`
	Version    string      `json:"version,omitempty" yaml:"version,omitempty"`
	Private    bool        `json:"private,omitempty" yaml:"private,omitempty"`
	Workspaces *Workspaces `json:"workspaces,omitempty" yaml:"workspaces,omitempty"`
}

// Workspaces is the "workspaces" field, which is either an array of globs
// or an object with a "packages" array.
type Workspaces struct {
	Packages []string `json:"packages" yaml:"packages"`
	Nohoist  []string `json:"nohoist,omitempty" yaml:"nohoist,omitempty"`
}

// UnmarshalJSON accepts both the array and the object form.
func (w *Workspaces) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &w.Packages)
	}
	type plain Workspaces
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("workspaces must be an array or an object with packages: %w", err)
	}
	*w = Workspaces(p)
	return nil
}

// ParseManifest decodes package.json content.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ReadManifest reads and decodes the package.json at path. A missing file
// is reported as ErrNoManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoManifest, path)
		}
		return nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, path, err)
	}
	return m, nil
}
