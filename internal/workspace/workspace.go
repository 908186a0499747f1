package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/jsbuild/internal/tsconfig"
)

// FindRoot walks upward from start to the nearest directory that contains
// a package.json.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		info, err := os.Stat(filepath.Join(dir, ManifestName))
		if err == nil && info.Mode().IsRegular() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (searched upward from %s)", ErrNoProjectRoot, start)
		}
		dir = parent
	}
}

// LoadOptions controls how a workspace is loaded.
type LoadOptions struct {
	// Root is the project root directory.
	Root string
	// Tsconfig overrides the root tsconfig.json when set.
	Tsconfig string
}

// Workspace is the project root and everything read from its top level.
// Errors that belong to a single file are kept on the Workspace rather
// than returned from Load so the build can report them against that file.
type Workspace struct {
	Root string

	ManifestPath string
	Manifest     *Manifest
	ManifestErr  error

	TsconfigPath string
	Tsconfig     *tsconfig.Config
	TsconfigErr  error

	PnpmPath     string
	PnpmPatterns []string
	PnpmErr      error
}

type pnpmWorkspace struct {
	Packages []string `yaml:"packages"`
}

// Load inspects the root directory with a single listing and reads the
// files found there. Only a failure to list the root is returned as an
// error; it is fatal for the whole run.
func Load(store *tsconfig.Store, opts LoadOptions) (*Workspace, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read project root %s: %w", root, err)
	}

	ws := &Workspace{Root: root, ManifestPath: filepath.Join(root, ManifestName)}
	var hasTsconfig bool
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch name := e.Name(); name {
		case TsconfigName:
			hasTsconfig = true
		case PnpmManifestNames[0], PnpmManifestNames[1]:
			if ws.PnpmPath == "" || name == PnpmManifestNames[0] {
				ws.PnpmPath = filepath.Join(root, name)
			}
		}
	}

	ws.Manifest, ws.ManifestErr = ReadManifest(ws.ManifestPath)

	switch {
	case opts.Tsconfig != "":
		ws.TsconfigPath = opts.Tsconfig
		if !filepath.IsAbs(ws.TsconfigPath) {
			ws.TsconfigPath = filepath.Join(root, ws.TsconfigPath)
		}
	case hasTsconfig:
		ws.TsconfigPath = filepath.Join(root, TsconfigName)
	}
	if ws.TsconfigPath != "" {
		ws.Tsconfig, ws.TsconfigErr = store.Resolve(ws.TsconfigPath)
	}

	if ws.PnpmPath != "" {
		ws.PnpmPatterns, ws.PnpmErr = readPnpmWorkspace(ws.PnpmPath)
	}
	return ws, nil
}

func readPnpmWorkspace(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc pnpmWorkspace
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPnpm, err)
	}
	return doc.Packages, nil
}

// Globs returns the workspace membership declaration, or nil when the
// project is a single package. The pnpm workspace file wins over the
// package.json "workspaces" field whenever it exists. The error is non-nil
// when the declaring file could not be read; MembershipPath names it.
func (ws *Workspace) Globs() (*Globs, error) {
	var patterns []string
	switch {
	case ws.PnpmPath != "":
		if ws.PnpmErr != nil {
			return nil, ws.PnpmErr
		}
		patterns = ws.PnpmPatterns
	case ws.ManifestErr != nil:
		return nil, ws.ManifestErr
	case ws.Manifest != nil && ws.Manifest.Workspaces != nil:
		patterns = ws.Manifest.Workspaces.Packages
	}

	g := FromPatterns(patterns)
	if g.Empty() {
		return nil, nil
	}
	g.Location = ws.MembershipPath()
	return g, nil
}

// MembershipPath is the file the workspace globs come from.
func (ws *Workspace) MembershipPath() string {
	if ws.PnpmPath != "" {
		return ws.PnpmPath
	}
	return ws.ManifestPath
}

// RootPackage returns the project root as a single package, reusing what
// Load already read.
func (ws *Workspace) RootPackage() (*Package, error) {
	if ws.ManifestErr != nil {
		return nil, &PackageError{Path: ws.ManifestPath, Err: ws.ManifestErr}
	}
	if ws.TsconfigErr != nil {
		return nil, tsconfigFailure(ws.ManifestPath, ws.TsconfigPath, ws.TsconfigErr)
	}
	return &Package{
		RootDir:      ws.Root,
		ManifestPath: ws.ManifestPath,
		Manifest:     ws.Manifest,
		TsconfigPath: ws.TsconfigPath,
		Tsconfig:     ws.Tsconfig,
		Workspace:    ws,
	}, nil
}

// TsconfigBlame is the file a root tsconfig failure is reported against:
// the config in the extends chain that failed, or the root tsconfig path.
func (ws *Workspace) TsconfigBlame() string {
	return blamePath(ws.TsconfigPath, ws.TsconfigErr)
}

func tsconfigFailure(manifestPath, tsconfigPath string, err error) *PackageError {
	return &PackageError{Path: manifestPath, Blame: blamePath(tsconfigPath, err), Err: err}
}

func blamePath(tsconfigPath string, err error) string {
	var cfgErr *tsconfig.Error
	if errors.As(err, &cfgErr) && cfgErr.Path != "" {
		return cfgErr.Path
	}
	return tsconfigPath
}
