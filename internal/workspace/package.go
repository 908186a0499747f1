package workspace

import (
	"os"
	"path/filepath"

	"github.com/conneroisu/jsbuild/internal/tsconfig"
)

// Package is one compilation unit. Workspace is a plain back-reference to
// the workspace that produced it; the workspace outlives its packages for
// the duration of a run.
type Package struct {
	RootDir      string
	ManifestPath string
	Manifest     *Manifest
	TsconfigPath string
	Tsconfig     *tsconfig.Config
	Workspace    *Workspace
}

// Name is the manifest name, falling back to the directory name.
func (p *Package) Name() string {
	if p.Manifest != nil && p.Manifest.Name != "" {
		return p.Manifest.Name
	}
	return filepath.Base(p.RootDir)
}

// NewPackage reads the package in dir. Any failure is a *PackageError
// reported against the package's manifest.
func NewPackage(store *tsconfig.Store, dir string, ws *Workspace) (*Package, error) {
	manifestPath := filepath.Join(dir, ManifestName)
	manifest, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, &PackageError{Path: manifestPath, Err: err}
	}

	pkg := &Package{
		RootDir:      dir,
		ManifestPath: manifestPath,
		Manifest:     manifest,
		Workspace:    ws,
	}

	tsconfigPath := filepath.Join(dir, TsconfigName)
	if info, err := os.Stat(tsconfigPath); err == nil && !info.IsDir() {
		cfg, err := store.Resolve(tsconfigPath)
		if err != nil {
			return nil, tsconfigFailure(manifestPath, tsconfigPath, err)
		}
		pkg.TsconfigPath = tsconfigPath
		pkg.Tsconfig = cfg
	}
	return pkg, nil
}
