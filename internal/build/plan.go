package build

import (
	"github.com/conneroisu/jsbuild/internal/tsconfig"
	"github.com/conneroisu/jsbuild/internal/workspace"
)

// PlannedPackage is one package of a workspace with the options it would
// be built with. Exactly one of Options and Err is set; Path is where a
// failure would be reported.
type PlannedPackage struct {
	Package *workspace.Package
	Options *CompileOptions
	Path    string
	Err     error
}

// PackageOptions derives the compile options for pkg. An unsupported
// target becomes a *workspace.PackageError against the package manifest
// that blames the tsconfig it came from.
func PackageOptions(pkg *workspace.Package) (*CompileOptions, error) {
	opts, err := NewCompileOptions(pkg.RootDir, pkg.Tsconfig)
	if err != nil {
		blame := pkg.TsconfigPath
		if blame == "" {
			blame = pkg.ManifestPath
		}
		return nil, &workspace.PackageError{Path: pkg.ManifestPath, Blame: blame, Err: err}
	}
	return opts, nil
}

// Plan enumerates the packages of ws in discovery order without compiling
// anything. The error is non-nil only when the membership declaration
// itself could not be read; unexpandable globs and broken packages are
// returned as entries with Err set, as is a broken root tsconfig in a
// workspace, which comes first.
func Plan(store *tsconfig.Store, ws *workspace.Workspace) ([]PlannedPackage, error) {
	globs, err := ws.Globs()
	if err != nil {
		return nil, err
	}

	if globs == nil {
		pkg, err := ws.RootPackage()
		if err != nil {
			return []PlannedPackage{failed(err, ws.ManifestPath)}, nil
		}
		return []PlannedPackage{plan(pkg)}, nil
	}

	var planned []PlannedPackage
	if ws.TsconfigErr != nil {
		planned = append(planned, PlannedPackage{Path: ws.TsconfigBlame(), Err: ws.TsconfigErr})
	}
	for dir, err := range globs.Packages(ws.Root) {
		if err != nil {
			planned = append(planned, PlannedPackage{Path: ws.MembershipPath(), Err: err})
			continue
		}
		pkg, err := workspace.NewPackage(store, dir, ws)
		if err != nil {
			planned = append(planned, failed(err, dir))
			continue
		}
		planned = append(planned, plan(pkg))
	}
	return planned, nil
}

func plan(pkg *workspace.Package) PlannedPackage {
	opts, err := PackageOptions(pkg)
	if err != nil {
		return PlannedPackage{Package: pkg, Path: pkg.ManifestPath, Err: err}
	}
	return PlannedPackage{Package: pkg, Options: opts, Path: pkg.ManifestPath}
}

func failed(err error, fallback string) PlannedPackage {
	return PlannedPackage{Path: failurePath(err, fallback), Err: err}
}
