package workspace

import (
	"errors"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Globs is a workspace membership declaration. Location is the file the
// patterns were read from, when known.
type Globs struct {
	Include  []string `json:"include" yaml:"include"`
	Exclude  []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	Location string   `json:"location,omitempty" yaml:"location,omitempty"`
}

// FromPatterns partitions a workspace pattern list. Entries starting with
// "!" are exclusions with the prefix removed; blank entries are dropped.
func FromPatterns(patterns []string) *Globs {
	g := &Globs{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(p, "!"); ok {
			if rest = strings.TrimSpace(rest); rest != "" {
				g.Exclude = append(g.Exclude, rest)
			}
			continue
		}
		g.Include = append(g.Include, p)
	}
	return g
}

// Empty reports whether there is nothing to expand.
func (g *Globs) Empty() bool {
	return g == nil || len(g.Include) == 0
}

var errStop = errors.New("stop")

// Packages lazily expands the include patterns against root and yields the
// absolute path of every matching directory that contains a package.json
// and matches no exclude pattern. A pattern that cannot be expanded yields
// a *GlobError and the other patterns still run. Directories matched by
// more than one include pattern are yielded once per pattern.
func (g *Globs) Packages(root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if g == nil {
			return
		}
		fsys := os.DirFS(root)

		excludes := make([]string, 0, len(g.Exclude))
		for _, ex := range g.Exclude {
			pat, err := normalizePattern(ex)
			if err != nil {
				if !yield("", &GlobError{Pattern: ex, Location: g.Location, Err: err}) {
					return
				}
				continue
			}
			excludes = append(excludes, pat)
		}

		for _, inc := range g.Include {
			pat, err := normalizePattern(inc)
			if err != nil {
				if !yield("", &GlobError{Pattern: inc, Location: g.Location, Err: err}) {
					return
				}
				continue
			}

			walkErr := doublestar.GlobWalk(fsys, pat, func(rel string, _ fs.DirEntry) error {
				if !isPackageDir(fsys, rel) || excluded(rel, excludes) {
					return nil
				}
				if !yield(filepath.Join(root, filepath.FromSlash(rel)), nil) {
					return errStop
				}
				return nil
			})
			if errors.Is(walkErr, errStop) {
				return
			}
			if walkErr != nil {
				if !yield("", &GlobError{Pattern: inc, Location: g.Location, Err: walkErr}) {
					return
				}
			}
		}
	}
}

// normalizePattern converts a workspace glob to the slash-separated,
// root-relative form io/fs expects.
func normalizePattern(p string) (string, error) {
	p = filepath.ToSlash(strings.TrimSpace(p))
	if path.IsAbs(p) {
		return "", errors.New("pattern must be relative to the project root")
	}
	p = path.Clean(p)
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", errors.New("pattern escapes the project root")
	}
	if !doublestar.ValidatePattern(p) {
		return "", doublestar.ErrBadPattern
	}
	return p, nil
}

func isPackageDir(fsys fs.FS, rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if seg == "node_modules" {
			return false
		}
	}
	info, err := fs.Stat(fsys, rel)
	if err != nil || !info.IsDir() {
		return false
	}
	manifest, err := fs.Stat(fsys, path.Join(rel, ManifestName))
	return err == nil && manifest.Mode().IsRegular()
}

func excluded(rel string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}
