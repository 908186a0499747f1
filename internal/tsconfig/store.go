package tsconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/conneroisu/jsbuild/internal/logging"
)

type entryState int

const (
	statePending entryState = iota
	stateResolved
	stateFailed
)

type entry struct {
	state  entryState
	config *Config
	err    error
}

// Stats describes the contents of a Store.
type Stats struct {
	Entries  int
	Resolved int
	Failed   int
	Parses   int64
}

// Store caches resolved configs by canonical path for the lifetime of one
// run. It is safe for concurrent use: lookups of settled entries share a
// read lock, and each resolution holds the write lock for the whole extends
// chain so a file is parsed at most once.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	parses  atomic.Int64
	logger  logging.Logger
}

// NewStore creates an empty store
func NewStore(logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Store{
		entries: make(map[string]*entry),
		logger:  logger.WithComponent("tsconfig"),
	}
}

// Resolve returns the flattened config for the file at path. The returned
// value is shared and must not be modified.
func (s *Store) Resolve(path string) (*Config, error) {
	canonical, err := Canonical(path)
	if err != nil {
		return nil, &Error{Kind: ErrIO, Path: path, Err: err}
	}

	s.mu.RLock()
	e, ok := s.entries[canonical]
	if ok && e.state != statePending {
		s.mu.RUnlock()
		return e.config, e.err
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(canonical, nil)
}

func (s *Store) resolveLocked(path string, chain []string) (*Config, error) {
	chain = append(chain, path)
	if e, ok := s.entries[path]; ok {
		if e.state == statePending {
			return nil, &Error{Kind: ErrCircularDependency, Path: path, Chain: chain}
		}
		return e.config, e.err
	}

	s.entries[path] = &entry{state: statePending}
	cfg, err := s.load(path, chain)
	s.settle(path, cfg, err)
	if err != nil {
		return nil, err
	}
	s.logger.Debug(context.Background(), "Resolved tsconfig", "path", path)
	return cfg, nil
}

func (s *Store) load(path string, chain []string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: ErrIO, Path: path, Err: err}
	}
	s.parses.Add(1)

	cfg, err := Parse(data)
	if err != nil {
		return nil, &Error{Kind: ErrParse, Path: path, Err: err}
	}
	if cfg.Extends == nil {
		return cfg, nil
	}

	parentPath, err := resolveExtends(filepath.Dir(path), *cfg.Extends)
	if err != nil {
		return nil, &Error{Kind: ErrIO, Path: path, Err: err}
	}
	parent, err := s.resolveLocked(parentPath, chain)
	if err != nil {
		return nil, err
	}
	return cfg.Merge(parent), nil
}

// settle moves a pending entry to its final state. Settling an entry twice
// is a bug in the store, not a user error.
func (s *Store) settle(path string, cfg *Config, err error) {
	e := s.entries[path]
	if e == nil || e.state != statePending {
		panic(fmt.Sprintf("tsconfig: entry %s settled twice", path))
	}
	if err != nil {
		e.state = stateFailed
		e.err = err
		return
	}
	e.state = stateResolved
	e.config = cfg
}

// Stats returns a snapshot of the cache.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Entries: len(s.entries), Parses: s.parses.Load()}
	for _, e := range s.entries {
		switch e.state {
		case stateResolved:
			st.Resolved++
		case stateFailed:
			st.Failed++
		}
	}
	return st
}

// Canonical returns the absolute, symlink-free form of path. The file
// must exist.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// resolveExtends locates the file named by an extends value. Relative and
// absolute specifiers are resolved against dir; anything else is looked up
// in node_modules directories from dir upward.
func resolveExtends(dir, ref string) (string, error) {
	if ref == "" {
		return "", errors.New("empty extends")
	}

	if filepath.IsAbs(ref) || strings.HasPrefix(ref, ".") {
		p := ref
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, ref)
		}
		if found, ok := firstFile(candidates(p)); ok {
			return Canonical(found)
		}
		return "", fmt.Errorf("extends %q: %w", ref, fs.ErrNotExist)
	}

	for d := dir; ; {
		base := filepath.Join(d, "node_modules", filepath.FromSlash(ref))
		if found, ok := firstFile(candidates(base)); ok {
			return Canonical(found)
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	return "", fmt.Errorf("extends %q: package not found in node_modules: %w", ref, fs.ErrNotExist)
}

func candidates(p string) []string {
	out := []string{p}
	if !strings.HasSuffix(p, ".json") {
		out = append(out, p+".json")
	}
	return append(out, filepath.Join(p, "tsconfig.json"))
}

func firstFile(paths []string) (string, bool) {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}
