package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/jsbuild/internal/diagnostics"
	"github.com/conneroisu/jsbuild/internal/testutils"
)

type recordingSink struct {
	mu      sync.Mutex
	batches []diagnostics.Batch
}

func (s *recordingSink) Send(b diagnostics.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, b)
}

func (s *recordingSink) paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, b.Path)
	}
	slices.Sort(out)
	return out
}


// fakeCompiler uppercases the source. Files containing "syntax error" fail
// with one diagnostic and files containing "warn" succeed with a warning.
func fakeCompiler(calls *atomic.Int64) Compiler {
	return CompilerFunc(func(ctx context.Context, source []byte, path string, opts *CompileOptions) (*Output, error) {
		if calls != nil {
			calls.Add(1)
		}
		text := string(source)
		if strings.Contains(text, "syntax error") {
			return nil, &diagnostics.CompileError{Diagnostics: []diagnostics.Diagnostic{{
				Severity: diagnostics.SeverityError,
				Code:     "parse",
				Message:  "unexpected token",
				File:     path,
				Line:     1,
				Column:   1,
			}}}
		}
		out := &Output{Code: []byte(strings.ToUpper(text))}
		if opts.Features.SourceMap {
			out.SourceMap = []byte(`{"version":3}`)
		}
		if opts.Declarations {
			out.Declarations = []byte("export {};\n")
		}
		if strings.Contains(text, "warn") {
			out.Warnings = []diagnostics.Diagnostic{{
				Severity: diagnostics.SeverityWarning,
				Message:  "suspicious code",
			}}
		}
		return out, nil
	})
}


func packageOptions(root string) *CompileOptions {
	return &CompileOptions{
		PackageRoot: root,
		SrcDir:      filepath.Join(root, "src"),
		OutDir:      filepath.Join(root, "dist"),
		Features:    Features{SourceMap: true},
	}
}

func TestWalkMirrorsSourceTree(t *testing.T) {
	root := t.TempDir()
	testutils.WriteFile(t, filepath.Join(root, "src", "index.ts"), "export const a = 1")
	testutils.WriteFile(t, filepath.Join(root, "src", "a", "b.ts"), "b")
	testutils.WriteFile(t, filepath.Join(root, "src", "a", "c", "d.tsx"), "d")
	testutils.WriteFile(t, filepath.Join(root, "src", "README.md"), "# docs")
	testutils.WriteFile(t, filepath.Join(root, "src", "Legacy.TS"), "skipped")
	testutils.WriteFile(t, filepath.Join(root, "src", "types.d.ts"), "declare const x: number")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "empty", "nested"), 0o755))

	sink := &recordingSink{}
	metrics := NewBuildMetrics()
	w := NewWalker(fakeCompiler(nil), sink, 4, metrics, nil)
	require.NoError(t, w.Walk(context.Background(), packageOptions(root)))

	assert.Empty(t, sink.batches)
	assert.Equal(t, []string{
		"a/",
		"a/b.js",
		"a/b.js.map",
		"a/c/",
		"a/c/d.js",
		"a/c/d.js.map",
		"empty/",
		"empty/nested/",
		"index.js",
		"index.js.map",
	}, testutils.ListTree(t, filepath.Join(root, "dist")))

	data, err := os.ReadFile(filepath.Join(root, "dist", "index.js"))
	require.NoError(t, err)
	assert.Equal(t, "EXPORT CONST A = 1", string(data))

	snap := metrics.GetSnapshot()
	assert.Equal(t, int64(3), snap.FilesCompiled)
	assert.Equal(t, int64(3), snap.FilesSkipped)
	assert.Equal(t, int64(5), snap.DirsCreated)
	assert.Equal(t, int64(6), snap.ArtifactsWritten)
}

func TestWalkWritesDeclarations(t *testing.T) {
	root := t.TempDir()
	testutils.WriteFile(t, filepath.Join(root, "src", "a.ts"), "a")

	opts := packageOptions(root)
	opts.Declarations = true
	opts.Features.SourceMap = false

	w := NewWalker(fakeCompiler(nil), &recordingSink{}, 2, nil, nil)
	require.NoError(t, w.Walk(context.Background(), opts))
	assert.Equal(t, []string{"a.d.ts", "a.js"}, testutils.ListTree(t, opts.OutDir))
}

func TestWalkIsolatesFailures(t *testing.T) {
	root := t.TempDir()
	good := filepath.Join(root, "src", "good.ts")
	bad := filepath.Join(root, "src", "bad.ts")
	testutils.WriteFile(t, good, "fine")
	testutils.WriteFile(t, bad, "syntax error")

	sink := &recordingSink{}
	metrics := NewBuildMetrics()
	w := NewWalker(fakeCompiler(nil), sink, 2, metrics, nil)
	require.NoError(t, w.Walk(context.Background(), packageOptions(root)))

	assert.Equal(t, []string{"good.js", "good.js.map"}, testutils.ListTree(t, filepath.Join(root, "dist")))
	require.Len(t, sink.batches, 1)

	batch := sink.batches[0]
	assert.Equal(t, bad, batch.Path)
	require.Len(t, batch.Diagnostics, 1)
	d := batch.Diagnostics[0]
	assert.Equal(t, diagnostics.SeverityError, d.Severity)
	require.NotNil(t, d.Source)
	assert.Equal(t, "syntax error", d.Source.Text)

	snap := metrics.GetSnapshot()
	assert.Equal(t, int64(1), snap.FilesCompiled)
	assert.Equal(t, int64(1), snap.FilesFailed)
}

func TestWalkReportsWarningsAndStillWrites(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "src", "w.ts")
	testutils.WriteFile(t, path, "warn me")

	sink := &recordingSink{}
	w := NewWalker(fakeCompiler(nil), sink, 1, nil, nil)
	require.NoError(t, w.Walk(context.Background(), packageOptions(root)))

	require.Len(t, sink.batches, 1)
	assert.Equal(t, path, sink.batches[0].Path)
	assert.Equal(t, diagnostics.SeverityWarning, sink.batches[0].Diagnostics[0].Severity)
	assert.Equal(t, path, sink.batches[0].Diagnostics[0].File)
	assert.FileExists(t, filepath.Join(root, "dist", "w.js"))
}

func TestWalkTreatsNilOutputAsFailure(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "src", "a.ts")
	testutils.WriteFile(t, path, "a")

	nothing := CompilerFunc(func(context.Context, []byte, string, *CompileOptions) (*Output, error) {
		return nil, nil
	})
	sink := &recordingSink{}
	w := NewWalker(nothing, sink, 1, nil, nil)
	require.NoError(t, w.Walk(context.Background(), packageOptions(root)))

	assert.Equal(t, []string{path}, sink.paths())
	assert.NoFileExists(t, filepath.Join(root, "dist", "a.js"))
}

func TestWalkHonorsExcludes(t *testing.T) {
	root := t.TempDir()
	testutils.WriteFile(t, filepath.Join(root, "src", "a.ts"), "a")
	testutils.WriteFile(t, filepath.Join(root, "src", "a.test.ts"), "syntax error")
	testutils.WriteFile(t, filepath.Join(root, "src", "fixtures", "f.ts"), "syntax error")

	opts := packageOptions(root)
	opts.Exclude = []string{"src/**/*.test.ts", "src/fixtures"}

	sink := &recordingSink{}
	w := NewWalker(fakeCompiler(nil), sink, 2, nil, nil)
	require.NoError(t, w.Walk(context.Background(), opts))

	assert.Empty(t, sink.batches)
	assert.Equal(t, []string{"a.js", "a.js.map"}, testutils.ListTree(t, opts.OutDir))
}

func TestWalkSkipsOutputAndDependencies(t *testing.T) {
	root := t.TempDir()
	testutils.WriteFile(t, filepath.Join(root, "a.ts"), "a")
	testutils.WriteFile(t, filepath.Join(root, "node_modules", "dep", "index.js"), "syntax error")
	testutils.WriteFile(t, filepath.Join(root, "dist", "stale.js"), "syntax error")

	var calls atomic.Int64
	opts := &CompileOptions{
		PackageRoot: root,
		SrcDir:      root,
		OutDir:      filepath.Join(root, "dist"),
	}
	sink := &recordingSink{}
	w := NewWalker(fakeCompiler(&calls), sink, 2, nil, nil)
	require.NoError(t, w.Walk(context.Background(), opts))

	assert.Empty(t, sink.batches)
	assert.Equal(t, int64(1), calls.Load())
	assert.FileExists(t, filepath.Join(root, "dist", "a.js"))
}

func TestWalkMissingSourceDir(t *testing.T) {
	root := t.TempDir()
	w := NewWalker(fakeCompiler(nil), &recordingSink{}, 1, nil, nil)
	err := w.Walk(context.Background(), packageOptions(root))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	testutils.WriteFile(t, filepath.Join(root, "src"), "not a dir")
	assert.Error(t, w.Walk(context.Background(), packageOptions(root)))
}

func TestWalkReportsUnwritableOutput(t *testing.T) {
	root := t.TempDir()
	testutils.WriteFile(t, filepath.Join(root, "src", "a", "b.ts"), "b")
	// a file where the mirrored directory should go
	testutils.WriteFile(t, filepath.Join(root, "dist", "a"), "")

	sink := &recordingSink{}
	w := NewWalker(fakeCompiler(nil), sink, 2, nil, nil)
	require.NoError(t, w.Walk(context.Background(), packageOptions(root)))

	assert.Equal(t, []string{filepath.Join(root, "src", "a")}, sink.paths())
}

func TestWalkCancelled(t *testing.T) {
	root := t.TempDir()
	testutils.WriteFile(t, filepath.Join(root, "src", "a.ts"), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	w := NewWalker(fakeCompiler(&calls), &recordingSink{}, 2, nil, nil)
	err := w.Walk(ctx, packageOptions(root))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), calls.Load())
}

func TestWalkManyFilesWithSmallPool(t *testing.T) {
	root := t.TempDir()
	const dirs, files = 8, 25
	for d := 0; d < dirs; d++ {
		for f := 0; f < files; f++ {
			name := filepath.Join(root, "src", "d"+string(rune('a'+d)), "f"+string(rune('a'+f))+".ts")
			content := "ok"
			if f == 0 {
				content = "syntax error"
			}
			testutils.WriteFile(t, name, content)
		}
	}

	var calls atomic.Int64
	sink := &recordingSink{}
	metrics := NewBuildMetrics()
	w := NewWalker(fakeCompiler(&calls), sink, 2, metrics, nil)
	require.NoError(t, w.Walk(context.Background(), packageOptions(root)))

	assert.Equal(t, int64(dirs*files), calls.Load())
	assert.Len(t, sink.batches, dirs)
	snap := metrics.GetSnapshot()
	assert.Equal(t, int64(dirs*(files-1)), snap.FilesCompiled)
	assert.Equal(t, int64(dirs), snap.FilesFailed)
	assert.Equal(t, int64(dirs*(files-1)*2), snap.ArtifactsWritten)
}

func TestNewWalkerDefaultsThreads(t *testing.T) {
	w := NewWalker(fakeCompiler(nil), &recordingSink{}, 0, nil, nil)
	assert.Positive(t, w.Threads())
	assert.Equal(t, 3, NewWalker(fakeCompiler(nil), &recordingSink{}, 3, nil, nil).Threads())
}
