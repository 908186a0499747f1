package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/jsbuild/internal/diagnostics"
	"github.com/conneroisu/jsbuild/internal/logging"
)

// Walker compiles one package's source tree into its output tree using a
// bounded pool of goroutines.
type Walker struct {
	compiler Compiler
	sink     diagnostics.Sink
	threads  int
	metrics  *BuildMetrics
	logger   logging.Logger
}

// NewWalker creates a walker. threads <= 0 means one per CPU.
func NewWalker(compiler Compiler, sink diagnostics.Sink, threads int, metrics *BuildMetrics, logger logging.Logger) *Walker {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if metrics == nil {
		metrics = NewBuildMetrics()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Walker{
		compiler: compiler,
		sink:     sink,
		threads:  threads,
		metrics:  metrics,
		logger:   logger.WithComponent("walker"),
	}
}

// Threads is the size of the pool used for each walk.
func (w *Walker) Threads() int {
	return w.threads
}

// Walk mirrors opts.SrcDir into opts.OutDir and compiles every source file.
// Failures for individual files and directories are sent to the sink and
// never stop the walk. Walk only returns an error when the source
// directory itself is unusable or ctx is cancelled.
func (w *Walker) Walk(ctx context.Context, opts *CompileOptions) error {
	info, err := os.Stat(opts.SrcDir)
	if err != nil {
		return fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source directory %s is not a directory", opts.SrcDir)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.threads)

	run := &walkRun{Walker: w, ctx: gctx, group: g, opts: opts}
	run.schedule(func() { run.visitDir(opts.SrcDir, opts.OutDir) })

	_ = g.Wait()
	return ctx.Err()
}

type walkRun struct {
	*Walker
	ctx   context.Context
	group *errgroup.Group
	opts  *CompileOptions
}

// schedule runs fn on the pool, or inline when the pool is saturated so a
// task never blocks waiting for a slot held by its own ancestors.
func (r *walkRun) schedule(fn func()) {
	task := func() error {
		if r.ctx.Err() == nil {
			fn()
		}
		return nil
	}
	if !r.group.TryGo(task) {
		_ = task()
	}
}

func (r *walkRun) visitDir(srcDir, outDir string) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		r.sink.Send(diagnostics.ErrorBatch(srcDir, fmt.Errorf("create output directory: %w", err)))
		return
	}
	r.metrics.RecordDir()

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		r.sink.Send(diagnostics.ErrorBatch(srcDir, fmt.Errorf("read directory: %w", err)))
		return
	}

	for _, entry := range entries {
		if r.ctx.Err() != nil {
			return
		}
		srcPath := filepath.Join(srcDir, entry.Name())
		isDir, isFile := entryKind(srcPath, entry)

		switch {
		case isDir:
			if r.skipDir(srcPath, entry.Name()) {
				continue
			}
			outPath := filepath.Join(outDir, entry.Name())
			r.schedule(func() { r.visitDir(srcPath, outPath) })
		case isFile && IsSource(srcPath) && !r.opts.Excluded(srcPath):
			r.schedule(func() { r.visitFile(srcPath) })
		default:
			r.metrics.RecordSkip()
		}
	}
}

// entryKind resolves symlinks so linked directories and files are walked
// like regular ones.
func entryKind(path string, entry os.DirEntry) (isDir, isFile bool) {
	if entry.Type()&os.ModeSymlink == 0 {
		return entry.IsDir(), entry.Type().IsRegular()
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, false
	}
	return info.IsDir(), info.Mode().IsRegular()
}

func (r *walkRun) skipDir(path, name string) bool {
	if name == "node_modules" {
		return true
	}
	if within(path, r.opts.OutDir) {
		return true
	}
	return r.opts.Excluded(path)
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

func (r *walkRun) visitFile(srcPath string) {
	source, err := os.ReadFile(srcPath)
	if err != nil {
		r.metrics.RecordFailure()
		r.sink.Send(diagnostics.ErrorBatch(srcPath, fmt.Errorf("read source: %w", err)))
		return
	}

	base, err := r.opts.OutputBase(srcPath)
	if err != nil {
		r.metrics.RecordFailure()
		r.sink.Send(diagnostics.ErrorBatch(srcPath, err))
		return
	}

	start := time.Now()
	out, err := r.compiler.Compile(r.ctx, source, srcPath, r.opts)
	if err == nil && out == nil {
		err = errors.New("compiler returned no output")
	}
	r.metrics.RecordCompile(time.Since(start), err == nil)

	src := &diagnostics.Source{Name: srcPath, Text: string(source)}
	if err != nil {
		r.sink.Send(diagnostics.NewBatch(srcPath, diagnostics.FromError(err)...).WithSource(src))
		return
	}
	if len(out.Warnings) > 0 {
		warnings := append([]diagnostics.Diagnostic(nil), out.Warnings...)
		r.sink.Send(diagnostics.NewBatch(srcPath, warnings...).WithSource(src))
	}

	if err := writeArtifacts(out.artifacts(base), r.metrics); err != nil {
		r.sink.Send(diagnostics.ErrorBatch(srcPath, err))
		return
	}
	r.logger.Debug(r.ctx, "Compiled", "path", srcPath, "output", base+ExtCode)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(normalizeExclude(p), rel); ok {
			return true
		}
	}
	return false
}
