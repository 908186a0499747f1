package build

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/conneroisu/jsbuild/internal/diagnostics"
	"github.com/conneroisu/jsbuild/internal/logging"
	"github.com/conneroisu/jsbuild/internal/tsconfig"
	"github.com/conneroisu/jsbuild/internal/workspace"
)

// RunOptions configures one build of a workspace.
type RunOptions struct {
	Compiler           Compiler
	Store              *tsconfig.Store
	Renderer           diagnostics.Renderer
	Output             io.Writer
	Threads            int
	PackageConcurrency int
	Logger             logging.Logger
}

// Summary is the outcome of a build.
type Summary struct {
	Counts   diagnostics.Counts
	Duration time.Duration
	Threads  int
	Metrics  MetricsSnapshot
}

// Failed reports whether any error was reported. Warnings never fail a build.
func (s Summary) Failed() bool {
	return s.Counts.HasErrors()
}

// String returns the one-line report printed at the end of a build
func (s Summary) String() string {
	ms := s.Duration.Milliseconds()
	if s.Counts.Errors == 0 && s.Counts.Warnings == 0 {
		return fmt.Sprintf("Finished in %dms using %d threads.", ms, s.Threads)
	}
	return fmt.Sprintf("Finished in %dms with %d errors and %d warnings using %d threads.",
		ms, s.Counts.Errors, s.Counts.Warnings, s.Threads)
}

// Run builds ws. The reporter drains diagnostics on its own goroutine for
// the whole run and the end-of-stream marker is sent once every package
// has been walked, so the returned counts cover every batch.
func Run(ctx context.Context, ws *workspace.Workspace, opts RunOptions) (Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Store == nil {
		opts.Store = tsconfig.NewStore(logger)
	}
	if opts.Compiler == nil {
		opts.Compiler = NewEsbuildCompiler()
	}
	if opts.Renderer == nil {
		opts.Renderer = diagnostics.NewTextRenderer(false)
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}

	start := time.Now()
	queue := diagnostics.NewQueue()
	done := diagnostics.NewReporter(queue, opts.Renderer, opts.Output, logger).Start()

	metrics := NewBuildMetrics()
	walker := NewWalker(opts.Compiler, queue, opts.Threads, metrics, logger)
	orch := NewOrchestrator(opts.Store, walker, queue, opts.PackageConcurrency, logger)

	err := orch.Run(ctx, ws)
	queue.Finish()
	counts := <-done

	summary := Summary{
		Counts:   counts,
		Duration: time.Since(start),
		Threads:  walker.Threads(),
		Metrics:  metrics.GetSnapshot(),
	}
	logger.Debug(ctx, "Build finished",
		"errors", counts.Errors,
		"warnings", counts.Warnings,
		"files_compiled", summary.Metrics.FilesCompiled,
		"files_failed", summary.Metrics.FilesFailed,
		"artifacts", summary.Metrics.ArtifactsWritten,
		"duration", summary.Duration)
	return summary, err
}
