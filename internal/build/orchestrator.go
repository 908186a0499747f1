package build

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/jsbuild/internal/diagnostics"
	"github.com/conneroisu/jsbuild/internal/logging"
	"github.com/conneroisu/jsbuild/internal/tsconfig"
	"github.com/conneroisu/jsbuild/internal/workspace"
)

// Orchestrator builds every package of a workspace. Failures of a single
// package are sent to the sink as one batch and never stop the others.
type Orchestrator struct {
	store       *tsconfig.Store
	walker      *Walker
	sink        diagnostics.Sink
	concurrency int
	metrics     *BuildMetrics
	logger      logging.Logger
}

// NewOrchestrator creates an orchestrator. concurrency is the number of
// packages walked at the same time; values below one mean one.
func NewOrchestrator(store *tsconfig.Store, walker *Walker, sink diagnostics.Sink, concurrency int, logger logging.Logger) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Orchestrator{
		store:       store,
		walker:      walker,
		sink:        sink,
		concurrency: concurrency,
		metrics:     walker.metrics,
		logger:      logger.WithComponent("orchestrator"),
	}
}

// Run builds the workspace's member packages, or the root itself when the
// workspace declares none. The only error returned is ctx's.
func (o *Orchestrator) Run(ctx context.Context, ws *workspace.Workspace) error {
	globs, err := ws.Globs()
	if err != nil {
		o.sink.Send(diagnostics.ErrorBatch(ws.MembershipPath(), err))
		return ctx.Err()
	}

	if globs == nil {
		o.logger.Debug(ctx, "Building single package", "root", ws.Root)
		pkg, err := ws.RootPackage()
		if err != nil {
			o.fail(err, ws.ManifestPath)
			return ctx.Err()
		}
		o.buildPackage(ctx, pkg)
		return ctx.Err()
	}

	o.logger.Debug(ctx, "Building workspace", "root", ws.Root,
		"include", globs.Include, "exclude", globs.Exclude)

	// Members resolve their own tsconfig, so a broken root config fails
	// only itself.
	if ws.TsconfigErr != nil {
		o.sink.Send(diagnostics.ErrorBatch(ws.TsconfigBlame(), ws.TsconfigErr))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for dir, err := range globs.Packages(ws.Root) {
		if gctx.Err() != nil {
			break
		}
		if err != nil {
			o.sink.Send(diagnostics.ErrorBatch(ws.MembershipPath(), err))
			continue
		}
		g.Go(func() error {
			pkg, err := workspace.NewPackage(o.store, dir, ws)
			if err != nil {
				o.fail(err, dir)
				return nil
			}
			o.buildPackage(gctx, pkg)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (o *Orchestrator) buildPackage(ctx context.Context, pkg *workspace.Package) {
	opts, err := PackageOptions(pkg)
	if err != nil {
		o.fail(err, pkg.ManifestPath)
		return
	}

	if opts.Declarations && !emitsDeclarations(o.walker.compiler) {
		o.sink.Send(declarationsSkipped(pkg))
	}

	perf := logging.StartOperation(o.logger, "package")
	if err := o.walker.Walk(ctx, opts); err != nil {
		if ctx.Err() != nil {
			return
		}
		o.fail(err, opts.SrcDir)
		return
	}
	o.metrics.RecordPackage(true)
	perf.End(ctx, "package", pkg.Name(), "src", opts.SrcDir, "out", opts.OutDir)
}

// fail reports err as the single batch for a package. The batch path comes
// from a *workspace.PackageError when err is one, otherwise fallback.
func (o *Orchestrator) fail(err error, fallback string) {
	o.metrics.RecordPackage(false)
	o.sink.Send(diagnostics.ErrorBatch(failurePath(err, fallback), err))
}

// declarationsSkipped warns once per package that asked for declaration
// files the compiler cannot write.
func declarationsSkipped(pkg *workspace.Package) diagnostics.Batch {
	path := pkg.TsconfigPath
	if path == "" {
		path = pkg.ManifestPath
	}
	return diagnostics.NewBatch(path, diagnostics.Diagnostic{
		Severity: diagnostics.SeverityWarning,
		Code:     "declarations",
		Message:  "isolatedDeclarations is set but the compiler does not emit declaration files; no .d.ts files are written",
		File:     path,
	})
}

func failurePath(err error, fallback string) string {
	var pe *workspace.PackageError
	if errors.As(err, &pe) {
		return pe.Path
	}
	return fallback
}
