package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/jsbuild/internal/build"
	"github.com/conneroisu/jsbuild/internal/config"
	"github.com/conneroisu/jsbuild/internal/diagnostics"
	"github.com/conneroisu/jsbuild/internal/logging"
	"github.com/conneroisu/jsbuild/internal/tsconfig"
	"github.com/conneroisu/jsbuild/internal/workspace"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Compile every package of the project",
	Long: `Compile every source file of the project into its output directory.

The project root is the nearest directory containing a package.json, or the
--project directory. When the root declares workspaces (the "workspaces" field
of package.json or a pnpm-workspace.yaml) every member package is built;
otherwise the root itself is the only package.

Failures are reported per file or per package and never stop the build. The
exit status is 1 when any error was reported and 2 when the build could not
start at all.

Examples:
  jsbuild build                        # Build the current project
  jsbuild build -t 4                   # Use four worker threads per package
  jsbuild build -p tsconfig.build.json # Use another root tsconfig
  jsbuild build --format json          # Print diagnostics as JSON lines`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	addBuildFlags(buildCmd)
}

// project is everything a command needs to work on the current project.
type project struct {
	cfg    *config.Config
	logger logging.Logger
	store  *tsconfig.Store
	ws     *workspace.Workspace
}

// loadProject loads the configuration and the workspace at the project
// root. Every error is fatal for the run.
func loadProject() (*project, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	root, err := projectRoot(cfg)
	if err != nil {
		return nil, err
	}

	p := &project{cfg: cfg, logger: logger}
	if p.ws, err = p.reload(root); err != nil {
		return nil, err
	}
	return p, nil
}

// projectRoot is the configured project directory, or the nearest
// directory above the working directory that holds a package.json.
func projectRoot(cfg *config.Config) (string, error) {
	if cfg.Project != "" {
		return cfg.Project, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", &ExitError{Code: ExitFatal, Err: err}
	}
	root, err := workspace.FindRoot(cwd)
	if err != nil {
		return "", &ExitError{Code: ExitFatal, Err: err}
	}
	return root, nil
}

// reload reads the workspace again with a fresh tsconfig cache.
func (p *project) reload(root string) (*workspace.Workspace, error) {
	p.store = tsconfig.NewStore(p.logger)
	ws, err := workspace.Load(p.store, workspace.LoadOptions{
		Root:     root,
		Tsconfig: p.cfg.Build.Tsconfig,
	})
	if err != nil {
		return nil, &ExitError{Code: ExitFatal, Err: err}
	}
	p.logger.Debug(context.Background(), "Loaded workspace", "root", ws.Root, "membership", ws.MembershipPath())
	return ws, nil
}

// build runs one build and prints its summary line.
func (p *project) build(ctx context.Context, cmd *cobra.Command) (build.Summary, error) {
	renderer, err := diagnostics.NewRenderer(p.cfg.Build.Format, p.cfg.Build.Color)
	if err != nil {
		return build.Summary{}, &ExitError{Code: ExitFatal, Err: err}
	}

	summary, err := build.Run(ctx, p.ws, build.RunOptions{
		Store:              p.store,
		Renderer:           renderer,
		Output:             cmd.ErrOrStderr(),
		Threads:            p.cfg.Build.Threads,
		PackageConcurrency: p.cfg.Build.PackageConcurrency,
		Logger:             p.logger,
	})
	if err != nil {
		return summary, err
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary.String())
	return summary, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := p.build(ctx, cmd)
	if err != nil {
		return &ExitError{Code: ExitFatal, Err: err}
	}
	if summary.Failed() {
		return &ExitError{Code: ExitErrors}
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
