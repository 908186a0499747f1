package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/jsbuild/internal/build"
	"github.com/conneroisu/jsbuild/internal/watcher"
	"github.com/conneroisu/jsbuild/internal/workspace"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Build, then rebuild whenever the project changes",
	Long: `Build the project, then watch the project root and rebuild everything after
each burst of changes to source files, package.json, tsconfig files or the pnpm
workspace file. Output directories, node_modules and .git are never watched.

Examples:
  jsbuild watch                        # Watch the current project
  jsbuild watch --debounce 1s          # Wait a second after the last change`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addBuildFlags(watchCmd)
	addWatchFlags(watchCmd)
}

// projectFileFilter accepts the files whose change can alter a build.
var projectFileFilter = watcher.AnyFilter(
	watcher.FileFilter(build.IsSource),
	watcher.ExtensionFilter(".json"),
	watcher.NameFilter(workspace.PnpmManifestNames...),
)

func runWatch(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := p.build(ctx, cmd); err != nil {
		return &ExitError{Code: ExitFatal, Err: err}
	}

	root := p.ws.Root
	fw, err := watcher.NewFileWatcher(root, p.cfg.Watch.Debounce, p.logger)
	if err != nil {
		return &ExitError{Code: ExitFatal, Err: err}
	}
	defer fw.Stop()

	if err := fw.AddIgnore(p.cfg.Watch.Ignore...); err != nil {
		return &ExitError{Code: ExitFatal, Err: err}
	}
	if err := ignoreOutputDirs(fw, p); err != nil {
		return &ExitError{Code: ExitFatal, Err: err}
	}
	fw.AddFilter(projectFileFilter)

	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		for _, e := range events {
			p.logger.Info(ctx, "Change detected", "type", e.Type.String(), "path", e.Rel)
		}
		ws, err := p.reload(root)
		if err != nil {
			return err
		}
		p.ws = ws
		if err := ignoreOutputDirs(fw, p); err != nil {
			p.logger.Warn(ctx, err, "Failed to ignore output directories")
		}
		_, err = p.build(ctx, cmd)
		return err
	})

	if err := fw.AddRecursive(root); err != nil {
		return &ExitError{Code: ExitFatal, Err: err}
	}
	if err := fw.Start(ctx); err != nil {
		return &ExitError{Code: ExitFatal, Err: err}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes. Press Ctrl+C to stop.\n", root)
	<-ctx.Done()
	return nil
}

// ignoreOutputDirs stops the watcher from reacting to the artifacts the
// build writes. Output directories outside the root are never watched.
func ignoreOutputDirs(fw *watcher.FileWatcher, p *project) error {
	planned, err := build.Plan(p.store, p.ws)
	if err != nil {
		// the build reports the broken membership file itself
		return nil
	}
	for _, pp := range planned {
		if pp.Options == nil {
			continue
		}
		rel, err := filepath.Rel(p.ws.Root, pp.Options.OutDir)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		rel = filepath.ToSlash(rel)
		if err := fw.AddIgnore(rel, rel+"/**"); err != nil {
			return err
		}
	}
	return nil
}
