package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/jsbuild/internal/config"
	"github.com/conneroisu/jsbuild/internal/testutils"
	"github.com/conneroisu/jsbuild/internal/tsconfig"
)

// execute runs the command tree with args after restoring every flag to
// its default, and returns what was written to stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	viper.Reset()
	cfgFile = ""

	var reset func(c *cobra.Command)
	reset = func(c *cobra.Command) {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
		for _, sub := range c.Commands() {
			reset(sub)
		}
	}
	reset(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		viper.Reset()
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}


func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	return exitErr.Code
}

func singlePackage(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testutils.WriteFile(t, filepath.Join(root, "package.json"), `{"name": "solo"}`)
	testutils.WriteFile(t, filepath.Join(root, "tsconfig.json"), `{"compilerOptions": {"sourceMap": false}}`)
	testutils.WriteFile(t, filepath.Join(root, "src", "index.ts"), "export const answer: number = 42;\n")
	testutils.WriteFile(t, filepath.Join(root, "src", "util", "math.ts"), "export function double(n: number): number { return n * 2; }\n")
	return root
}

func monorepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testutils.WriteFile(t, filepath.Join(root, "package.json"), `{"private": true, "workspaces": ["packages/*"]}`)
	testutils.WriteFile(t, filepath.Join(root, "tsconfig.base.json"), `{"compilerOptions": {"outDir": "lib", "target": "es2020"}}`)
	testutils.WriteFile(t, filepath.Join(root, "packages", "a", "package.json"), `{"name": "@repo/a"}`)
	testutils.WriteFile(t, filepath.Join(root, "packages", "a", "tsconfig.json"), `{"extends": "../../tsconfig.base.json"}`)
	testutils.WriteFile(t, filepath.Join(root, "packages", "a", "src", "index.ts"), "export const a = 1;\n")
	testutils.WriteFile(t, filepath.Join(root, "packages", "b", "package.json"), `{"name": "@repo/b"}`)
	testutils.WriteFile(t, filepath.Join(root, "packages", "b", "src", "index.ts"), "export const b = 2;\n")
	return root
}

func TestBuildCommand(t *testing.T) {
	root := singlePackage(t)

	stdout, _, err := execute(t, "build", "--project", root, "--color=false")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Finished in ")
	assert.Contains(t, stdout, "threads.")
	assert.NotContains(t, stdout, "errors")
	assert.FileExists(t, filepath.Join(root, "dist", "index.js"))
	assert.FileExists(t, filepath.Join(root, "dist", "util", "math.js"))
	assert.NoFileExists(t, filepath.Join(root, "dist", "index.js.map"))
}

func TestRootCommandBuildsByDefault(t *testing.T) {
	root := singlePackage(t)

	stdout, _, err := execute(t, "--project", root, "-t", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "using 2 threads.")
	assert.FileExists(t, filepath.Join(root, "dist", "index.js"))
}

func TestBuildCommandReportsErrors(t *testing.T) {
	root := singlePackage(t)
	testutils.WriteFile(t, filepath.Join(root, "src", "broken.ts"), "const = ;\n")

	stdout, stderr, err := execute(t, "build", "--project", root, "--format", "json")
	assert.Equal(t, ExitErrors, exitCode(t, err))
	assert.Contains(t, stdout, "errors and 0 warnings")
	assert.FileExists(t, filepath.Join(root, "dist", "index.js"))
	assert.NoFileExists(t, filepath.Join(root, "dist", "broken.js"))

	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	require.NotEmpty(t, lines)
	var d struct {
		Severity string `json:"severity"`
		File     string `json:"file"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &d))
	assert.Equal(t, "error", d.Severity)
	assert.Equal(t, filepath.Join(root, "src", "broken.ts"), d.File)
}

func TestBuildCommandWorkspace(t *testing.T) {
	root := monorepo(t)

	_, _, err := execute(t, "build", "--project", root, "--package-concurrency", "2")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "packages", "a", "lib", "index.js"))
	assert.FileExists(t, filepath.Join(root, "packages", "b", "dist", "index.js"))
	assert.NoDirExists(t, filepath.Join(root, "dist"))
}

func TestBuildCommandWorkspaceMissingTsconfig(t *testing.T) {
	root := monorepo(t)

	stdout, stderr, err := execute(t, "build", "--project", root, "-p", "nope.json", "--format", "json")
	assert.Equal(t, ExitErrors, exitCode(t, err))
	assert.Contains(t, stderr, "nope.json")
	assert.Contains(t, stdout, "1 errors and 0 warnings")
	assert.FileExists(t, filepath.Join(root, "packages", "b", "dist", "index.js"))
}

func TestBuildCommandFatalErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	_, _, err := execute(t, "build", "--project", missing)
	assert.Equal(t, ExitFatal, exitCode(t, err))

	_, _, err = execute(t, "build", "--project", singlePackage(t), "--package-concurrency", "0")
	assert.Equal(t, ExitFatal, exitCode(t, err))
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestBuildCommandRejectsUnknownFormat(t *testing.T) {
	_, _, err := execute(t, "build", "--project", singlePackage(t), "--format", "jsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "json"?`)
}

func TestListCommand(t *testing.T) {
	root := monorepo(t)

	stdout, _, err := execute(t, "list", "--project", root, "-f", "json")
	require.NoError(t, err)

	var entries []packageEntry
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, packageEntry{
		Name:     "@repo/a",
		Root:     "packages/a",
		Tsconfig: "packages/a/tsconfig.json",
		Src:      "packages/a/src",
		Out:      "packages/a/lib",
		Target:   "es2020",
	}, entries[0])
	assert.Equal(t, "packages/b/dist", entries[1].Out)
	assert.Equal(t, "default", entries[1].Target)

	stdout, _, err = execute(t, "list", "--project", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "NAME")
	assert.Contains(t, stdout, "@repo/b")

	stdout, _, err = execute(t, "list", "--project", root, "-f", "yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "@repo/a")
	assert.Contains(t, stdout, "out: packages/a/lib")
}

func TestListCommandShowsBrokenPackages(t *testing.T) {
	root := monorepo(t)
	testutils.WriteFile(t, filepath.Join(root, "packages", "b", "tsconfig.json"), `{"compilerOptions": {"target": "es3"}}`)

	stdout, _, err := execute(t, "list", "--project", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "unsupported target")
	assert.Contains(t, stdout, "packages/a/lib")
}

func TestConfigTsconfigCommand(t *testing.T) {
	root := monorepo(t)
	pkg := filepath.Join(root, "packages", "a")

	stdout, _, err := execute(t, "config", "tsconfig", pkg, "--project", root)
	require.NoError(t, err)
	resolved, err := tsconfig.Parse([]byte(stdout))
	require.NoError(t, err)
	require.NotNil(t, resolved.Options().OutDir)
	assert.Equal(t, "lib", *resolved.Options().OutDir)
	assert.Nil(t, resolved.Extends)

	stdout, _, err = execute(t, "config", "tsconfig", pkg, "-f", "yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "outDir: lib")

	stdout, _, err = execute(t, "config", "tsconfig", pkg, "-f", "toml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[compilerOptions]")
	assert.Contains(t, stdout, "target")
}

func TestConfigTsconfigCommandDefaultsToProjectRoot(t *testing.T) {
	root := singlePackage(t)

	stdout, _, err := execute(t, "config", "tsconfig", "--project", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"sourceMap": false`)
}

func TestConfigTsconfigCommandReportsCycles(t *testing.T) {
	root := t.TempDir()
	testutils.WriteFile(t, filepath.Join(root, "tsconfig.json"), `{"extends": "./other.json"}`)
	testutils.WriteFile(t, filepath.Join(root, "other.json"), `{"extends": "./tsconfig.json"}`)

	_, _, err := execute(t, "config", "tsconfig", root)
	assert.Equal(t, ExitErrors, exitCode(t, err))
	assert.ErrorIs(t, err, tsconfig.ErrCircularDependency)
}

func TestConfigShowCommand(t *testing.T) {
	t.Setenv("JSBUILD_BUILD_THREADS", "3")

	stdout, _, err := execute(t, "config", "show", "-f", "json")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(stdout), &cfg))
	assert.Equal(t, 3, cfg.Build.Threads)
	assert.Equal(t, config.DefaultPackageConcurrency, cfg.Build.PackageConcurrency)
	assert.Equal(t, config.DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, config.DefaultDebounce, cfg.Watch.Debounce)
}

func TestConfigShowCommandUsesConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jsbuild.yml")
	testutils.WriteFile(t, path, "build:\n  package_concurrency: 4\nwatch:\n  debounce: 1s\n")

	stdout, _, err := execute(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "package_concurrency: 4")
	assert.Contains(t, stdout, "debounce: 1s")
}

func TestConfigValidateCommand(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.yml")
	testutils.WriteFile(t, valid, "build:\n  threads: 2\n")
	invalid := filepath.Join(dir, "invalid.yml")
	testutils.WriteFile(t, invalid, "build:\n  threads: -1\nlog:\n  level: loud\n")

	stdout, _, err := execute(t, "config", "validate", "--file", valid)
	require.NoError(t, err)
	assert.Contains(t, stdout, "is valid.")

	stdout, _, err = execute(t, "config", "validate", "--file", invalid)
	assert.Equal(t, ExitErrors, exitCode(t, err))
	assert.Contains(t, stdout, "build.threads")
	assert.Contains(t, stdout, "log.level")
	assert.ErrorContains(t, err, "2 errors")
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(stdout))

	stdout, _, err = execute(t, "version", "-f", "json")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.Contains(t, info, "go_version")
	assert.Contains(t, info, "compiler")

	stdout, _, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Version: ")
	assert.Contains(t, stdout, "esbuild: ")
}

func TestProjectFileFilter(t *testing.T) {
	assert.True(t, projectFileFilter("/repo/src/index.ts"))
	assert.True(t, projectFileFilter("/repo/src/view.tsx"))
	assert.True(t, projectFileFilter("/repo/package.json"))
	assert.True(t, projectFileFilter("/repo/tsconfig.base.json"))
	assert.True(t, projectFileFilter("/repo/pnpm-workspace.yaml"))
	assert.False(t, projectFileFilter("/repo/src/types.d.ts"))
	assert.False(t, projectFileFilter("/repo/README.md"))
}

func TestExitError(t *testing.T) {
	cause := errors.New("boom")
	err := &ExitError{Code: ExitFatal, Err: cause}
	assert.Equal(t, "boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "exit status 1", (&ExitError{Code: ExitErrors}).Error())
}

func TestValidateFormatWithSuggestion(t *testing.T) {
	formats := []string{OutputTable, OutputJSON, OutputYAML}
	assert.NoError(t, ValidateFormatWithSuggestion("json", formats))
	assert.NoError(t, ValidateFormatWithSuggestion("YAML", formats))

	err := ValidateFormatWithSuggestion("tabel", formats)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "table"?`)

	err = ValidateFormatWithSuggestion("csv", formats)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "did you mean")
	assert.Contains(t, err.Error(), "supported: table, json, yaml")
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 0, editDistance("json", "json"))
	assert.Equal(t, 1, editDistance("jsn", "json"))
	assert.Equal(t, 2, editDistance("tabel", "table"))
	assert.Equal(t, 4, editDistance("", "yaml"))
}
