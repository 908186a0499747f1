// Package cmd implements the jsbuild command line using Cobra.
//
// # Configuration
//
// Settings come from several sources with clear precedence:
//  1. Command-line flags (--threads, --format, etc.) - highest priority
//  2. Environment variables (JSBUILD_BUILD_THREADS, etc.), also read from .env
//  3. Configuration file: --config, JSBUILD_CONFIG_FILE or .jsbuild.yml - lowest priority
//
// Compiler settings are never configured here; they come from the
// tsconfig.json files of the project.
//
// # Commands
//
//   - build (default): compile the project, or every package of a workspace
//   - watch: build, then rebuild the whole project after every burst of changes
//   - list: show the packages that would be built and where their output goes
//   - config show|validate|tsconfig: inspect jsbuild settings and resolved tsconfig files
//   - version: show build information
//
// # Exit Status
//
// Every command returns an *ExitError for a non-zero status: 1 when the
// build reported errors, 2 when it could not start (no project root, an
// unreadable root directory or an invalid configuration).
//
// # Examples
//
//	// Build the project containing the working directory
//	jsbuild
//
//	// Build a monorepo four packages at a time with JSON diagnostics
//	jsbuild build --package-concurrency 4 --format json
//
//	// Rebuild on changes, waiting half a second after the last one
//	jsbuild watch --debounce 500ms
//
//	// Show the flattened tsconfig of one package as TOML
//	jsbuild config tsconfig packages/ui -f toml
package cmd
