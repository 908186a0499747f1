// Package internal contains the core implementation packages for jsbuild.
//
// These packages are unavailable to other modules; the cmd package is their
// only consumer.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - workspace: Project root discovery, package.json and pnpm-workspace.yaml
//     membership, and glob expansion of member packages
//   - tsconfig: tsconfig.json loading with extends chains, cached per run
//   - build: Per-package compile options, the parallel source walker, the
//     esbuild compiler adapter, and the orchestrator that ties them together
//   - diagnostics: Diagnostic batches, the queue they travel on, and the
//     reporter that renders and counts them
//   - watcher: File system monitoring with debouncing for watch mode
//   - config: Tool configuration loaded through viper
//   - logging: Structured logging on charmbracelet/log
//   - version: Build information stamped at link time
//   - testutils: Fixtures shared by the tests
//
// # Data Flow
//
// A build runs in one direction:
//
//   - workspace finds the root and enumerates member package directories
//   - build derives compile options from each package's resolved tsconfig
//   - the walker mirrors each source tree into its output directory, one
//     worker per file up to the thread limit
//   - every failure travels as a diagnostics batch to a single reporter
//     goroutine, which returns the error and warning counts when the
//     end-of-stream marker arrives
//
// Failures never abort a build. Only cancellation stops it early.
package internal
