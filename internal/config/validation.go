package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/conneroisu/jsbuild/internal/logging"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// Err joins the errors, or returns nil when there are none.
func (vr *ValidationResult) Err() error {
	errs := make([]error, 0, len(vr.Errors))
	for i := range vr.Errors {
		errs = append(errs, &vr.Errors[i])
	}
	return errors.Join(errs...)
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder
	write := func(title string, issues []ValidationError) {
		if len(issues) == 0 {
			return
		}
		builder.WriteString(title + ":\n")
		for _, issue := range issues {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", issue.Field, issue.Message))
			for _, suggestion := range issue.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}
	write("Validation errors", vr.Errors)
	write("Validation warnings", vr.Warnings)
	return builder.String()
}

// Validate checks every setting and collects all problems at once.
func Validate(config *Config) *ValidationResult {
	result := &ValidationResult{}
	validateBuildConfig(&config.Build, result)
	validateWatchConfig(&config.Watch, result)
	validateLogConfig(&config.Log, result)
	return result
}

func validateConfig(config *Config) error {
	return Validate(config).Err()
}

func validateBuildConfig(config *BuildConfig, result *ValidationResult) {
	if config.Threads < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "build.threads",
			Value:       config.Threads,
			Message:     fmt.Sprintf("threads must not be negative, got %d", config.Threads),
			Suggestions: []string{"Use 0 to run one worker per CPU"},
		})
	} else if limit := 8 * runtime.NumCPU(); config.Threads > limit {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "build.threads",
			Value:   config.Threads,
			Message: fmt.Sprintf("%d threads is far more than the %d CPUs available", config.Threads, runtime.NumCPU()),
		})
	}

	if config.PackageConcurrency < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "build.package_concurrency",
			Value:       config.PackageConcurrency,
			Message:     fmt.Sprintf("package concurrency must be at least 1, got %d", config.PackageConcurrency),
			Suggestions: []string{"Use 1 to build packages one after another"},
		})
	}

	if config.Format != FormatText && config.Format != FormatJSON {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "build.format",
			Value:       config.Format,
			Message:     fmt.Sprintf("unknown diagnostic format %q", config.Format),
			Suggestions: []string{"Use 'text' or 'json'"},
		})
	}
}

func validateWatchConfig(config *WatchConfig, result *ValidationResult) {
	if config.Debounce <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "watch.debounce",
			Value:       config.Debounce,
			Message:     "debounce must be positive",
			Suggestions: []string{"Use a duration such as 300ms"},
		})
	}

	for _, pattern := range config.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "watch.ignore",
				Value:   pattern,
				Message: fmt.Sprintf("invalid glob pattern %q", pattern),
			})
		}
	}
}

func validateLogConfig(config *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "log.level",
			Value:       config.Level,
			Message:     err.Error(),
			Suggestions: []string{"Use one of debug, info, warn, error"},
		})
	}
	if config.Format != FormatText && config.Format != FormatJSON {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "log.format",
			Value:       config.Format,
			Message:     fmt.Sprintf("unknown log format %q", config.Format),
			Suggestions: []string{"Use 'text' or 'json'"},
		})
	}
}
