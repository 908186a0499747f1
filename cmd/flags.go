package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/conneroisu/jsbuild/internal/config"
)

// Output formats of the list and config commands.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
	OutputTOML  = "toml"
	OutputText  = "text"
)

// OutputFlags is the output format flag shared by commands that print
// structured results.
type OutputFlags struct {
	Format  string
	formats []string
}

// AddOutputFlags adds a validated -f/--format flag accepting formats. The
// first format is the default.
func AddOutputFlags(cmd *cobra.Command, formats ...string) *OutputFlags {
	flags := &OutputFlags{formats: formats}
	cmd.Flags().StringVarP(&flags.Format, "format", "f", formats[0],
		fmt.Sprintf("Output format (%s)", strings.Join(formats, "|")))
	AddFlagValidation(cmd, "format", func(format string) error {
		return ValidateFormatWithSuggestion(format, formats)
	})
	return flags
}

// addBuildFlags adds the flags shared by every command that builds.
func addBuildFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntP("threads", "t", 0, "worker threads per package walk (0 = one per CPU)")
	flags.StringP("tsconfig", "p", "", "root tsconfig.json (default: <project>/tsconfig.json)")
	flags.Int("package-concurrency", config.DefaultPackageConcurrency, "packages built at the same time")
	flags.String("format", config.FormatText, "diagnostic format (text, json)")
	flags.Bool("color", true, "colorize text diagnostics")
	configKey(flags, "threads", "build.threads")
	configKey(flags, "tsconfig", "build.tsconfig")
	configKey(flags, "package-concurrency", "build.package_concurrency")
	configKey(flags, "format", "build.format")
	configKey(flags, "color", "build.color")
	AddFlagValidation(cmd, "format", func(format string) error {
		return ValidateFormatWithSuggestion(format, []string{config.FormatText, config.FormatJSON})
	})
}

// addWatchFlags adds the flags of the watch command.
func addWatchFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("debounce", config.DefaultDebounce, "delay before rebuilding after the last change")
	configKey(cmd.Flags(), "debounce", "watch.debounce")
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}
	flag.Value = &validatingValue{Value: flag.Value, validator: validator}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidateFormatWithSuggestion accepts format when it is one of valid,
// ignoring case, and otherwise names the closest valid format.
func ValidateFormatWithSuggestion(format string, valid []string) error {
	if slices.Contains(valid, strings.ToLower(format)) {
		return nil
	}
	msg := fmt.Sprintf("invalid format %q (supported: %s)", format, strings.Join(valid, ", "))
	if s := closest(strings.ToLower(format), valid); s != "" {
		msg += fmt.Sprintf("; did you mean %q?", s)
	}
	return fmt.Errorf("%s", msg)
}

// closest returns the candidate within two edits of s, if any.
func closest(s string, candidates []string) string {
	best, bestDist := "", 3
	for _, c := range candidates {
		if d := editDistance(s, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func editDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
