package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/jsbuild/internal/version"
)

var (
	versionFormat string
	versionShort  bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for jsbuild including:

- Semantic version number
- Git commit hash
- Build timestamp
- Go version used for compilation
- Target platform (OS/architecture)
- Version of the bundled esbuild compiler

Examples:
  jsbuild version              # Show version info
  jsbuild version --short      # Show short version only
  jsbuild version --format json # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", OutputText, "Output format (text, json)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
	AddFlagValidation(versionCmd, "format", func(format string) error {
		return ValidateFormatWithSuggestion(format, []string{OutputText, OutputJSON})
	})
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	switch {
	case strings.EqualFold(versionFormat, OutputJSON):
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(version.GetBuildInfo())
	case versionShort:
		_, err := fmt.Fprintln(out, version.GetShortVersion())
		return err
	default:
		_, err := fmt.Fprintln(out, version.GetBuildInfo())
		return err
	}
}
