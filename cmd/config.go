package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/jsbuild/internal/config"
	"github.com/conneroisu/jsbuild/internal/tsconfig"
	"github.com/conneroisu/jsbuild/internal/workspace"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect jsbuild and tsconfig configuration",
	Long: `Inspect configuration.

This command provides subcommands for:
- Showing the resolved jsbuild settings
- Validating a .jsbuild.yml file
- Showing a tsconfig.json with its extends chain flattened

Examples:
  jsbuild config show                  # Show current settings
  jsbuild config validate              # Validate .jsbuild.yml
  jsbuild config tsconfig packages/a   # Show the resolved tsconfig of a package`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Long: `Display the jsbuild settings after loading the configuration file, applying
environment variable overrides, setting default values and processing flags.

Examples:
  jsbuild config show                  # Show settings as YAML
  jsbuild config show -f json          # Show settings as JSON
  jsbuild config show -f toml          # Show settings as TOML`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a jsbuild configuration file.

This command checks for:
- Proper data types
- Thread and concurrency limits
- Known diagnostic and log formats
- Valid watch ignore patterns

Examples:
  jsbuild config validate                      # Validate .jsbuild.yml
  jsbuild config validate --file ci.yml        # Validate a specific file
  jsbuild config validate --strict             # Treat warnings as errors`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

var configTsconfigCmd = &cobra.Command{
	Use:   "tsconfig [dir|file]",
	Short: "Show a tsconfig.json with its extends chain resolved",
	Long: `Resolve a tsconfig.json, following every extends reference, and print the
flattened result. With no argument the root tsconfig of the project is shown;
a directory argument selects its tsconfig.json.

Examples:
  jsbuild config tsconfig                        # The project root tsconfig
  jsbuild config tsconfig packages/a             # packages/a/tsconfig.json
  jsbuild config tsconfig tsconfig.base.json -f toml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigTsconfig,
}

var (
	configFile       string
	configStrict     bool
	showFlags        *OutputFlags
	tsconfigFlags    *OutputFlags
	configFileFormat = []string{OutputYAML, OutputJSON, OutputTOML}
)

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configTsconfigCmd)

	showFlags = AddOutputFlags(configShowCmd, configFileFormat...)

	configValidateCmd.Flags().
		StringVar(&configFile, "file", "", "Configuration file to validate (default: "+config.FileName+")")
	configValidateCmd.Flags().BoolVar(&configStrict, "strict", false, "Treat warnings as errors")

	tsconfigFlags = AddOutputFlags(configTsconfigCmd, OutputJSON, OutputYAML, OutputTOML)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return &ExitError{Code: ExitFatal, Err: err}
	}
	return encode(cmd.OutOrStdout(), showFlags.Format, cfg)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	targetFile := configFile
	if targetFile == "" {
		if _, err := os.Stat(config.FileName); err != nil {
			return errors.New("no configuration file found. Use --file to specify a config file")
		}
		targetFile = config.FileName
	}

	v := viper.New()
	v.SetConfigFile(targetFile)
	if filepath.Ext(targetFile) == "" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return &ExitError{Code: ExitErrors, Err: fmt.Errorf("failed to read configuration file: %w", err)}
	}

	cfg, err := config.Decode(v)
	if err != nil {
		return &ExitError{Code: ExitErrors, Err: fmt.Errorf("failed to parse configuration: %w", err)}
	}

	out := cmd.OutOrStdout()
	validation := config.Validate(cfg)
	if !validation.HasErrors() && !validation.HasWarnings() {
		fmt.Fprintf(out, "%s is valid.\n", targetFile)
		return nil
	}

	fmt.Fprint(out, validation.String())
	if validation.HasErrors() {
		return &ExitError{
			Code: ExitErrors,
			Err:  fmt.Errorf("configuration validation failed with %d errors", len(validation.Errors)),
		}
	}
	if configStrict {
		return &ExitError{
			Code: ExitErrors,
			Err:  fmt.Errorf("configuration validation failed in strict mode with %d warnings", len(validation.Warnings)),
		}
	}
	fmt.Fprintf(out, "%s is valid with %d warnings. Use --strict to treat warnings as errors.\n",
		targetFile, len(validation.Warnings))
	return nil
}

func runConfigTsconfig(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := tsconfigArgument(cfg, args)
	if err != nil {
		return err
	}

	resolved, err := tsconfig.NewStore(logger).Resolve(path)
	if err != nil {
		return &ExitError{Code: ExitErrors, Err: err}
	}
	return encode(cmd.OutOrStdout(), tsconfigFlags.Format, resolved)
}

// tsconfigArgument maps the optional argument of config tsconfig to a
// file: a directory selects its tsconfig.json, no argument selects the one
// at the project root.
func tsconfigArgument(cfg *config.Config, args []string) (string, error) {
	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err == nil && info.IsDir() {
			return filepath.Join(args[0], workspace.TsconfigName), nil
		}
		return args[0], nil
	}

	root, err := projectRoot(cfg)
	if err != nil {
		return "", err
	}
	if explicit := cfg.Build.Tsconfig; explicit != "" {
		if filepath.IsAbs(explicit) {
			return explicit, nil
		}
		return filepath.Join(root, explicit), nil
	}
	return filepath.Join(root, workspace.TsconfigName), nil
}

// encode writes v to out in one of the structured output formats.
func encode(out io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case OutputJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case OutputTOML:
		return toml.NewEncoder(out).Encode(v)
	default:
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(v)
	}
}
