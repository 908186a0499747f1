package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/jsbuild/internal/config"
	"github.com/conneroisu/jsbuild/internal/logging"
)

var cfgFile string

// configKeyAnnotation marks a flag with the configuration key it
// overrides.
const configKeyAnnotation = "jsbuild_config_key"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jsbuild",
	Short: "Compile TypeScript and JavaScript packages into mirrored output trees",
	Long: `jsbuild compiles every source file of a package, or of every package in a
workspace, into its output directory. Compiler settings come from tsconfig.json
files, following their extends chains.

Running jsbuild without a subcommand is the same as running jsbuild build.

Quick Start:
  jsbuild                         Build the project containing the current directory
  jsbuild watch                   Rebuild on every change
  jsbuild list                    List the packages that would be built
  jsbuild config tsconfig         Show the resolved tsconfig.json`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: bindFlags,
	RunE:              runBuild,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "",
		"config file (default is .jsbuild.yml, can also use JSBUILD_CONFIG_FILE env var)")
	flags.String("project", "", "project directory (default: nearest directory with a package.json)")
	flags.StringP("log-level", "l", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("log-format", config.FormatText, "log format (text, json)")
	configKey(flags, "project", "project")
	configKey(flags, "log-level", "log.level")
	configKey(flags, "log-format", "log.format")

	addBuildFlags(rootCmd)
}

// initConfig initializes the configuration system with support for multiple config sources.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. JSBUILD_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .jsbuild.yml in current directory
//
// Variables from a .env file in the current directory are loaded first and
// never override the real environment.
func initConfig() {
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".jsbuild")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer)
	for _, key := range config.Keys() {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// configKey annotates the flag name of fs with the configuration key it
// overrides.
func configKey(fs *pflag.FlagSet, name, key string) {
	_ = fs.SetAnnotation(name, configKeyAnnotation, []string{key})
}

// bindFlags binds the annotated flags of the command being run to their
// configuration keys. Several commands define the same flags, so binding
// happens per invocation rather than once at init.
func bindFlags(cmd *cobra.Command, _ []string) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[configKeyAnnotation]
		if len(keys) == 0 || err != nil {
			return
		}
		err = viper.BindPFlag(keys[0], f)
	})
	return err
}

// loadConfig loads the tool configuration. An invalid configuration is
// fatal for the run.
func loadConfig() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, &ExitError{Code: ExitFatal, Err: err}
	}
	return cfg, newLogger(cfg), nil
}

func newLogger(cfg *config.Config) logging.Logger {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logging.LevelWarn
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}
