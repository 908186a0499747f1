// Package config provides configuration management for jsbuild using Viper
// for layered loading from a .jsbuild.yml file, JSBUILD_ environment
// variables and command-line flags.
//
// Flags take precedence over the environment, which takes precedence over
// the configuration file, which takes precedence over defaults. These
// settings control the tool itself; compiler settings always come from
// tsconfig.json files.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file searched for in the working directory.
const FileName = ".jsbuild.yml"

// EnvPrefix prefixes every environment variable read by viper.
const EnvPrefix = "JSBUILD"

// EnvKeyReplacer maps nested keys to environment variable names, so
// build.threads is read from JSBUILD_BUILD_THREADS.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Diagnostic output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Defaults.
const (
	DefaultPackageConcurrency = 1
	DefaultDebounce           = 300 * time.Millisecond
	DefaultLogLevel           = "warn"
)

type Config struct {
	Project string      `yaml:"project" json:"project" toml:"project" mapstructure:"project"`
	Build   BuildConfig `yaml:"build" json:"build" toml:"build" mapstructure:"build"`
	Watch   WatchConfig `yaml:"watch" json:"watch" toml:"watch" mapstructure:"watch"`
	Log     LogConfig   `yaml:"log" json:"log" toml:"log" mapstructure:"log"`
}

type BuildConfig struct {
	// Threads is the worker pool size for each package walk; 0 means one
	// per CPU.
	Threads            int    `yaml:"threads" json:"threads" toml:"threads" mapstructure:"threads"`
	Tsconfig           string `yaml:"tsconfig" json:"tsconfig" toml:"tsconfig" mapstructure:"tsconfig"`
	PackageConcurrency int    `yaml:"package_concurrency" json:"package_concurrency" toml:"package_concurrency" mapstructure:"package_concurrency"`
	Format             string `yaml:"format" json:"format" toml:"format" mapstructure:"format"`
	Color              bool   `yaml:"color" json:"color" toml:"color" mapstructure:"color"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" json:"debounce" toml:"debounce" mapstructure:"debounce"`
	Ignore   []string      `yaml:"ignore" json:"ignore" toml:"ignore" mapstructure:"ignore"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level" toml:"level" mapstructure:"level"`
	Format string `yaml:"format" json:"format" toml:"format" mapstructure:"format"`
}

// Load reads the configuration from the global viper instance, applies
// defaults for unset keys and validates the result.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load for an explicit viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	config, err := Decode(v)
	if err != nil {
		return nil, err
	}
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Decode unmarshals the settings of v and applies defaults for unset keys
// without validating the result.
func Decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if !v.IsSet("build.package_concurrency") {
		config.Build.PackageConcurrency = DefaultPackageConcurrency
	}
	if config.Build.Format == "" {
		config.Build.Format = FormatText
	}
	if !v.IsSet("build.color") {
		config.Build.Color = true
	}

	// Handle ignore patterns set via viper (workaround for viper slice handling)
	if v.IsSet("watch.ignore") && len(config.Watch.Ignore) == 0 {
		config.Watch.Ignore = v.GetStringSlice("watch.ignore")
	}
	if !v.IsSet("watch.debounce") {
		config.Watch.Debounce = DefaultDebounce
	}

	if config.Log.Level == "" {
		config.Log.Level = DefaultLogLevel
	}
	if config.Log.Format == "" {
		config.Log.Format = FormatText
	}

	return &config, nil
}

// Keys lists every configuration key, for binding environment variables
// that have no flag or file value.
func Keys() []string {
	return []string{
		"project",
		"build.threads",
		"build.tsconfig",
		"build.package_concurrency",
		"build.format",
		"build.color",
		"watch.debounce",
		"watch.ignore",
		"log.level",
		"log.format",
	}
}
