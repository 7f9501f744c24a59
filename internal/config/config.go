// Package config merges probecheck settings from flags, PROBECHECK_*
// environment variables, an optional config file and defaults.
//
// Precedence, highest first: an explicitly set flag, the environment,
// the config file, the flag default. Keys use the flag names, so
//
//	engine: ./rvsim
//	engine-args: ["--max-cycles", "1000000", "{unit}"]
//	concurrency: 4
//
// in probecheck.yaml is equivalent to
// PROBECHECK_ENGINE=./rvsim PROBECHECK_CONCURRENCY=4 and the same flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable key.
const EnvPrefix = "PROBECHECK"

// DefaultConfigName is looked up in the working directory and $HOME when
// no config file is given explicitly.
const DefaultConfigName = "probecheck"

// Keys shared by flags, environment and config file.
const (
	KeyEngine      = "engine"
	KeyEngineArgs  = "engine-args"
	KeyUnits       = "units"
	KeyManifest    = "manifest"
	KeyFilter      = "filter"
	KeyConcurrency = "concurrency"
	KeyTimeout     = "timeout"
	KeyMaxOutput   = "max-output"
	KeyHistory     = "history"
	KeyMetricsFile = "metrics-file"
	KeyColor       = "color"
)

// FlagEngineArg is the repeatable command-line spelling of KeyEngineArgs.
const FlagEngineArg = "engine-arg"

// Config is the resolved configuration of a run.
type Config struct {
	Engine      string
	EngineArgs  []string
	Units       string
	Manifest    string
	Filter      string
	Concurrency int
	Timeout     time.Duration
	MaxOutput   int
	History     string
	MetricsFile string
	Color       bool
}

// New returns a viper instance reading PROBECHECK_* variables.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile loads path, or probecheck.yaml from . or $HOME when path is
// empty. A missing default file is not an error; a missing explicit one is.
// Returns the file used, if any.
func ReadFile(v *viper.Viper, path string) (string, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read config file: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// BindFlags makes cmd's local flags the highest-precedence source for
// their keys. --engine-arg feeds KeyEngineArgs.
func BindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	if f := cmd.Flags().Lookup(FlagEngineArg); f != nil {
		if err := v.BindPFlag(KeyEngineArgs, f); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}
	}
	return nil
}

// Load resolves the configuration and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Engine:      v.GetString(KeyEngine),
		EngineArgs:  v.GetStringSlice(KeyEngineArgs),
		Units:       v.GetString(KeyUnits),
		Manifest:    v.GetString(KeyManifest),
		Filter:      v.GetString(KeyFilter),
		Concurrency: v.GetInt(KeyConcurrency),
		Timeout:     v.GetDuration(KeyTimeout),
		MaxOutput:   v.GetInt(KeyMaxOutput),
		History:     v.GetString(KeyHistory),
		MetricsFile: v.GetString(KeyMetricsFile),
		Color:       v.GetBool(KeyColor),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var problems []string
	if c.Concurrency < 0 {
		problems = append(problems, fmt.Sprintf("concurrency must not be negative, got %d", c.Concurrency))
	}
	if c.Timeout < 0 {
		problems = append(problems, fmt.Sprintf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.MaxOutput < 0 {
		problems = append(problems, fmt.Sprintf("max-output must not be negative, got %d", c.MaxOutput))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
