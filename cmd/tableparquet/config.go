package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nao1215/tableparquet"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration. It can be loaded from a YAML file and is
// overridden by flags given on the command line.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Conversion ConversionConfig `yaml:"conversion"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// ConversionConfig configures the converter.
type ConversionConfig struct {
	RowGroupSize     int    `yaml:"row_group_size"`
	DatetimeLocation string `yaml:"datetime_location"`
	StrictTypes      bool   `yaml:"strict_types"`
}

func defaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Conversion: ConversionConfig{
			RowGroupSize:     tableparquet.DefaultRowGroupSize,
			DatetimeLocation: "UTC",
		},
	}
}

// loadConfig reads a YAML configuration file into cfg. ${VAR} references are
// replaced with the value of the environment variable before parsing.
func loadConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is given by the user
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal([]byte(os.Expand(string(data), os.Getenv)), cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// flagValues holds the raw flag values of a command invocation.
type flagValues struct {
	configPath       string
	logLevel         string
	logFormat        string
	output           string
	rowGroupSize     int
	datetimeLocation string
	strictTypes      bool
	seed             uint64
}

// resolveConfig builds the effective configuration: defaults, then the
// config file if one is given, then every flag set on the command line.
func resolveConfig(cmd *cobra.Command, v *flagValues) (*Config, error) {
	cfg := defaultConfig()
	if v.configPath != "" {
		if err := loadConfig(v.configPath, cfg); err != nil {
			return nil, err
		}
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("log-level") {
		cfg.Log.Level = v.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = v.logFormat
	}
	if changed("row-group-size") {
		cfg.Conversion.RowGroupSize = v.rowGroupSize
	}
	if changed("datetime-location") {
		cfg.Conversion.DatetimeLocation = v.datetimeLocation
	}
	if changed("strict-types") {
		cfg.Conversion.StrictTypes = v.strictTypes
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q: must be json or console", c.Log.Format)
	}
	if c.Conversion.RowGroupSize <= 0 {
		return fmt.Errorf("invalid row group size %d: must be positive", c.Conversion.RowGroupSize)
	}
	if _, err := time.LoadLocation(c.Conversion.DatetimeLocation); err != nil {
		return fmt.Errorf("invalid datetime location %q: %w", c.Conversion.DatetimeLocation, err)
	}
	return nil
}

// converterOptions returns the converter options described by c.
func (c *Config) converterOptions() ([]tableparquet.Option, error) {
	loc, err := time.LoadLocation(c.Conversion.DatetimeLocation)
	if err != nil {
		return nil, fmt.Errorf("invalid datetime location %q: %w", c.Conversion.DatetimeLocation, err)
	}

	opts := []tableparquet.Option{
		tableparquet.WithRowGroupSize(c.Conversion.RowGroupSize),
		tableparquet.WithDatetimeLocation(loc),
		tableparquet.WithCreatedBy("tableparquet version " + version),
	}
	if c.Conversion.StrictTypes {
		opts = append(opts, tableparquet.WithStrictTypeMapping())
	}
	return opts, nil
}
