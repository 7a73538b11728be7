// Package config provides Viper-based configuration for productspace.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete build configuration.
type Config struct {
	Data      DataConfig      `mapstructure:"data"`
	Output    OutputConfig    `mapstructure:"output"`
	Aggregate AggregateConfig `mapstructure:"aggregate"`
	Meta      MetaConfig      `mapstructure:"meta"`
	Store     StoreConfig     `mapstructure:"store"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Workers   int             `mapstructure:"workers"`
}

// DataConfig locates the BACI inputs.
type DataConfig struct {
	Dir       string `mapstructure:"dir"`
	CodesFile string `mapstructure:"codes_file"`
	Pattern   string `mapstructure:"pattern"`
}

type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Indent bool   `mapstructure:"indent"`
}

// AggregateConfig controls ranking. TopNPerYear 0 keeps every product.
type AggregateConfig struct {
	TopNPerYear int     `mapstructure:"top_n_per_year"`
	MinValue    float64 `mapstructure:"min_value_kusd"`
	TopOverall  int     `mapstructure:"top_overall"`
}

type MetaConfig struct {
	Source string `mapstructure:"source"`
}

type StoreConfig struct {
	DB string `mapstructure:"db"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. v may carry
// flag bindings; nil starts from a fresh instance.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".productspace")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/productspace")
	}

	v.SetEnvPrefix("PRODUCTSPACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data.dir", filepath.Join("data", "baci"))
	v.SetDefault("data.codes_file", "product_codes_HS92_V202601.csv")
	v.SetDefault("data.pattern", "BACI_HS92_Y*_V202601.csv")

	v.SetDefault("output.dir", "out")
	v.SetDefault("output.indent", false)

	v.SetDefault("aggregate.top_n_per_year", 300)
	v.SetDefault("aggregate.min_value_kusd", 0.0)
	v.SetDefault("aggregate.top_overall", 1000)

	v.SetDefault("meta.source", "CEPII BACI HS92")

	v.SetDefault("store.db", "")
	v.SetDefault("metrics.textfile", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("workers", 1)
}

// Validate checks the configuration for errors.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Data.Dir) == "" {
		return errors.New("data.dir is required")
	}
	if strings.TrimSpace(cfg.Data.CodesFile) == "" {
		return errors.New("data.codes_file is required")
	}
	if strings.TrimSpace(cfg.Data.Pattern) == "" {
		return errors.New("data.pattern is required")
	}
	if _, err := filepath.Match(cfg.Data.Pattern, ""); err != nil {
		return fmt.Errorf("invalid data.pattern %q: %w", cfg.Data.Pattern, err)
	}
	if strings.TrimSpace(cfg.Output.Dir) == "" {
		return errors.New("output.dir is required")
	}
	if cfg.Aggregate.TopNPerYear < 0 {
		return fmt.Errorf("invalid aggregate.top_n_per_year: %d (must be >= 0)", cfg.Aggregate.TopNPerYear)
	}
	if cfg.Aggregate.MinValue < 0 {
		return fmt.Errorf("invalid aggregate.min_value_kusd: %g (must be >= 0)", cfg.Aggregate.MinValue)
	}
	if cfg.Aggregate.TopOverall <= 0 {
		return fmt.Errorf("invalid aggregate.top_overall: %d (must be > 0)", cfg.Aggregate.TopOverall)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("invalid workers: %d (must be >= 1)", cfg.Workers)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (must be text or json)", cfg.Logging.Format)
	}

	return nil
}

// TopN returns the per-year cutoff, or nil when truncation is disabled.
func (c *Config) TopN() *int {
	if c.Aggregate.TopNPerYear <= 0 {
		return nil
	}
	n := c.Aggregate.TopNPerYear
	return &n
}

func (c *Config) CodesPath() string {
	return filepath.Join(c.Data.Dir, c.Data.CodesFile)
}

func (c *Config) InputGlob() string {
	return filepath.Join(c.Data.Dir, c.Data.Pattern)
}
