// Package config provides Viper-based configuration loading for the map tools.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// File, when set, routes log output to a rotated file instead of stderr.
	File string `mapstructure:"file"`
	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files kept.
	MaxBackups int `mapstructure:"max_backups"`
}

// MapConfig holds map loading settings.
type MapConfig struct {
	// Dir is the directory holding the sector files.
	Dir string `mapstructure:"dir"`
	// Workers bounds the number of sectors decoded concurrently.
	Workers int `mapstructure:"workers"`
	// StrictReferences turns unresolved references into a load failure.
	StrictReferences bool `mapstructure:"strict_references"`
}

// BundleConfig holds map bundle settings.
type BundleConfig struct {
	// Level is the compression level: "fastest", "default", "better" or "best".
	Level string `mapstructure:"level"`
}

// CatalogConfig holds item catalog settings.
type CatalogConfig struct {
	// Path is the SQLite database file. Empty disables the catalog.
	Path string `mapstructure:"path"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Map     MapConfig     `mapstructure:"map"`
	Bundle  BundleConfig  `mapstructure:"bundle"`
	Catalog CatalogConfig `mapstructure:"catalog"`
}

// MaxWorkers is the largest accepted map.workers value.
const MaxWorkers = 256

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateMap(c.Map); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBundle(c.Bundle); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	var errs []string
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of [debug, info, warn, error], got %q", l.Level))
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		errs = append(errs, fmt.Sprintf("logging.format must be one of [json, console], got %q", l.Format))
	}
	if l.File != "" {
		if l.MaxSizeMB < 1 {
			errs = append(errs, fmt.Sprintf("logging.max_size_mb must be >= 1, got %d", l.MaxSizeMB))
		}
		if l.MaxBackups < 0 {
			errs = append(errs, fmt.Sprintf("logging.max_backups must be >= 0, got %d", l.MaxBackups))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateMap(m MapConfig) error {
	if m.Workers < 1 || m.Workers > MaxWorkers {
		return fmt.Errorf("map.workers must be 1-%d, got %d", MaxWorkers, m.Workers)
	}
	return nil
}

func validateBundle(b BundleConfig) error {
	validLevels := map[string]bool{"fastest": true, "default": true, "better": true, "best": true}
	if !validLevels[b.Level] {
		return fmt.Errorf("bundle.level must be one of [fastest, default, better, best], got %q", b.Level)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path loads defaults and
// environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with SCSMAP_ prefix
	v.SetEnvPrefix("SCSMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the default values.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)

	v.SetDefault("map.dir", ".")
	v.SetDefault("map.workers", 8)
	v.SetDefault("map.strict_references", false)

	v.SetDefault("bundle.level", "default")

	v.SetDefault("catalog.path", "")
}
