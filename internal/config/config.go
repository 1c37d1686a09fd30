// Package config resolves chronologic settings from a .chrono.toml file,
// CHRONO_* environment variables and command-line flags, in that order of
// increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultDB is the database opened when nothing else is configured.
const DefaultDB = ".chrono/chrono.db"

// EnvKeyReplacer maps nested keys to environment names: log.level is read
// from CHRONO_LOG_LEVEL.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// LogConfig controls the process logger.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// WatchConfig controls `chrono watch`.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Config holds all runtime configuration.
type Config struct {
	DB        string      `mapstructure:"db"`
	Reference string      `mapstructure:"reference"`
	JSON      bool        `mapstructure:"json"`
	Log       LogConfig   `mapstructure:"log"`
	Watch     WatchConfig `mapstructure:"watch"`
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db", DefaultDB)
	v.SetDefault("reference", "")
	v.SetDefault("json", false)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)
	v.SetDefault("watch.debounce", 200*time.Millisecond)
}

// Load reads the configuration from the global viper instance, applying
// built-in defaults for any values not set by config file, environment, or
// flags.
func Load() (Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load on an explicit viper instance.
func LoadFrom(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no command can work with.
func (c Config) Validate() error {
	if c.DB == "" {
		return fmt.Errorf("config: db must not be empty")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("config: watch.debounce must not be negative")
	}
	return nil
}
