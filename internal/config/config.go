// Package config loads rouge settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ROUGE_HAND_LIMIT.
const EnvPrefix = "ROUGE"

// Audit sink selections.
const (
	SinkFile  = "file"
	SinkStore = "store"
	SinkBoth  = "both"
	SinkNone  = "none"
)

// Config is the resolved configuration.
type Config struct {
	// Seed overrides scenario seeds when set.
	Seed      *int32        `mapstructure:"seed"`
	HandLimit int           `mapstructure:"hand_limit"`
	Database  string        `mapstructure:"database"`
	Audit     AuditConfig   `mapstructure:"audit"`
	Bus       BusConfig     `mapstructure:"bus"`
	Logging   LoggingConfig `mapstructure:"log"`
}

// AuditConfig selects where subscriber failures are recorded.
type AuditConfig struct {
	Root string `mapstructure:"root"`
	Sink string `mapstructure:"sink"`
}

// BusConfig tunes the in-memory event bus.
type BusConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// LoggingConfig selects the log level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		HandLimit: 10,
		Audit:     AuditConfig{Sink: SinkFile},
		Logging:   LoggingConfig{Level: "warn", Format: "console"},
	}
}

// New returns a viper instance with defaults and environment bindings
// installed. AUDIT_LOG_ROOT is honoured for audit.root.
func New() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("hand_limit", d.HandLimit)
	v.SetDefault("database", d.Database)
	v.SetDefault("audit.root", d.Audit.Root)
	v.SetDefault("audit.sink", d.Audit.Sink)
	v.SetDefault("bus.max_concurrency", d.Bus.MaxConcurrency)
	v.SetDefault("log.level", d.Logging.Level)
	v.SetDefault("log.format", d.Logging.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("seed")
	_ = v.BindEnv("audit.root", EnvPrefix+"_AUDIT_ROOT", "AUDIT_LOG_ROOT")
	return v
}

// Load reads path (if non-empty) on top of the defaults and environment.
func Load(path string) (Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Audit.Sink = strings.ToLower(strings.TrimSpace(cfg.Audit.Sink))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can honour.
func (c Config) Validate() error {
	var errs []error
	if c.HandLimit < 1 {
		errs = append(errs, fmt.Errorf("hand_limit must be at least 1, got %d", c.HandLimit))
	}
	if c.Bus.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("bus.max_concurrency must not be negative, got %d", c.Bus.MaxConcurrency))
	}
	switch c.Audit.Sink {
	case SinkFile, SinkStore, SinkBoth, SinkNone:
	default:
		errs = append(errs, fmt.Errorf("audit.sink must be one of file|store|both|none, got %q", c.Audit.Sink))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug|info|warn|error, got %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Logging.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// WantsFileAudit reports whether audit entries go to the JSONL file.
func (a AuditConfig) WantsFileAudit() bool {
	return a.Sink == SinkFile || a.Sink == SinkBoth
}

// WantsStoreAudit reports whether audit entries go to the database.
func (a AuditConfig) WantsStoreAudit() bool {
	return a.Sink == SinkStore || a.Sink == SinkBoth
}
