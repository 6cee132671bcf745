// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full server configuration.
type Config struct {
	Addr string `env:"NATIONSHIP_ADDR" envDefault:":8080"`

	DBDialect   string `env:"NATIONSHIP_DB_DIALECT" envDefault:"sqlite"` // sqlite or postgres
	SQLitePath  string `env:"NATIONSHIP_SQLITE_PATH" envDefault:"nationship.db"`
	PostgresDSN string `env:"NATIONSHIP_POSTGRES_DSN"`

	LogLevel  string `env:"NATIONSHIP_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"NATIONSHIP_LOG_FORMAT" envDefault:"text"`

	Profile string `env:"NATIONSHIP_PROFILE" envDefault:"default"` // default, stress, low
	Seed    int64  `env:"NATIONSHIP_SEED" envDefault:"0"`          // 0 draws a crypto seed

	SnapshotInterval time.Duration `env:"NATIONSHIP_SNAPSHOT_INTERVAL" envDefault:"30s"`
	DecayCheckRate   time.Duration `env:"NATIONSHIP_DECAY_CHECK_RATE" envDefault:"30s"`
	LapseWindow      time.Duration `env:"NATIONSHIP_LAPSE_WINDOW" envDefault:"5m"`
	RegistrySize     int           `env:"NATIONSHIP_REGISTRY_SIZE" envDefault:"1024"`
	EventRetention   int           `env:"NATIONSHIP_EVENT_RETENTION" envDefault:"100000"` // in-memory events; 0 keeps all

	AllowedOrigins []string `env:"NATIONSHIP_ALLOWED_ORIGINS" envSeparator:","`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the server configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	c.DBDialect = strings.ToLower(strings.TrimSpace(c.DBDialect))
	switch c.DBDialect {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("config: NATIONSHIP_SQLITE_PATH is required for sqlite")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: NATIONSHIP_POSTGRES_DSN is required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown db dialect %q", c.DBDialect)
	}
	if c.RegistrySize <= 0 {
		return fmt.Errorf("config: registry size must be positive, got %d", c.RegistrySize)
	}
	if c.EventRetention < 0 {
		return fmt.Errorf("config: event retention must not be negative, got %d", c.EventRetention)
	}
	return nil
}

// DSN returns the data source for the configured dialect.
func (c Config) DSN() string {
	if c.DBDialect == "postgres" {
		return c.PostgresDSN
	}
	return c.SQLitePath
}
