// Package config provides configuration loading for rematch.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/rematch/internal/matcher"
)

// Config is the complete rematch configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Engine   EngineConfig   `koanf:"engine"`
	NATS     NATSConfig     `koanf:"nats"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	// Driver is "sqlite3" or "postgres".
	Driver string `koanf:"driver"`

	// DSN is the SQLite file path or the Postgres connection string.
	DSN string `koanf:"dsn"`
}

// EngineConfig tunes the task runner.
type EngineConfig struct {
	BatchSize int     `koanf:"batch_size"`
	MinScore  float64 `koanf:"min_score"`
	PageSize  int     `koanf:"page_size"`

	// HashScores overrides the confidence of hash matchers by match type.
	HashScores map[string]float64 `koanf:"hash_scores"`
}

// NATSConfig configures the task worker transport.
type NATSConfig struct {
	URL          string `koanf:"url"`
	Subject      string `koanf:"subject"`
	Queue        string `koanf:"queue"`
	EventsPrefix string `koanf:"events_prefix"`
}

// MetricsConfig configures the Prometheus endpoint of `rematch serve`.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `koanf:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "rematch.db",
		},
		Engine: EngineConfig{
			BatchSize: 10000,
			MinScore:  50,
			PageSize:  5000,
		},
		NATS: NATSConfig{
			URL:          "nats://127.0.0.1:4222",
			Subject:      "rematch.tasks.match",
			Queue:        "rematch-workers",
			EventsPrefix: "rematch.events",
		},
		Metrics: MetricsConfig{
			Addr: ":9464",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for values the runner cannot use.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q (want sqlite3 or postgres)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}

	if c.Engine.BatchSize <= 0 {
		return fmt.Errorf("invalid batch size: %d (must be positive)", c.Engine.BatchSize)
	}
	if c.Engine.PageSize <= 0 {
		return fmt.Errorf("invalid page size: %d (must be positive)", c.Engine.PageSize)
	}
	if c.Engine.MinScore < 50 || c.Engine.MinScore > 100 {
		return fmt.Errorf("invalid min score: %g (must be 50-100)", c.Engine.MinScore)
	}
	if err := matcher.ValidateHashScores(c.Engine.HashScores); err != nil {
		return fmt.Errorf("invalid hash_scores: %w", err)
	}

	if c.NATS.Subject == "" {
		return errors.New("nats subject is required")
	}
	if c.NATS.EventsPrefix == "" {
		return errors.New("nats events prefix is required")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
