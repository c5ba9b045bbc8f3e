// Package config loads and validates the application configuration from YAML,
// with ${VAR} environment interpolation and defaults for anything omitted.
package config

import (
	"fmt"
	"time"

	"github.com/rpad300/godmode-sub011/internal/database"
	"github.com/rpad300/godmode-sub011/internal/graph"
)

// Config is the root configuration for the graph store.
type Config struct {
	Database database.Config     `yaml:"database" mapstructure:"database"`
	Graph    graph.FeatureConfig `yaml:"graph" mapstructure:"graph"`
	Logging  LoggingConfig       `yaml:"logging" mapstructure:"logging"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "text" or "json"
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Database: database.Config{
			Path:            "graphstore.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			BusyTimeout:     5 * time.Second,
		},
		Graph: graph.FeatureConfig{
			Enabled:   true,
			Provider:  graph.ProviderRelational,
			GraphName: graph.SharedGraphName,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}
	if c.Graph.Enabled && c.Graph.Provider == "" {
		return fmt.Errorf("graph.provider is required when graph.enabled is true")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json (got %q)", c.Logging.Format)
	}
	return nil
}
