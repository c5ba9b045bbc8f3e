package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpad300/godmode-sub011/internal/graph"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graphstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "graphstore.db", cfg.Database.Path)
	assert.Equal(t, graph.ProviderRelational, cfg.Graph.Provider)
	assert.True(t, cfg.Graph.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/custom.db
  busy_timeout: 10s
graph:
  provider: neo4j
  options:
    uri: bolt://localhost:7687
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	assert.Equal(t, 10*time.Second, cfg.Database.BusyTimeout)
	// Unset fields keep their defaults.
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, "neo4j", cfg.Graph.Provider)
	assert.Equal(t, "bolt://localhost:7687", cfg.Graph.Options["uri"])
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadInterpolatesEnvVars(t *testing.T) {
	t.Setenv("GRAPH_DB_PATH", "/data/graph.db")
	t.Setenv("NEO4J_PASSWORD", "s3cret")

	path := writeConfig(t, `
database:
  path: ${GRAPH_DB_PATH}
graph:
  provider: neo4j
  options:
    password: ${NEO4J_PASSWORD}
    username: ${UNSET_VARIABLE_XYZ}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/graph.db", cfg.Database.Path)
	assert.Equal(t, "s3cret", cfg.Graph.Options["password"])
	assert.Equal(t, "${UNSET_VARIABLE_XYZ}", cfg.Graph.Options["username"],
		"unset variables stay verbatim")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "database: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "zero max open conns",
			mutate:  func(c *Config) { c.Database.MaxOpenConns = 0 },
			wantErr: "max_open_conns",
		},
		{
			name: "enabled graph without provider",
			mutate: func(c *Config) {
				c.Graph.Enabled = true
				c.Graph.Provider = ""
			},
			wantErr: "graph.provider",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name: "disabled graph allows empty provider",
			mutate: func(c *Config) {
				c.Graph.Enabled = false
				c.Graph.Provider = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
