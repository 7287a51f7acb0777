package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rematch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no rematch.yaml here

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, 10000, cfg.Engine.BatchSize)
	assert.Equal(t, 50.0, cfg.Engine.MinScore)
	assert.Equal(t, 5000, cfg.Engine.PageSize)
	assert.Equal(t, "rematch.tasks.match", cfg.NATS.Subject)
}

func TestLoad_DefaultPathWhenPresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultPath), []byte("engine:\n  batch_size: 7\n"), 0600))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Engine.BatchSize)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  dsn: postgres://rematch@localhost/rematch?sslmode=disable
engine:
  batch_size: 500
  min_score: 60
  hash_scores:
    assembly_hash: 80
nats:
  url: nats://broker:4222
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 500, cfg.Engine.BatchSize)
	assert.Equal(t, 60.0, cfg.Engine.MinScore)
	assert.Equal(t, 5000, cfg.Engine.PageSize, "untouched keys keep defaults")
	assert.Equal(t, map[string]float64{"assembly_hash": 80}, cfg.Engine.HashScores)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, "rematch-workers", cfg.NATS.Queue)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "engine:\n  batch_size: 500\n")
	t.Setenv("REMATCH_ENGINE_BATCH_SIZE", "42")
	t.Setenv("REMATCH_DATABASE_DSN", "/tmp/other.db")
	t.Setenv("REMATCH_NATS_EVENTS_PREFIX", "custom.events")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Engine.BatchSize)
	assert.Equal(t, "/tmp/other.db", cfg.Database.DSN)
	assert.Equal(t, "custom.events", cfg.NATS.EventsPrefix)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "engine: [unclosed\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_RejectsDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "unknown database driver"},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, "dsn is required"},
		{"zero batch", func(c *Config) { c.Engine.BatchSize = 0 }, "invalid batch size"},
		{"negative page", func(c *Config) { c.Engine.PageSize = -1 }, "invalid page size"},
		{"min score above 100", func(c *Config) { c.Engine.MinScore = 101 }, "invalid min score"},
		{"min score below 0", func(c *Config) { c.Engine.MinScore = -1 }, "invalid min score"},
		{"min score below 50", func(c *Config) { c.Engine.MinScore = 49.5 }, "invalid min score"},
		{"min score 100 allowed", func(c *Config) { c.Engine.MinScore = 100 }, ""},
		{"hash score", func(c *Config) { c.Engine.HashScores = map[string]float64{"name_hash": 150} }, "invalid hash score for name_hash"},
		{"hash score typo", func(c *Config) { c.Engine.HashScores = map[string]float64{"asembly_hash": 90} }, `unknown hash matcher "asembly_hash"`},
		{"hash score for distance matcher", func(c *Config) { c.Engine.HashScores = map[string]float64{"basicblock_mdindex": 90} }, "unknown hash matcher"},
		{"hash scores allowed", func(c *Config) { c.Engine.HashScores = map[string]float64{"assembly_hash": 90, "name_hash": 0} }, ""},
		{"empty subject", func(c *Config) { c.NATS.Subject = "" }, "subject is required"},
		{"empty events prefix", func(c *Config) { c.NATS.EventsPrefix = "" }, "events prefix is required"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "unknown log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
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

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
