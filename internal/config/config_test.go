package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 16, config.Cache.Limit)
	assert.Equal(t, 5000, config.Compare.ChunkSize)
	assert.Zero(t, config.Compare.Parallelism)
	assert.Empty(t, config.Store.Dir)
	assert.Equal(t, "info", config.Logging.Level)
	assert.NoError(t, config.Validate())
}

func TestLoadConfig(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "nested", "h5view.yaml")
		want := &Config{
			Cache:   Cache{Limit: 4},
			Compare: Compare{ChunkSize: 100, Parallelism: 2},
			Store:   Store{Dir: "/var/lib/h5view"},
			Logging: Logging{Level: "debug", Format: "json"},
		}
		require.NoError(t, SaveConfig(want, configPath))

		got, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "h5view.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("cache:\n  limit: 3\n"), 0600))

		got, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Cache.Limit)
		assert.Equal(t, 5000, got.Compare.ChunkSize)
		assert.Equal(t, "info", got.Logging.Level)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("cache: [unclosed"), 0600))
		_, err := LoadConfig(configPath)
		assert.ErrorContains(t, err, "failed to parse")
	})

	t.Run("invalid values", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("cache:\n  limit: 0\nlogging:\n  level: loud\n"), 0600))
		_, err := LoadConfig(configPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache.limit")
		assert.Contains(t, err.Error(), "logging.level")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"negative parallelism", func(c *Config) { c.Compare.Parallelism = -1 }, false},
		{"zero chunk size", func(c *Config) { c.Compare.ChunkSize = 0 }, false},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, false},
		{"warn level", func(c *Config) { c.Logging.Level = "WARN" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			if tt.ok {
				assert.NoError(t, c.Validate())
			} else {
				assert.Error(t, c.Validate())
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Logging{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "path", "/a")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "/a", rec["path"])

	_, err = Logging{Level: "nope"}.NewLogger(&buf)
	assert.Error(t, err)

	l, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)
}
