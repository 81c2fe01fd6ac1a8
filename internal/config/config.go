// Package config loads the h5view configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the h5view configuration.
type Config struct {
	Cache   Cache   `yaml:"cache"`
	Compare Compare `yaml:"compare"`
	Store   Store   `yaml:"store"`
	Logging Logging `yaml:"logging"`
}

// Cache configures the per-session table cache.
type Cache struct {
	Limit int `yaml:"limit"`
}

// Compare configures table comparison.
type Compare struct {
	ChunkSize   int `yaml:"chunk_size"`
	Parallelism int `yaml:"parallelism"` // 0 means NumCPU-1
}

// Store configures the persistent row store. An empty Dir disables it.
type Store struct {
	Dir string `yaml:"dir"`
}

// Logging configures the CLI logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Cache:   Cache{Limit: 16},
		Compare: Compare{ChunkSize: 5000},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

// LoadConfig loads configuration from the specified path. Settings
// missing from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return config, nil
}

// SaveConfig writes the configuration to the specified path.
func SaveConfig(config *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Cache.Limit <= 0 {
		errs = append(errs, fmt.Errorf("cache.limit must be positive, got %d", c.Cache.Limit))
	}
	if c.Compare.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("compare.chunk_size must be positive, got %d", c.Compare.ChunkSize))
	}
	if c.Compare.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("compare.parallelism must not be negative, got %d", c.Compare.Parallelism))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return l, nil
}

// NewLogger builds the logger described by the logging section.
func (l Logging) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
