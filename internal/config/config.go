// Package config loads genesis settings from a YAML file and the
// environment.
//
// Precedence, lowest first: Default, the YAML file, GENESIS_* environment
// variables, command-line flags (applied by the caller).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/genesis/internal/docstore"
)

// Environment variables read by ApplyEnv.
const (
	EnvURL         = "GENESIS_URL"
	EnvDataDir     = "GENESIS_DATA_DIR"
	EnvBusyTimeout = "GENESIS_BUSY_TIMEOUT_MS"
	EnvLogLevel    = "GENESIS_LOG_LEVEL"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config holds the settings shared by every genesis command.
type Config struct {
	// URL locates the document store, e.g. sqlite://localhost/test.
	URL string `yaml:"url"`

	// DataDir holds databases addressed as sqlite://localhost/<name>.
	DataDir string `yaml:"data_dir"`

	// BusyTimeoutMS is the SQLite busy timeout.
	BusyTimeoutMS int `yaml:"busy_timeout_ms"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		URL:           docstore.DefaultURL,
		DataDir:       ".",
		BusyTimeoutMS: docstore.DefaultBusyTimeout,
		LogLevel:      "info",
	}
}

// Load reads the YAML file at path over Default, then applies the
// environment. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Parse decodes YAML data into cfg. Keys absent from data keep their
// current values; unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg with any GENESIS_* variables lookup reports.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvURL); ok && v != "" {
		c.URL = v
	}
	if v, ok := lookup(EnvDataDir); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvBusyTimeout); ok && v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, EnvBusyTimeout, v)
		}
		c.BusyTimeoutMS = ms
	}
	return nil
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	if _, err := docstore.ParseURL(c.URL); err != nil {
		return fmt.Errorf("%w: url: %v", ErrInvalid, err)
	}
	if c.BusyTimeoutMS < 0 {
		return fmt.Errorf("%w: busy_timeout_ms must not be negative", ErrInvalid)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// SlogLevel returns the configured log level. Unknown levels map to info.
func (c Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// StoreOptions returns the document store options for c.
func (c Config) StoreOptions(logger *slog.Logger) []docstore.Option {
	opts := []docstore.Option{
		docstore.WithDataDir(c.DataDir),
		docstore.WithBusyTimeout(c.BusyTimeoutMS),
	}
	if logger != nil {
		opts = append(opts, docstore.WithLogger(logger))
	}
	return opts
}

func parseLevel(s string) (slog.Level, error) {
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
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
