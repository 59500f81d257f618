// Package config holds the bridge server settings.
//
// Settings are layered: Default, then an optional YAML file, then
// CADBRIDGE_* environment variables. Command-line flags are applied by the
// caller last.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "CADBRIDGE_"

// Config is the server configuration.
type Config struct {
	Addr            string        `yaml:"addr"             env:"ADDR"`
	Path            string        `yaml:"path"             env:"PATH"`
	Database        string        `yaml:"database"         env:"DATABASE"`
	Seed            string        `yaml:"seed"             env:"SEED"`
	Demo            bool          `yaml:"demo"             env:"DEMO"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"   env:"MAX_BODY_BYTES"`
	LockOSThread    bool          `yaml:"lock_os_thread"   env:"LOCK_OS_THREAD"`
	LogLevel        string        `yaml:"log_level"        env:"LOG_LEVEL"`
	LogFormat       string        `yaml:"log_format"       env:"LOG_FORMAT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:            "127.0.0.1:8765",
		Path:            "/mcp",
		Database:        ":memory:",
		MaxBodyBytes:    1 << 20,
		LogLevel:        "info",
		LogFormat:       "text",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load layers the file at path (skipped when empty) and the process
// environment over Default.
func Load(path string) (Config, error) {
	return LoadWith(path, nil)
}

// LoadWith is Load with an explicit environment. A nil environ reads the
// process environment.
func LoadWith(path string, environ map[string]string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration can start a server.
func (c Config) Validate() error {
	var errs []error
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		errs = append(errs, fmt.Errorf("addr %q: %w", c.Addr, err))
	}
	if !strings.HasPrefix(c.Path, "/") {
		errs = append(errs, fmt.Errorf("path %q must start with /", c.Path))
	}
	if c.Database == "" {
		errs = append(errs, errors.New("database is required"))
	}
	if c.Seed != "" && c.Demo {
		errs = append(errs, errors.New("seed and demo are mutually exclusive"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q: must be text or json", c.LogFormat))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeout must be positive, got %s", c.ShutdownTimeout))
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level %q: must be debug, info, warn or error", s)
	}
	return l, nil
}

// NewLogger builds the logger the config describes, writing to w.
// verbose forces debug level.
func (c Config) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
