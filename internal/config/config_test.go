package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cadbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_Layers(t *testing.T) {
	path := writeFile(t, `
addr: 0.0.0.0:9000
path: /bridge
demo: true
shutdown_timeout: 3s
log_format: json
`)

	cfg, err := LoadWith(path, map[string]string{
		"CADBRIDGE_ADDR":           "127.0.0.1:9100",
		"CADBRIDGE_MAX_BODY_BYTES": "2048",
		"UNRELATED":                "x",
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9100", cfg.Addr, "env wins over the file")
	assert.Equal(t, "/bridge", cfg.Path)
	assert.True(t, cfg.Demo)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int64(2048), cfg.MaxBodyBytes)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, ":memory:", cfg.Database, "untouched fields keep defaults")
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := LoadWith("", map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	_, err := LoadWith(filepath.Join(t.TempDir(), "missing.yaml"), map[string]string{})
	assert.ErrorContains(t, err, "read config")

	_, err = LoadWith(writeFile(t, "addr: [unclosed"), map[string]string{})
	assert.ErrorContains(t, err, "parse config")

	_, err = LoadWith("", map[string]string{"CADBRIDGE_DEMO": "maybe"})
	assert.ErrorContains(t, err, "parse env")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad addr", func(c *Config) { c.Addr = "nohostport" }, "addr"},
		{"relative path", func(c *Config) { c.Path = "mcp" }, "must start with /"},
		{"no database", func(c *Config) { c.Database = "" }, "database is required"},
		{"seed and demo", func(c *Config) { c.Seed, c.Demo = "x.yaml", true }, "mutually exclusive"},
		{"body limit", func(c *Config) { c.MaxBodyBytes = 0 }, "max_body_bytes"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"shutdown", func(c *Config) { c.ShutdownTimeout = 0 }, "shutdown_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.LogFormat = "json"

	logger := cfg.NewLogger(&buf, false)
	logger.Debug("hidden")
	logger.Info("shown", "job_id", "j1")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"job_id":"j1"`)

	buf.Reset()
	cfg.LogFormat = "text"
	cfg.NewLogger(&buf, true).Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}
