package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cadbridge/internal/receiver"
)

func TestServeCommand_DemoRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	opts := &ServeOptions{
		RootOptions: &RootOptions{Format: "text"},
		OnListen:    func(addr string) { addrCh <- addr },
	}
	cmd := newServeCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--demo", "--addr", "127.0.0.1:0"})

	errCh := make(chan error, 1)
	go func() { errCh <- cmd.ExecuteContext(ctx) }()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-errCh:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not start")
	}

	res, err := http.Post("http://"+addr+receiver.DefaultPath, "application/json",
		strings.NewReader(`{"action":"levels.list"}`))
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), `"Level 2"`)

	res, err = http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(res.Body)
	res.Body.Close()
	assert.Contains(t, string(body), `cadbridge_jobs_total{action="levels.list",outcome="ok"} 1`)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServeCommand_ConfigLayering(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(file, []byte("addr: 127.0.0.1:9999\npath: /bridge\ndemo: true\n"), 0o644))

	opts := &ServeOptions{RootOptions: &RootOptions{Format: "text"}}
	cmd := newServeCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--config", file, "--addr", "127.0.0.1:7000"}))

	cfg, err := opts.resolveConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr, "flag wins over file")
	assert.Equal(t, "/bridge", cfg.Path, "file wins over default")
	assert.True(t, cfg.Demo)
	assert.Equal(t, ":memory:", cfg.Database)
}

func TestServeCommand_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad path", []string{"--path", "mcp"}, "invalid config"},
		{"demo and seed", []string{"--demo", "--seed", "x.yaml"}, "mutually exclusive"},
		{"missing file", []string{"--config", "/nonexistent/bridge.yaml"}, "failed to load config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &ServeOptions{RootOptions: &RootOptions{Format: "text"}}
			cmd := newServeCommand(opts)
			require.NoError(t, cmd.ParseFlags(tt.args))
			_, err := opts.resolveConfig(cmd)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
