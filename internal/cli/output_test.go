package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cadbridge/internal/wire"
)

func TestOutputFormatter_JSONMatchesBridgeEnvelope(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	resp := wire.OK(map[string]any{"elementId": 19, "name": "Roof"})
	require.NoError(t, f.Print(Report{Response: resp, JobID: "job-7", HTTPStatus: 200}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, true, got["ok"])
	assert.Equal(t, "ok", got["message"])
	assert.Equal(t, "job-7", got["job_id"])
	assert.EqualValues(t, 200, got["http_status"])
	assert.Equal(t, map[string]any{"elementId": float64(19), "name": "Roof"}, got["data"])
}

func TestOutputFormatter_JSONFailKeepsData(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Fail(errors.New("1 scenario(s) failed"), TestResult{Total: 2, Failed: 1}))

	var got Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.False(t, got.OK)
	assert.Equal(t, "1 scenario(s) failed", got.Message)
	assert.NotNil(t, got.Data)
	assert.Empty(t, got.JobID)
	assert.NotContains(t, buf.String(), "http_status")
}

func TestOutputFormatter_JSONFailUsesKind(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Fail(&wire.Error{Kind: wire.KindNoTargets}, nil))

	var got Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, string(wire.KindNoTargets), got.Message)
	assert.NotContains(t, buf.String(), `"data"`)
}

func TestOutputFormatter_Text(t *testing.T) {
	tests := []struct {
		name    string
		report  Report
		verbose bool
		want    string
	}{
		{"string data", Report{Response: wire.OK("Seed applied")}, false, "Seed applied\n"},
		{"no data prints message", Report{Response: wire.OK(nil)}, false, "ok\n"},
		{"structured data", Report{Response: wire.OK(map[string]int{"count": 2})}, false, "{\n  \"count\": 2\n}\n"},
		{"failure", Report{Response: wire.Fail(errors.New("Element 4242 not found."))}, false, "Error: Element 4242 not found.\n"},
		{
			"failure details when verbose",
			Report{Response: wire.Response{Message: "invalid seed", Data: "line 3"}},
			true,
			"Error: invalid seed\nDetails: line 3\n",
		},
		{
			"failure details hidden",
			Report{Response: wire.Response{Message: "invalid seed", Data: "line 3"}},
			false,
			"Error: invalid seed\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}
			require.NoError(t, f.Print(tt.report))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, diag := &bytes.Buffer{}, &bytes.Buffer{}
			f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: tt.verbose}

			f.VerboseLog("POST %s", "/mcp")

			assert.Empty(t, out.String(), "diagnostics never reach stdout")
			if tt.wantLog {
				assert.Equal(t, "POST /mcp\n", diag.String())
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	wrapped := fmt.Errorf("serve: %w", WrapExitError(ExitCommandError, "open store", errors.New("disk")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "serve: open store: disk", wrapped.Error())
}
