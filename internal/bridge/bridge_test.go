package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/registry"
	"github.com/roach88/cadbridge/internal/testutil"
	"github.com/roach88/cadbridge/internal/wire"
)

type echoReq struct {
	Say string `json:"say"`
}

func (r echoReq) Validate() error {
	if r.Say == "" {
		return registry.Required("say")
	}
	return nil
}

func newTestBridge(t *testing.T) *Bridge {
	t.Helper()
	reg := registry.New()
	reg.MustRegister("echo", registry.Typed(func(_ context.Context, _ docmodel.Tx, req echoReq) (any, error) {
		return map[string]string{"said": req.Say}, nil
	}))
	reg.MustRegister("fail", registry.Typed(func(context.Context, docmodel.Tx, struct{}) (any, error) {
		return nil, wire.NoTargets()
	}))
	reg.Freeze()

	s := NewSerializer(testutil.OpenDocument(t), WithIDGenerator(NewFixedGenerator("job-1", "job-2", "job-3")))
	start(t, s)
	return New(reg, s, nil)
}

func TestBridge_Handle(t *testing.T) {
	b := newTestBridge(t)

	tests := []struct {
		name   string
		env    wire.Envelope
		status int
		ok     bool
		msg    string
	}{
		{"success", wire.Envelope{Action: "ECHO", Args: json.RawMessage(`{"say":"hi"}`)}, http.StatusOK, true, "ok"},
		{"unknown action", wire.Envelope{Action: "nope", Args: json.RawMessage(`{}`)}, http.StatusBadRequest, false, "Unknown action 'nope'."},
		{"invalid arguments", wire.Envelope{Action: "echo", Args: json.RawMessage(`{}`)}, http.StatusBadRequest, false, "say is required"},
		{"job failure", wire.Envelope{Action: "fail"}, http.StatusInternalServerError, false, "No targets resolved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, status := b.Handle(context.Background(), tt.env)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.ok, resp.OK)
			assert.Equal(t, tt.msg, resp.Message)
			if !tt.ok {
				assert.Nil(t, resp.Data)
			}
		})
	}
}

func TestBridge_DoCorrelatesJob(t *testing.T) {
	b := newTestBridge(t)

	out := b.Do(context.Background(), wire.Envelope{Action: "echo", Args: json.RawMessage(`{"say":"x"}`)})
	require.True(t, out.Response.OK)
	assert.Equal(t, "job-1", out.JobID)
	assert.Equal(t, int64(1), out.Seq)
	assert.Equal(t, map[string]string{"said": "x"}, out.Response.Data)

	out = b.Do(context.Background(), wire.Envelope{Action: "nope"})
	assert.Empty(t, out.JobID, "rejected envelopes never reach the queue")
}

func TestBridge_StoppedSerializer(t *testing.T) {
	b := newTestBridge(t)
	b.Serializer().Stop()

	resp, status := b.Handle(context.Background(), wire.Envelope{Action: "echo", Args: json.RawMessage(`{"say":"x"}`)})
	assert.False(t, resp.OK)
	assert.Equal(t, "bridge stopped", resp.Message)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestBridge_CallerTimeout(t *testing.T) {
	reg := registry.New()
	release := make(chan struct{})
	reg.MustRegister("slow", registry.Typed(func(context.Context, docmodel.Tx, struct{}) (any, error) {
		<-release
		return "done", nil
	}))
	s := NewSerializer(testutil.OpenDocument(t))
	start(t, s)
	b := New(reg, s, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	out := b.Do(ctx, wire.Envelope{Action: "slow"})
	close(release)

	assert.False(t, out.Response.OK)
	assert.Equal(t, context.DeadlineExceeded.Error(), out.Response.Message)
	assert.NotEmpty(t, out.JobID)
}
