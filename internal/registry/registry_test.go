package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/wire"
)

type levelReq struct {
	Name       string   `json:"name"`
	ElevationM *float64 `json:"elevation_m"`
}

func (r levelReq) Validate() error {
	if r.ElevationM == nil {
		return Required("elevation_m")
	}
	return nil
}

func echo(_ context.Context, _ docmodel.Tx, req levelReq) (any, error) {
	return req, nil
}

func TestRegistry_RegisterAndDispatch(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("Level.Create", Typed(echo)))

	work, err := r.Dispatch(wire.Envelope{Action: "LEVEL.create", Args: json.RawMessage(`{"name":"L3","elevation_m":6}`)})
	require.NoError(t, err)
	require.NotNil(t, work)

	got, err := work(context.Background(), nil)
	require.NoError(t, err)
	req := got.(levelReq)
	assert.Equal(t, "L3", req.Name)
	assert.Equal(t, 6.0, *req.ElevationM)
}

func TestRegistry_UnknownAction(t *testing.T) {
	r := New()
	_, err := r.Dispatch(wire.Envelope{Action: "foo.bar", Args: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.Equal(t, wire.KindUnknownAction, wire.KindOf(err))
	assert.Equal(t, "Unknown action 'foo.bar'.", err.Error())
}

func TestRegistry_LookupIsExact(t *testing.T) {
	r := New()
	r.MustRegister("params.set", func(json.RawMessage) (UnitOfWork, error) {
		return func(context.Context, docmodel.Tx) (any, error) { return nil, nil }, nil
	})

	_, ok := r.Lookup("params.se")
	assert.False(t, ok, "prefixes must not match")
	_, ok = r.Lookup("params.set_where")
	assert.False(t, ok)
	_, ok = r.Lookup(" PARAMS.SET ")
	assert.True(t, ok)
}

func TestRegistry_RejectsDuplicatesAndEmpty(t *testing.T) {
	r := New()
	b := Typed(echo)
	require.NoError(t, r.Register("a", b))
	assert.Error(t, r.Register("A", b))
	assert.Error(t, r.Register("  ", b))
	assert.Error(t, r.Register("b", nil))
	assert.Panics(t, func() { r.MustRegister("a", b) })
}

func TestRegistry_Freeze(t *testing.T) {
	r := New()
	r.MustRegister("b", Typed(echo))
	r.MustRegister("a", Typed(echo))
	r.Freeze()

	assert.Error(t, r.Register("c", Typed(echo)))
	assert.Equal(t, []string{"a", "b"}, r.Names())
	assert.Equal(t, 2, r.Len())
}

func TestTyped_InvalidArguments(t *testing.T) {
	r := New()
	r.MustRegister("level.create", Typed(echo))

	tests := []struct {
		name string
		args string
		msg  string
	}{
		{"missing required field", `{"name":"L3"}`, "elevation_m is required"},
		{"wrong type", `{"elevation_m":"high"}`, "elevation_m must be a number"},
		{"string field given a number", `{"name":5,"elevation_m":1}`, "name must be a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Dispatch(wire.Envelope{Action: "level.create", Args: json.RawMessage(tt.args)})
			require.Error(t, err)
			assert.Equal(t, wire.KindInvalidArguments, wire.KindOf(err))
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestDispatch_PlainBuilderErrorIsInvalidArguments(t *testing.T) {
	r := New()
	r.MustRegister("x", func(json.RawMessage) (UnitOfWork, error) {
		return nil, errors.New("set[] must not be empty")
	})

	_, err := r.Dispatch(wire.Envelope{Action: "x"})
	require.Error(t, err)
	assert.Equal(t, wire.KindInvalidArguments, wire.KindOf(err))
	assert.Equal(t, "set[] must not be empty", err.Error())
}

func TestTyped_BuilderDoesNotRunWork(t *testing.T) {
	ran := false
	b := Typed(func(context.Context, docmodel.Tx, levelReq) (any, error) {
		ran = true
		return nil, nil
	})

	work, err := b(json.RawMessage(`{"elevation_m":0}`))
	require.NoError(t, err)
	assert.False(t, ran)

	_, err = work(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, ran)
}
