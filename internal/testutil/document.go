package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/docstore"
	"github.com/roach88/cadbridge/internal/seed"
)

// OpenDocument opens an empty in-memory document closed at test end.
func OpenDocument(t testing.TB) *docstore.Store {
	t.Helper()
	s, err := docstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// DemoDocument opens an in-memory document loaded with the demo seed and
// returns it with the ids allocated per seed key.
func DemoDocument(t testing.TB) (*docstore.Store, map[string]docmodel.ElementID) {
	t.Helper()
	s := OpenDocument(t)
	ids, err := seed.Apply(context.Background(), s, seed.Demo())
	require.NoError(t, err)
	return s, ids
}

// Param returns the named parameter of element id, failing the test when
// it does not exist.
func Param(t testing.TB, r docmodel.Reader, id docmodel.ElementID, name string) docmodel.Parameter {
	t.Helper()
	params, err := r.Parameters(context.Background(), id)
	require.NoError(t, err)
	for _, p := range params {
		if p.Name == name {
			return p
		}
	}
	require.Failf(t, "parameter not found", "%q on element %d", name, id)
	return docmodel.Parameter{}
}

// Count returns how many elements match q.
func Count(t testing.TB, r docmodel.Reader, q docmodel.Query) int {
	t.Helper()
	els, err := r.Elements(context.Background(), q)
	require.NoError(t, err)
	return len(els)
}
