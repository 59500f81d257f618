// Package registry maps action names to builders.
//
// A Builder validates an envelope's args and returns a UnitOfWork: a
// closure that performs the action against an open transaction. Builders
// run on the caller's goroutine and never touch the document; only the
// returned UnitOfWork does, and only on the mutation goroutine.
//
// Thread-safety: registration happens at startup. After Freeze the
// registry is read-only and safe for concurrent Dispatch.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/wire"
)

// UnitOfWork performs one action inside tx. The returned value becomes
// the response data on success.
type UnitOfWork func(ctx context.Context, tx docmodel.Tx) (any, error)

// Builder turns raw args into a UnitOfWork, or fails with an
// InvalidArguments error.
type Builder func(args json.RawMessage) (UnitOfWork, error)

// Registry is the action catalog.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
	frozen   bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a builder under name. Names are case-insensitive and must
// be unique.
func (r *Registry) Register(name string, b Builder) error {
	k := key(name)
	if k == "" {
		return fmt.Errorf("register: empty action name")
	}
	if b == nil {
		return fmt.Errorf("register %q: nil builder", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("register %q: registry is frozen", name)
	}
	if _, dup := r.builders[k]; dup {
		return fmt.Errorf("register %q: duplicate action", name)
	}
	r.builders[k] = b
	return nil
}

// MustRegister is Register that panics on error. For static catalogs.
func (r *Registry) MustRegister(name string, b Builder) {
	if err := r.Register(name, b); err != nil {
		panic(err)
	}
}

// Freeze rejects further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Lookup returns the builder registered under name.
func (r *Registry) Lookup(name string) (Builder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builders[key(name)]
	return b, ok
}

// Dispatch resolves env.Action and builds its unit of work.
func (r *Registry) Dispatch(env wire.Envelope) (UnitOfWork, error) {
	b, ok := r.Lookup(env.Action)
	if !ok {
		return nil, wire.UnknownAction(env.Action)
	}
	args := env.Args
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	work, err := b(args)
	if err != nil {
		return nil, asInvalidArguments(err)
	}
	if work == nil {
		return nil, wire.Errorf(wire.KindDomain, "action %q built no work", env.Action)
	}
	return work, nil
}

// Names returns every registered action name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builders))
	for n := range r.builders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered actions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.builders)
}

// asInvalidArguments keeps classified builder errors and classifies the
// rest as InvalidArguments.
func asInvalidArguments(err error) error {
	if wire.KindOf(err) != wire.KindDomain {
		return err
	}
	return wire.Wrap(wire.KindInvalidArguments, err, "")
}
