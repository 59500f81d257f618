// Package bridge runs actions against the document one at a time.
//
// Request goroutines dispatch an envelope to a unit of work, submit it to
// the Serializer and wait on the returned Job. The Serializer's Run loop
// is the only goroutine that touches the document; it wraps each job in
// one transaction. Results come back through the job's future exactly
// once, and every outcome, success or failure, is shaped as a
// wire.Response.
package bridge

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/cadbridge/internal/registry"
	"github.com/roach88/cadbridge/internal/wire"
)

// Outcome is the result of handling one envelope.
type Outcome struct {
	Response wire.Response
	Status   int
	JobID    string // empty when the envelope never reached the queue
	Seq      int64
}

// Bridge ties the registry to the serializer.
type Bridge struct {
	registry   *registry.Registry
	serializer *Serializer
	logger     *slog.Logger
}

// New creates a bridge. The serializer's Run must be started separately.
func New(reg *registry.Registry, ser *Serializer, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{registry: reg, serializer: ser, logger: logger}
}

// Registry returns the action catalog.
func (b *Bridge) Registry() *registry.Registry {
	return b.registry
}

// Serializer returns the job loop.
func (b *Bridge) Serializer() *Serializer {
	return b.serializer
}

// Handle dispatches env, waits for its job and shapes the result.
func (b *Bridge) Handle(ctx context.Context, env wire.Envelope) (wire.Response, int) {
	out := b.Do(ctx, env)
	return out.Response, out.Status
}

// Do is Handle with job correlation details.
//
// Builder failures are answered without queueing. If ctx ends first the
// caller gets a failure response while the job still runs to completion.
func (b *Bridge) Do(ctx context.Context, env wire.Envelope) Outcome {
	work, err := b.registry.Dispatch(env)
	if err != nil {
		b.logger.Debug("dispatch rejected", "action", env.Action, "kind", wire.KindOf(err), "error", err)
		return failure(err)
	}

	job, err := b.serializer.Submit(env.Action, work)
	if err != nil {
		return failure(err)
	}

	data, err := job.Wait(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			b.logger.Warn("caller gave up waiting", "job_id", job.ID, "action", env.Action, "seq", job.Seq)
		}
		out := failure(err)
		out.JobID, out.Seq = job.ID, job.Seq
		return out
	}

	return Outcome{
		Response: wire.OK(data),
		Status:   wire.Status(nil),
		JobID:    job.ID,
		Seq:      job.Seq,
	}
}

func failure(err error) Outcome {
	return Outcome{Response: wire.Fail(err), Status: wire.Status(err)}
}
