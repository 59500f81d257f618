package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/registry"
	"github.com/roach88/cadbridge/internal/wire"
)

// ErrStopped fails jobs submitted to, or still queued in, a stopped
// serializer.
var ErrStopped = errors.New("bridge stopped")

// TxLabelPrefix prefixes every transaction label opened for a job.
const TxLabelPrefix = "MCP: "

// Observer receives job lifecycle notifications. Implementations must be
// cheap and safe for concurrent use: JobQueued runs on the submitting
// goroutine, JobFinished on the mutation goroutine.
type Observer interface {
	JobQueued(action string, depth int)
	JobFinished(action string, kind wire.Kind, elapsed time.Duration, depth int)
}

type nopObserver struct{}

func (nopObserver) JobQueued(string, int) {}
func (nopObserver) JobFinished(string, wire.Kind, time.Duration, int) {}

// Serializer is the single-writer job loop.
//
// Every document mutation happens on the goroutine running Run, one job
// at a time, in submission order. Each job runs inside its own
// transaction: committed on success, rolled back on error or panic.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Stop(): safe from any goroutine, idempotent
type Serializer struct {
	doc        docmodel.Document
	queue      *jobQueue
	clock      *Clock
	ids        JobIDGenerator
	logger     *slog.Logger
	observer   Observer
	lockThread bool
	running    atomic.Bool
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Serializer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver sets the lifecycle observer, e.g. metrics.
func WithObserver(o Observer) Option {
	return func(s *Serializer) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithIDGenerator sets the job id source. Default: UUIDv7Generator.
func WithIDGenerator(g JobIDGenerator) Option {
	return func(s *Serializer) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithClock sets the sequence clock.
func WithClock(c *Clock) Option {
	return func(s *Serializer) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLockOSThread pins Run to one OS thread, for hosts whose document
// API has thread affinity.
func WithLockOSThread(lock bool) Option {
	return func(s *Serializer) {
		s.lockThread = lock
	}
}

// NewSerializer creates a serializer over doc. Call Run to start it.
func NewSerializer(doc docmodel.Document, opts ...Option) *Serializer {
	s := &Serializer{
		doc:      doc,
		queue:    newJobQueue(),
		clock:    NewClock(),
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit enqueues work and returns its job. It never runs work itself.
// After Stop it fails with ErrStopped.
func (s *Serializer) Submit(action string, work registry.UnitOfWork) (*Job, error) {
	if work == nil {
		return nil, fmt.Errorf("submit %q: nil work", action)
	}
	job := newJob(s.ids.Generate(), s.clock.Next(), action, work)
	if !s.queue.Enqueue(job) {
		return nil, ErrStopped
	}
	depth := s.queue.Len()
	s.observer.JobQueued(action, depth)
	s.logger.Debug("job queued",
		"job_id", job.ID,
		"action", action,
		"seq", job.Seq,
		"depth", depth,
	)
	return job, nil
}

// Len returns the number of queued jobs.
func (s *Serializer) Len() int {
	return s.queue.Len()
}

// Running reports whether Run is active.
func (s *Serializer) Running() bool {
	return s.running.Load()
}

// Run is the mutation goroutine. It blocks until ctx is cancelled or Stop
// is called; jobs still queued at that point are failed with ErrStopped.
//
// A failing job never stops the loop: its error goes to its waiter and
// the next job runs.
func (s *Serializer) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("serializer already running")
	}
	defer s.running.Store(false)

	if s.lockThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	s.logger.Info("serializer starting", "lock_os_thread", s.lockThread)

	for {
		if job, ok := s.queue.TryDequeue(); ok {
			s.execute(ctx, job)
			continue
		}

		select {
		case <-ctx.Done():
			s.logger.Info("serializer stopping: context cancelled")
			s.failQueued(s.queue.Close())
			return ctx.Err()

		case _, open := <-s.queue.Wait():
			if !open {
				s.logger.Info("serializer stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes admission and fails every queued job. A job already running
// finishes normally.
func (s *Serializer) Stop() {
	s.failQueued(s.queue.Close())
}

func (s *Serializer) failQueued(jobs []*Job) {
	for _, j := range jobs {
		if j.fulfil(nil, ErrStopped) {
			s.logger.Warn("job dropped at shutdown", "job_id", j.ID, "action", j.Action, "seq", j.Seq)
		}
	}
}

// execute runs one job and fulfils it. Called only from Run.
func (s *Serializer) execute(ctx context.Context, job *Job) {
	job.setState(StateRunning)
	start := time.Now()

	data, err := s.runInTx(ctx, job)
	elapsed := time.Since(start)
	s.observer.JobFinished(job.Action, wire.KindOf(err), elapsed, s.queue.Len())
	job.fulfil(data, err)

	if err != nil {
		s.logger.Info("job failed",
			"job_id", job.ID,
			"action", job.Action,
			"seq", job.Seq,
			"kind", wire.KindOf(err),
			"error", err,
			"duration", elapsed,
		)
		return
	}
	s.logger.Info("job completed",
		"job_id", job.ID,
		"action", job.Action,
		"seq", job.Seq,
		"duration", elapsed,
	)
}

// runInTx is the transactional envelope: begin, run, then commit or roll
// back. A panic in the work is recovered into a domain error after the
// rollback.
func (s *Serializer) runInTx(ctx context.Context, job *Job) (data any, err error) {
	tx, err := s.doc.Begin(ctx, TxLabelPrefix+job.Action)
	if err != nil {
		return nil, wire.Wrap(wire.KindDomain, fmt.Errorf("begin transaction: %w", err), "")
	}

	defer func() {
		if r := recover(); r != nil {
			s.rollback(tx, job)
			s.logger.Error("job panicked", "job_id", job.ID, "action", job.Action, "panic", r)
			data, err = nil, wire.Errorf(wire.KindDomain, "%v", r)
		}
	}()

	data, err = job.work(ctx, tx)
	if err != nil {
		s.rollback(tx, job)
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		s.rollback(tx, job)
		return nil, wire.Wrap(wire.KindDomain, fmt.Errorf("commit: %w", err), "")
	}
	return data, nil
}

func (s *Serializer) rollback(tx docmodel.Tx, job *Job) {
	if err := tx.Rollback(); err != nil {
		s.logger.Error("rollback failed", "job_id", job.ID, "action", job.Action, "error", err)
	}
}
