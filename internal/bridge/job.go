package bridge

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/cadbridge/internal/registry"
)

// State is a job's lifecycle position.
type State int32

const (
	StateQueued State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Job is one submitted unit of work and the future of its result.
//
// The result is fulfilled exactly once, by the mutation goroutine or by
// shutdown, whichever comes first. Waiters never observe a partial result.
type Job struct {
	ID       string
	Seq      int64
	Action   string
	Enqueued time.Time

	work  registry.UnitOfWork
	state atomic.Int32
	once  sync.Once
	done  chan struct{}
	data  any
	err   error
}

func newJob(id string, seq int64, action string, work registry.UnitOfWork) *Job {
	return &Job{
		ID:       id,
		Seq:      seq,
		Action:   action,
		Enqueued: time.Now(),
		work:     work,
		done:     make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (j *Job) State() State {
	return State(j.state.Load())
}

func (j *Job) setState(s State) {
	j.state.Store(int32(s))
}

// fulfil records the outcome. Only the first call has any effect; it
// reports whether this call was the one that fulfilled the job.
func (j *Job) fulfil(data any, err error) bool {
	fulfilled := false
	j.once.Do(func() {
		j.data, j.err = data, err
		if err != nil {
			j.setState(StateFailed)
		} else {
			j.setState(StateCompleted)
		}
		close(j.done)
		fulfilled = true
	})
	return fulfilled
}

// Done is closed once the job has a result.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job has a result or ctx ends. Giving up on the
// wait does not cancel the job: it still runs and its result is dropped.
func (j *Job) Wait(ctx context.Context) (any, error) {
	select {
	case <-j.done:
		return j.data, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome of a finished job. It must only be called
// after Done is closed.
func (j *Job) Result() (any, error) {
	return j.data, j.err
}
