package bridge

import "sync"

// jobQueue is a thread-safe FIFO of pending jobs.
//
// Producers are request goroutines; the only consumer is the Serializer's
// Run loop. The queue is unbounded: admission control belongs to the HTTP
// layer, not here.
//
// The signal channel has a buffer of one so that many enqueues between two
// drains coalesce into a single wake-up. The consumer drains until empty
// on every wake, so no job is stranded by a coalesced signal.
type jobQueue struct {
	mu     sync.Mutex
	jobs   []*Job
	closed bool
	signal chan struct{}
}

func newJobQueue() *jobQueue {
	return &jobQueue{
		jobs:   make([]*Job, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends j. Returns false if the queue is closed.
func (q *jobQueue) Enqueue(j *Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.jobs = append(q.jobs, j)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the front job without blocking. A closed queue yields
// nothing.
func (q *jobQueue) TryDequeue() (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.jobs) == 0 {
		return nil, false
	}
	j := q.jobs[0]
	q.jobs[0] = nil
	if len(q.jobs) == 1 {
		q.jobs = q.jobs[:0]
	} else {
		q.jobs = q.jobs[1:]
	}
	return j, true
}

// Wait returns the wake-up channel. It is closed when the queue closes.
func (q *jobQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued jobs.
func (q *jobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Close stops admission and returns the jobs that were still queued, in
// order. Closing twice returns nil.
func (q *jobQueue) Close() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.signal)

	left := q.jobs
	q.jobs = nil
	return left
}
