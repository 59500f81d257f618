package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_FulfilledExactlyOnce(t *testing.T) {
	j := testJob("j")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if j.fulfil(i, nil) {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, StateCompleted, j.State())

	first, err := j.Wait(context.Background())
	require.NoError(t, err)
	again, _ := j.Wait(context.Background())
	assert.Equal(t, first, again, "every waiter sees the same result")
}

func TestJob_FailedState(t *testing.T) {
	j := testJob("j")
	boom := errors.New("boom")
	j.fulfil(nil, boom)

	assert.Equal(t, StateFailed, j.State())
	_, err := j.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "failed", j.State().String())
}

func TestJob_WaitHonoursContext(t *testing.T) {
	j := testJob("j")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := j.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateQueued, j.State(), "abandoning the wait leaves the job alone")
}

func TestClock_Monotonic(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())

	assert.Equal(t, int64(11), NewClockAt(10).Next())
}

func TestUUIDv7Generator(t *testing.T) {
	id := UUIDv7Generator{}.Generate()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, id, UUIDv7Generator{}.Generate())
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("job-1", "job-2")
	assert.Equal(t, "job-1", g.Generate())
	assert.Equal(t, "job-2", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
