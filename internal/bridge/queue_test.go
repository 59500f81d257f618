package bridge

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJob(id string) *Job {
	return newJob(id, 0, "test", nil)
}

func TestJobQueue_FIFO(t *testing.T) {
	q := newJobQueue()
	for _, id := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(testJob(id)))
	}

	for _, want := range []string{"A", "B", "C"} {
		j, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, j.ID)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestJobQueue_SignalsCoalesce(t *testing.T) {
	q := newJobQueue()
	q.Enqueue(testJob("1"))
	q.Enqueue(testJob("2"))
	q.Enqueue(testJob("3"))

	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a pending signal")
	}
	select {
	case <-q.Wait():
		t.Fatal("signals should coalesce into one")
	default:
	}
	assert.Equal(t, 3, q.Len(), "coalescing must not drop jobs")
}

func TestJobQueue_Close(t *testing.T) {
	q := newJobQueue()
	q.Enqueue(testJob("1"))
	q.Enqueue(testJob("2"))

	left := q.Close()
	require.Len(t, left, 2)
	assert.Equal(t, "1", left[0].ID)
	assert.Equal(t, "2", left[1].ID)

	assert.False(t, q.Enqueue(testJob("3")), "enqueue after close should return false")
	_, ok := q.TryDequeue()
	assert.False(t, ok)
	assert.Nil(t, q.Close(), "second close returns nothing")

	select {
	case _, open := <-q.Wait():
		assert.False(t, open)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("wait channel not closed")
	}
}

func TestJobQueue_ThreadSafe(t *testing.T) {
	q := newJobQueue()
	const producers, perProducer = 10, 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(testJob("x"))
			}
		}()
	}
	wg.Wait()

	n := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		n++
	}
	assert.Equal(t, producers*perProducer, n)
}
