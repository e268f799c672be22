package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	done := make(chan struct{}, 2)

	q := NewQueue[string]("mail", func(ctx context.Context, job Job[string]) error {
		mu.Lock()
		seen = append(seen, job.Payload)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), Job[string]{ID: "1", Payload: "a"}))
	require.NoError(t, q.Enqueue(context.Background(), Job[string]{ID: "2", Payload: "b"}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job not processed")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b"}, seen)
}

func TestQueueRetriesThenDrops(t *testing.T) {
	var attempts int32
	dropped := make(chan Job[int], 1)

	q := NewQueue[int]("mail", func(ctx context.Context, job Job[int]) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("smtp down")
	}, QueueConfig{MaxRetries: 2, RetryDelay: 5 * time.Millisecond})
	q.OnDrop(func(j Job[int], err error) { dropped <- j })
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), Job[int]{ID: "x", Payload: 7}))

	select {
	case j := <-dropped:
		assert.Equal(t, 3, j.Attempt)
		assert.Equal(t, 7, j.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("job never dropped")
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	q := NewQueue[int]("mail", func(context.Context, Job[int]) error { return nil }, QueueConfig{})

	assert.Error(t, q.Enqueue(context.Background(), Job[int]{}))
}
