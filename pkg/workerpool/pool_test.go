package workerpool

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

func TestPool_ProcessesTasks(t *testing.T) {
	var processed int64
	pool, err := New(Config{Workers: 3, QueueSize: 10}, func(ctx context.Context, task *Task) error {
		atomic.AddInt64(&processed, 1)
		return nil
	}, nil)
	require.NoError(t, err)
	pool.Start()

	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit(&Task{ID: "t"}))
	}
	require.NoError(t, pool.Stop())

	assert.Equal(t, int64(10), atomic.LoadInt64(&processed))
	stats := pool.Stats()
	assert.Equal(t, int64(10), stats.Submitted)
	assert.Equal(t, int64(10), stats.Completed)
}

func TestPool_RetriesThenSucceeds(t *testing.T) {
	var attempts int64
	var mu sync.Mutex
	var results []*Result

	pool, err := New(Config{
		Workers:    1,
		QueueSize:  1,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnResult: func(r *Result) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, r)
		},
	}, func(ctx context.Context, task *Task) error {
		if atomic.AddInt64(&attempts, 1) < 3 {
			return errors.New("gateway timeout")
		}
		return nil
	}, nil)
	require.NoError(t, err)
	pool.Start()

	require.NoError(t, pool.Submit(&Task{ID: "alert-1"}))
	require.NoError(t, pool.Stop())

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 3, results[0].Attempts)
	assert.Equal(t, int64(2), pool.Stats().Retried)
}

func TestPool_PermanentErrorNotRetried(t *testing.T) {
	var attempts int64
	pool, err := New(Config{Workers: 1, QueueSize: 1, MaxRetries: 5, RetryDelay: time.Millisecond},
		func(ctx context.Context, task *Task) error {
			atomic.AddInt64(&attempts, 1)
			return Permanent(errors.New("bad payload"))
		}, nil)
	require.NoError(t, err)
	pool.Start()

	require.NoError(t, pool.Submit(&Task{ID: "bad"}))
	require.NoError(t, pool.Stop())

	assert.Equal(t, int64(1), atomic.LoadInt64(&attempts))
	assert.Equal(t, int64(1), pool.Stats().Failed)
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool, err := New(DefaultConfig(), func(ctx context.Context, task *Task) error { return nil }, nil)
	require.NoError(t, err)
	pool.Start()
	require.NoError(t, pool.Stop())

	assert.ErrorIs(t, pool.Submit(&Task{ID: "late"}), ErrPoolClosed)
}

func TestPool_QueueFull(t *testing.T) {
	pool, err := New(Config{Workers: 1, QueueSize: 1}, func(ctx context.Context, task *Task) error { return nil }, nil)
	require.NoError(t, err)

	require.NoError(t, pool.Submit(&Task{ID: "a"}))
	assert.ErrorIs(t, pool.Submit(&Task{ID: "b"}), ErrQueueFull)
}

func TestNew_RequiresWorkerFunc(t *testing.T) {
	_, err := New(DefaultConfig(), nil, nil)
	assert.Error(t, err)
}
