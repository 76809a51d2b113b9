package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamasafe/go-mamasafe/internal/infrastructure/redpanda"
	"github.com/mamasafe/go-mamasafe/pkg/workerpool"
)

func TestEnqueue_QueuedTasksRunAfterConsumerStops(t *testing.T) {
	release := make(chan struct{})
	var handled int64
	workers, err := workerpool.New(workerpool.Config{Workers: 1, QueueSize: 8}, func(ctx context.Context, task *workerpool.Task) error {
		<-release
		if err := ctx.Err(); err != nil {
			return err
		}
		atomic.AddInt64(&handled, 1)
		return nil
	}, nil)
	require.NoError(t, err)
	workers.Start()

	loopCtx, cancelLoop := context.WithCancel(context.Background())
	handle := enqueue(workers, nil)
	for _, key := range []string{"e1", "e2", "e3"} {
		msg := &redpanda.ConsumedMessage{Topic: "pharmacovigilance.events", Key: []byte(key), Value: []byte(`{}`)}
		require.NoError(t, handle(loopCtx, msg))
	}

	// consumer shutdown cancels its loop context while alerts are still queued
	cancelLoop()
	close(release)
	require.NoError(t, workers.Stop())

	assert.Equal(t, int64(3), atomic.LoadInt64(&handled))
	stats := workers.Stats()
	assert.Equal(t, int64(3), stats.Completed)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestEnqueue_QueueFullReturnsError(t *testing.T) {
	block := make(chan struct{})
	workers, err := workerpool.New(workerpool.Config{Workers: 1, QueueSize: 1, ShutdownTimeout: time.Second}, func(ctx context.Context, task *workerpool.Task) error {
		<-block
		return nil
	}, nil)
	require.NoError(t, err)
	workers.Start()
	defer func() {
		close(block)
		_ = workers.Stop()
	}()

	handle := enqueue(workers, nil)
	msg := &redpanda.ConsumedMessage{Topic: "pharmacovigilance.events", Value: []byte(`{}`)}

	var lastErr error
	for i := 0; i < 4 && lastErr == nil; i++ {
		lastErr = handle(context.Background(), msg)
	}
	assert.ErrorIs(t, lastErr, workerpool.ErrQueueFull)
}
