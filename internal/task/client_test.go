package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientEnqueueReturnsImmediately(t *testing.T) {
	f := newRunnerFixture(t)
	require.NoError(t, f.registry.Register("slow", func(ctx context.Context, inv *Invocation) Outcome {
		time.Sleep(time.Second)
		return Done(nil)
	}, Policy{MaxRetries: 0, BaseBackoff: time.Millisecond}))

	// No workers running at all: submission must still return an id
	// within a short latency bound.
	start := time.Now()
	id, err := f.client.Enqueue(context.Background(), "slow")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	res, err := f.client.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatePending, res.State)
}

func TestClientEnqueueUnknownTask(t *testing.T) {
	f := newRunnerFixture(t)

	_, err := f.client.Enqueue(context.Background(), "no_such_task")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestClientStatusUnknownID(t *testing.T) {
	f := newRunnerFixture(t)

	_, err := f.client.Status(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrResultNotFound)
}

func TestClientDegradedModeOnClosedBroker(t *testing.T) {
	f := newRunnerFixture(t)

	var attempts atomic.Int32
	require.NoError(t, f.registry.Register("notify", func(ctx context.Context, inv *Invocation) Outcome {
		attempts.Add(1)
		return Done(map[string]bool{"sent": true})
	}, Policy{MaxRetries: 3, BaseBackoff: time.Millisecond}))

	f.queue.Close()

	// Broker unavailable: the handler runs synchronously in the calling
	// goroutine and the returned id is still pollable.
	id, err := f.client.Enqueue(context.Background(), "notify")
	require.NoError(t, err)
	assert.Equal(t, int32(1), attempts.Load())

	res, err := f.client.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, res.State)
	assert.JSONEq(t, `{"sent":true}`, string(res.Payload))
}

func TestClientDegradedModeOnFullQueue(t *testing.T) {
	qstore := NewMemoryQueueStore()
	results := NewMemoryResultStore()
	registry := NewRegistry()
	queue := NewQueue(1, qstore, testLogger())
	client := NewClient(queue, results, registry, testLogger())

	var attempts atomic.Int32
	require.NoError(t, registry.Register("notify", func(ctx context.Context, inv *Invocation) Outcome {
		attempts.Add(1)
		return Done(nil)
	}, Policy{MaxRetries: 0, BaseBackoff: time.Millisecond}))

	// Fill the single-slot queue; nothing is consuming.
	_, err := client.Enqueue(context.Background(), "notify")
	require.NoError(t, err)
	assert.Equal(t, int32(0), attempts.Load())

	// Second submission overflows and falls back to inline execution.
	id, err := client.Enqueue(context.Background(), "notify")
	require.NoError(t, err)
	assert.Equal(t, int32(1), attempts.Load())

	res, err := client.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, res.State)
}

func TestClientDegradedModeRecordsFailure(t *testing.T) {
	f := newRunnerFixture(t)

	require.NoError(t, f.registry.Register("flaky", func(ctx context.Context, inv *Invocation) Outcome {
		return Retry(time.Minute, errors.New("mail server down"))
	}, Policy{MaxRetries: 3, BaseBackoff: time.Millisecond}))

	f.queue.Close()

	// With no broker to park a retry in, degraded mode gets exactly one
	// attempt; the retry request is surfaced as a failure.
	id, err := f.client.Enqueue(context.Background(), "flaky")
	require.NoError(t, err)

	res, err := f.client.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateFailure, res.State)
	assert.Contains(t, res.Error, "mail server down")
	assert.NotNil(t, res.CompletedAt)
}
