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

// testRunnerConfig keeps the monitor loops fast and the sweeps out of the
// way for unit tests.
func testRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:        2,
		RedeliveryInterval: 5 * time.Millisecond,
		StuckAge:           time.Hour,
		StuckCheckInterval: time.Hour,
		ResultRetention:    time.Hour,
		SweepInterval:      time.Hour,
	}
}

type runnerFixture struct {
	qstore   *MemoryQueueStore
	results  *MemoryResultStore
	registry *Registry
	queue    *Queue
	runner   *Runner
	client   *Client
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()
	f := &runnerFixture{
		qstore:   NewMemoryQueueStore(),
		results:  NewMemoryResultStore(),
		registry: NewRegistry(),
	}
	f.queue = NewQueue(100, f.qstore, testLogger())
	f.runner = NewRunner(f.queue, f.qstore, f.results, f.registry, testRunnerConfig(), testLogger())
	f.client = NewClient(f.queue, f.results, f.registry, testLogger())
	return f
}

func (f *runnerFixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.runner.Start())
	t.Cleanup(func() {
		f.queue.Close()
		f.runner.Stop()
	})
}

func awaitState(t *testing.T, results ResultStore, id uuid.UUID, want State) *Result {
	t.Helper()
	var res *Result
	require.Eventually(t, func() bool {
		got, err := results.Get(context.Background(), id)
		if err != nil {
			return false
		}
		res = got
		return got.State == want
	}, 3*time.Second, 2*time.Millisecond, "task %s never reached state %s", id, want)
	return res
}

func TestRunnerSuccess(t *testing.T) {
	f := newRunnerFixture(t)

	var attempts atomic.Int32
	require.NoError(t, f.registry.Register("ok", func(ctx context.Context, inv *Invocation) Outcome {
		attempts.Add(1)
		var n int
		if err := inv.Arg(0, &n); err != nil {
			return Failed(err)
		}
		return Done(map[string]int{"echo": n})
	}, Policy{MaxRetries: 3, BaseBackoff: time.Millisecond}))

	f.start(t)

	id, err := f.client.Enqueue(context.Background(), "ok", 7)
	require.NoError(t, err)

	res := awaitState(t, f.results, id, StateSuccess)
	assert.Equal(t, int32(1), attempts.Load())
	assert.JSONEq(t, `{"echo":7}`, string(res.Payload))
	assert.NotNil(t, res.CompletedAt)
	assert.Empty(t, res.Error)

	// Terminal invocations leave no queue row behind.
	assert.Eventually(t, func() bool { return f.qstore.Len() == 0 },
		time.Second, 2*time.Millisecond)
}

func TestRunnerUnknownTaskFailsWithoutRetry(t *testing.T) {
	f := newRunnerFixture(t)
	f.start(t)

	// Simulate a recovered row for a task name this process never
	// registered: terminal failure, never retried.
	inv := mustInvocation(t, "ghost_task")
	require.NoError(t, f.queue.Enqueue(context.Background(), inv))

	res := awaitState(t, f.results, inv.ID, StateFailure)
	assert.Contains(t, res.Error, "not registered")
	assert.Equal(t, 0, res.RetryCount)
	assert.NotNil(t, res.CompletedAt)
}

func TestRunnerRetriesUntilExhausted(t *testing.T) {
	f := newRunnerFixture(t)

	var attempts atomic.Int32
	require.NoError(t, f.registry.Register("always_fails", func(ctx context.Context, inv *Invocation) Outcome {
		attempts.Add(1)
		return Failed(errors.New("smtp unavailable"))
	}, Policy{MaxRetries: 3, BaseBackoff: time.Millisecond}))

	f.start(t)

	id, err := f.client.Enqueue(context.Background(), "always_fails")
	require.NoError(t, err)

	res := awaitState(t, f.results, id, StateFailure)

	// Exactly max_retries+1 execution attempts, never fewer, never more.
	assert.Eventually(t, func() bool { return attempts.Load() == 4 },
		time.Second, 2*time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, int32(4), attempts.Load())

	assert.Equal(t, 3, res.RetryCount)
	assert.Contains(t, res.Error, "smtp unavailable")
}

func TestRunnerRetryThenSucceed(t *testing.T) {
	f := newRunnerFixture(t)

	var attempts atomic.Int32
	require.NoError(t, f.registry.Register("notify", func(ctx context.Context, inv *Invocation) Outcome {
		if attempts.Add(1) <= 2 {
			return Failed(errors.New("mail server flake"))
		}
		var quizID int
		if err := inv.Arg(0, &quizID); err != nil {
			return Failed(err)
		}
		return Done(map[string]int{"quiz_id": quizID})
	}, Policy{MaxRetries: 3, BaseBackoff: time.Millisecond}))

	f.start(t)

	id, err := f.client.Enqueue(context.Background(), "notify", 42)
	require.NoError(t, err)

	res := awaitState(t, f.results, id, StateSuccess)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, 2, res.RetryCount, "retry count observed at the point of success")
	assert.Equal(t, id, res.TaskID, "task id preserved across attempts")
	assert.JSONEq(t, `{"quiz_id":42}`, string(res.Payload))
}

func TestRunnerHandlerRequestsEarlyRetry(t *testing.T) {
	f := newRunnerFixture(t)

	var attempts atomic.Int32
	require.NoError(t, f.registry.Register("early_retry", func(ctx context.Context, inv *Invocation) Outcome {
		if attempts.Add(1) == 1 {
			// Handler detected a transient downstream outage and asks
			// for its own delay instead of the generic backoff.
			return Retry(3*time.Millisecond, errors.New("downstream outage"))
		}
		return Done(nil)
	}, Policy{MaxRetries: 3, BaseBackoff: time.Hour}))

	f.start(t)

	id, err := f.client.Enqueue(context.Background(), "early_retry")
	require.NoError(t, err)

	res := awaitState(t, f.results, id, StateSuccess)
	assert.Equal(t, int32(2), attempts.Load())
	assert.Equal(t, 1, res.RetryCount)
}

func TestRunnerPanicClassifiedTransient(t *testing.T) {
	f := newRunnerFixture(t)

	var attempts atomic.Int32
	require.NoError(t, f.registry.Register("panics_once", func(ctx context.Context, inv *Invocation) Outcome {
		if attempts.Add(1) == 1 {
			panic("boom")
		}
		return Done(nil)
	}, Policy{MaxRetries: 2, BaseBackoff: time.Millisecond}))

	f.start(t)

	id, err := f.client.Enqueue(context.Background(), "panics_once")
	require.NoError(t, err)

	awaitState(t, f.results, id, StateSuccess)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestRunnerTerminalStateNeverRegresses(t *testing.T) {
	f := newRunnerFixture(t)

	require.NoError(t, f.registry.Register("ok", noopHandler,
		Policy{MaxRetries: 0, BaseBackoff: time.Millisecond}))

	f.start(t)

	id, err := f.client.Enqueue(context.Background(), "ok")
	require.NoError(t, err)
	awaitState(t, f.results, id, StateSuccess)

	// A late non-terminal write (e.g. a redelivered duplicate after a
	// crash) must not pull the result back out of its terminal state.
	require.NoError(t, f.results.Put(context.Background(), &Result{
		TaskID:    id,
		State:     StatePending,
		UpdatedAt: time.Now().UTC(),
	}))

	res, err := f.results.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, res.State)
}

func TestRunnerRecoversPersistedWork(t *testing.T) {
	f := newRunnerFixture(t)

	var attempts atomic.Int32
	require.NoError(t, f.registry.Register("recovered", func(ctx context.Context, inv *Invocation) Outcome {
		attempts.Add(1)
		return Done(nil)
	}, Policy{MaxRetries: 1, BaseBackoff: time.Millisecond}))

	// Rows left behind by a previous process: one pending, one that was
	// mid-execution when the process died.
	pendingInv := mustInvocation(t, "recovered")
	require.NoError(t, f.qstore.Save(context.Background(), pendingInv))

	startedInv := mustInvocation(t, "recovered")
	require.NoError(t, f.qstore.Save(context.Background(), startedInv))
	require.NoError(t, f.qstore.MarkStarted(context.Background(), startedInv.ID))

	f.start(t)

	assert.Eventually(t, func() bool { return attempts.Load() == 2 },
		time.Second, 2*time.Millisecond)
	assert.Eventually(t, func() bool { return f.qstore.Len() == 0 },
		time.Second, 2*time.Millisecond)
}
