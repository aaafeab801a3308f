package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RunnerConfig holds configuration for the worker runner.
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers pull from the
	// broker. If zero or negative, defaults to 2.
	WorkerCount int

	// RedeliveryInterval is how often parked retries are checked for
	// elapsed delays and made visible again.
	RedeliveryInterval time.Duration

	// StuckAge is how long an invocation may sit in the started state
	// before it is considered stuck and reset to pending.
	StuckAge time.Duration

	// StuckCheckInterval is how often to check for stuck invocations.
	StuckCheckInterval time.Duration

	// ResultRetention is how long results are kept after their last
	// update, regardless of terminal state.
	ResultRetention time.Duration

	// SweepInterval is how often expired results are purged.
	SweepInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
// The one-hour retention matches the producer's expectation that a task id
// stays pollable for a while after completion.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:        2,
		RedeliveryInterval: 5 * time.Second,
		StuckAge:           30 * time.Minute,
		StuckCheckInterval: 5 * time.Minute,
		ResultRetention:    time.Hour,
		SweepInterval:      5 * time.Minute,
	}
}

// Runner owns the worker pool. Each worker pulls invocations from the
// broker, drives the execution state machine, writes results, and requeues
// transient failures with backoff.
type Runner struct {
	queue    *Queue
	qstore   QueueStore
	results  ResultStore
	registry *Registry

	config     RunnerConfig
	logger     *slog.Logger
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	nowFn      func() time.Time
}

// NewRunner creates a Runner over the given broker queue, stores, and
// registry.
func NewRunner(
	queue *Queue,
	qstore QueueStore,
	results ResultStore,
	registry *Registry,
	config RunnerConfig,
	logger *slog.Logger,
) *Runner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 2
	}
	if config.RedeliveryInterval <= 0 {
		config.RedeliveryInterval = 5 * time.Second
	}
	if config.StuckCheckInterval <= 0 {
		config.StuckCheckInterval = 5 * time.Minute
	}
	if config.ResultRetention <= 0 {
		config.ResultRetention = time.Hour
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		queue:      queue,
		qstore:     qstore,
		results:    results,
		registry:   registry,
		config:     config,
		logger:     logger.With("component", "task_runner"),
		ctx:        ctx,
		cancelFunc: cancel,
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}

// Start recovers unfinished invocations from the store, then launches the
// worker pool and the redelivery, stuck-task, and retention monitors.
func (r *Runner) Start() error {
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover invocations: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.redeliveryMonitor()

	r.wg.Add(1)
	go r.stuckMonitor()

	r.wg.Add(1)
	go r.retentionSweeper()

	return nil
}

// Stop signals all workers and monitors to exit and waits for them. An
// invocation in flight runs to completion; there is no mid-task
// cancellation.
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
}

// Recover requeues work left over from a previous process: pending rows,
// started rows interrupted by a crash (reset to pending, redelivered
// at-least-once), and parked retries whose delay has already elapsed.
func (r *Runner) Recover() error {
	ctx := context.Background()

	pending, err := r.qstore.Pending(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pending invocations: %w", err)
	}

	interrupted, err := r.qstore.StuckStarted(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to load interrupted invocations: %w", err)
	}

	due, err := r.qstore.DueRetries(ctx, r.nowFn())
	if err != nil {
		return fmt.Errorf("failed to load due retries: %w", err)
	}

	r.logger.Info("recovering unfinished invocations",
		"pending_count", len(pending),
		"interrupted_count", len(interrupted),
		"due_retry_count", len(due))

	for _, inv := range pending {
		if !r.queue.requeue(inv) {
			r.logger.Error("failed to requeue pending invocation, queue is full",
				"task_id", inv.ID,
				"task_name", inv.Name)
		}
	}

	for _, inv := range append(interrupted, due...) {
		if err := r.qstore.MarkPending(ctx, inv.ID); err != nil {
			r.logger.Error("failed to reset invocation to pending",
				"task_id", inv.ID,
				"task_name", inv.Name,
				"error", err)
			continue
		}
		r.writeResult(ctx, &Result{
			TaskID:     inv.ID,
			State:      StatePending,
			RetryCount: inv.RetryCount,
		})
		if !r.queue.requeue(inv) {
			r.logger.Error("failed to requeue recovered invocation, queue is full",
				"task_id", inv.ID,
				"task_name", inv.Name)
		}
	}

	return nil
}

// worker pulls invocations until shutdown or queue close.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case inv, ok := <-r.queue.Channel():
			if !ok {
				r.logger.Debug("queue channel closed, stopping worker", "worker_id", id)
				return
			}
			r.process(inv, id)
		}
	}
}

// process drives one invocation through the state machine:
// started -> success | failure | retry.
func (r *Runner) process(inv *Invocation, workerID int) {
	ctx := context.Background()
	logger := r.logger.With(
		"task_id", inv.ID,
		"task_name", inv.Name,
		"worker_id", workerID,
		"retry_count", inv.RetryCount,
	)

	r.writeResult(ctx, &Result{
		TaskID:     inv.ID,
		State:      StateStarted,
		RetryCount: inv.RetryCount,
	})

	reg, err := r.registry.Lookup(inv.Name)
	if err != nil {
		// Unknown task name is a configuration error, not transient:
		// terminal failure, no retry.
		logger.Error("unknown task name", "error", err)
		r.finish(ctx, inv, &Result{
			TaskID:     inv.ID,
			State:      StateFailure,
			Error:      err.Error(),
			RetryCount: inv.RetryCount,
		})
		return
	}

	if err := r.qstore.MarkStarted(ctx, inv.ID); err != nil {
		logger.Error("failed to mark invocation started", "error", err)
	}

	logger.Info("executing task")
	outcome := r.execute(ctx, reg, inv)

	switch outcome.kind {
	case outcomeDone:
		logger.Info("task completed successfully")
		r.finish(ctx, inv, &Result{
			TaskID:     inv.ID,
			State:      StateSuccess,
			Payload:    outcome.payload,
			RetryCount: inv.RetryCount,
		})

	case outcomeFailed, outcomeRetry:
		if inv.RetryCount >= reg.Policy.MaxRetries {
			logger.Error("task failed, retries exhausted",
				"error", outcome.err,
				"max_retries", reg.Policy.MaxRetries)
			r.finish(ctx, inv, &Result{
				TaskID:     inv.ID,
				State:      StateFailure,
				Error:      errString(outcome.err),
				RetryCount: inv.RetryCount,
			})
			return
		}

		delay := outcome.delay
		if delay <= 0 {
			delay = reg.Policy.BaseBackoff * time.Duration(inv.RetryCount+1)
		}
		inv.RetryCount++

		logger.Warn("task failed, scheduling retry",
			"error", outcome.err,
			"next_retry_count", inv.RetryCount,
			"delay", delay)

		r.writeResult(ctx, &Result{
			TaskID:     inv.ID,
			State:      StateRetry,
			Error:      errString(outcome.err),
			RetryCount: inv.RetryCount,
		})
		if err := r.qstore.MarkRetry(ctx, inv.ID, inv.RetryCount, r.nowFn().Add(delay)); err != nil {
			logger.Error("failed to park invocation for retry", "error", err)
		}
	}
}

// execute invokes the handler, converting a panic into a transient failure
// so a misbehaving handler gets the same retry classification as a
// returned error.
func (r *Runner) execute(ctx context.Context, reg Registration, inv *Invocation) (outcome Outcome) {
	defer func() {
		if p := recover(); p != nil {
			outcome = Failed(fmt.Errorf("task %q panicked: %v", inv.Name, p))
		}
	}()
	return reg.Handler(ctx, inv)
}

// finish writes a terminal result and removes the queue row.
func (r *Runner) finish(ctx context.Context, inv *Invocation, res *Result) {
	now := r.nowFn()
	res.CompletedAt = &now
	r.writeResult(ctx, res)
	if err := r.qstore.Delete(ctx, inv.ID); err != nil {
		r.logger.Error("failed to delete finished invocation",
			"task_id", inv.ID,
			"error", err)
	}
}

func (r *Runner) writeResult(ctx context.Context, res *Result) {
	res.UpdatedAt = r.nowFn()
	if err := r.results.Put(ctx, res); err != nil {
		r.logger.Error("failed to write task result",
			"task_id", res.TaskID,
			"state", res.State,
			"error", err)
	}
}

// redeliveryMonitor makes parked retries visible again once their delay
// elapses, cycling them retry -> pending.
func (r *Runner) redeliveryMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.RedeliveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			ctx := context.Background()
			due, err := r.qstore.DueRetries(ctx, r.nowFn())
			if err != nil {
				r.logger.Error("failed to check for due retries", "error", err)
				continue
			}

			for _, inv := range due {
				if !r.queue.requeue(inv) {
					// Queue full; the row stays due for the next tick.
					break
				}
				if err := r.qstore.MarkPending(ctx, inv.ID); err != nil {
					r.logger.Error("failed to mark redelivered invocation pending",
						"task_id", inv.ID,
						"error", err)
				}
				r.writeResult(ctx, &Result{
					TaskID:     inv.ID,
					State:      StatePending,
					RetryCount: inv.RetryCount,
				})
				r.logger.Debug("redelivered retried invocation",
					"task_id", inv.ID,
					"task_name", inv.Name,
					"retry_count", inv.RetryCount)
			}
		}
	}
}

// stuckMonitor resets invocations stuck in the started state longer than
// StuckAge. Redelivering a possibly-still-running invocation is the
// at-least-once tradeoff.
func (r *Runner) stuckMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			ctx := context.Background()
			stuck, err := r.qstore.StuckStarted(ctx, r.config.StuckAge)
			if err != nil {
				r.logger.Error("failed to check for stuck invocations", "error", err)
				continue
			}
			if len(stuck) == 0 {
				continue
			}

			r.logger.Info("found stuck invocations", "count", len(stuck))
			for _, inv := range stuck {
				if err := r.qstore.MarkPending(ctx, inv.ID); err != nil {
					r.logger.Error("failed to reset stuck invocation",
						"task_id", inv.ID,
						"error", err)
					continue
				}
				if !r.queue.requeue(inv) {
					r.logger.Error("failed to requeue stuck invocation, queue is full",
						"task_id", inv.ID,
						"task_name", inv.Name)
				}
			}
		}
	}
}

// retentionSweeper purges results past the retention window.
func (r *Runner) retentionSweeper() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			n, err := r.results.DeleteExpired(context.Background(), r.config.ResultRetention)
			if err != nil {
				r.logger.Error("failed to sweep expired results", "error", err)
				continue
			}
			if n > 0 {
				r.logger.Debug("swept expired task results", "count", n)
			}
		}
	}
}

func errString(err error) string {
	if err == nil {
		return "task failed"
	}
	return err.Error()
}
