package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Client is the producer-facing surface: fire-and-forget submission plus
// point-in-time status reads. API handlers hold a Client and never touch
// the broker or worker pool directly.
type Client struct {
	broker   Broker
	results  ResultStore
	registry *Registry
	logger   *slog.Logger
}

// NewClient creates a producer client over the broker, result store, and
// registry.
func NewClient(broker Broker, results ResultStore, registry *Registry, logger *slog.Logger) *Client {
	return &Client{
		broker:   broker,
		results:  results,
		registry: registry,
		logger:   logger.With("component", "task_client"),
	}
}

// Enqueue submits an invocation of the named task and returns its id
// immediately, regardless of worker availability. When the broker is
// unhealthy or full the handler runs synchronously in the calling
// goroutine instead (degraded mode): async isolation is sacrificed for
// availability, but the action is never silently dropped and the returned
// id remains pollable.
func (c *Client) Enqueue(ctx context.Context, name string, args ...any) (uuid.UUID, error) {
	reg, err := c.registry.Lookup(name)
	if err != nil {
		return uuid.Nil, err
	}

	inv, err := NewInvocation(name, args...)
	if err != nil {
		return uuid.Nil, err
	}

	if err := c.results.Put(ctx, &Result{
		TaskID:    inv.ID,
		State:     StatePending,
		UpdatedAt: inv.EnqueuedAt,
	}); err != nil {
		return uuid.Nil, fmt.Errorf("failed to record pending result: %w", err)
	}

	if !c.broker.Healthy() {
		c.logger.Warn("broker unavailable, executing task synchronously",
			"task_id", inv.ID,
			"task_name", name)
		c.executeInline(ctx, reg, inv)
		return inv.ID, nil
	}

	if err := c.broker.Enqueue(ctx, inv); err != nil {
		if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrQueueClosed) {
			c.logger.Warn("broker rejected invocation, executing task synchronously",
				"task_id", inv.ID,
				"task_name", name,
				"reason", err)
			c.executeInline(ctx, reg, inv)
			return inv.ID, nil
		}
		return uuid.Nil, fmt.Errorf("failed to enqueue task %q: %w", name, err)
	}

	return inv.ID, nil
}

// Status reads the current result for the task id. It never blocks waiting
// for completion; callers poll. Unknown or expired ids yield
// ErrResultNotFound.
func (c *Client) Status(ctx context.Context, id uuid.UUID) (*Result, error) {
	return c.results.Get(ctx, id)
}

// executeInline runs one attempt of the handler in the caller's goroutine
// and records a terminal result. Degraded mode gets no retry budget: a
// retry outcome here is recorded as a failure, since there is no broker to
// park the invocation in.
func (c *Client) executeInline(ctx context.Context, reg Registration, inv *Invocation) {
	c.writeResult(ctx, &Result{
		TaskID: inv.ID,
		State:  StateStarted,
	})

	outcome := func() (o Outcome) {
		defer func() {
			if p := recover(); p != nil {
				o = Failed(fmt.Errorf("task %q panicked: %v", inv.Name, p))
			}
		}()
		return reg.Handler(ctx, inv)
	}()

	now := nowUTC()
	switch outcome.kind {
	case outcomeDone:
		c.writeResult(ctx, &Result{
			TaskID:      inv.ID,
			State:       StateSuccess,
			Payload:     outcome.payload,
			CompletedAt: &now,
		})
	default:
		c.logger.Error("synchronous task execution failed",
			"task_id", inv.ID,
			"task_name", inv.Name,
			"error", outcome.err)
		c.writeResult(ctx, &Result{
			TaskID:      inv.ID,
			State:       StateFailure,
			Error:       errString(outcome.err),
			CompletedAt: &now,
		})
	}
}

func (c *Client) writeResult(ctx context.Context, res *Result) {
	res.UpdatedAt = nowUTC()
	if err := c.results.Put(ctx, res); err != nil {
		c.logger.Error("failed to write task result",
			"task_id", res.TaskID,
			"state", res.State,
			"error", err)
	}
}
