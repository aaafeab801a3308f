package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Common errors returned by the Queue.
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// Broker is the durable channel carrying invocations from producers to
// workers. Enqueue never blocks on a slow consumer; Channel hands each
// invocation to exactly one receiver.
type Broker interface {
	// Enqueue appends an invocation and returns immediately. It fails
	// with ErrQueueFull when capacity is exhausted and ErrQueueClosed
	// after shutdown; producers treat both as transient.
	Enqueue(ctx context.Context, inv *Invocation) error

	// Channel returns the read-only channel workers consume from.
	Channel() <-chan *Invocation

	// Healthy reports whether the broker is accepting invocations.
	// Producers use this capability check to select the degraded
	// synchronous path.
	Healthy() bool

	// Close stops the broker; further submissions fail with
	// ErrQueueClosed.
	Close()
}

// Queue implements Broker as a bounded buffered channel with write-through
// persistence: an invocation is durably saved before it becomes visible to
// workers, so pending work survives a process restart.
type Queue struct {
	invocations chan *Invocation
	store       QueueStore
	logger      *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewQueue creates a queue with the given buffer size backed by the store.
func NewQueue(size int, store QueueStore, logger *slog.Logger) *Queue {
	return &Queue{
		invocations: make(chan *Invocation, size),
		store:       store,
		logger:      logger.With("component", "task_queue"),
	}
}

// Enqueue durably saves the invocation, then makes it visible to workers.
// If the channel is full the saved row is rolled back so a degraded-mode
// producer does not cause a duplicate execution later.
func (q *Queue) Enqueue(ctx context.Context, inv *Invocation) error {
	if !q.Healthy() {
		return ErrQueueClosed
	}

	if err := q.store.Save(ctx, inv); err != nil {
		return fmt.Errorf("failed to persist invocation: %w", err)
	}

	// The closed check and the send share one critical section: Close
	// holds the same lock around close(q.invocations), so the channel
	// cannot be closed between the check and the send. The send is
	// non-blocking, so holding the lock here never stalls Close.
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.rollback(ctx, inv, "closed queue")
		return ErrQueueClosed
	}
	select {
	case q.invocations <- inv:
		q.mu.Unlock()
		q.logger.Debug("invocation enqueued",
			"task_id", inv.ID,
			"task_name", inv.Name,
			"queue_len", len(q.invocations),
			"queue_cap", cap(q.invocations))
		return nil
	default:
		q.mu.Unlock()
		q.rollback(ctx, inv, "full queue")
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(q.invocations))
	}
}

// rollback removes a row saved by an Enqueue that could not publish, so a
// degraded-mode producer does not cause a duplicate execution later.
func (q *Queue) rollback(ctx context.Context, inv *Invocation, reason string) {
	if err := q.store.Delete(ctx, inv.ID); err != nil {
		q.logger.Error("failed to roll back invocation after "+reason,
			"task_id", inv.ID,
			"error", err)
	}
}

// requeue makes an already-persisted invocation visible again (recovery and
// retry redelivery). Reports whether the channel had room; when false the
// row stays parked for the next redelivery pass.
func (q *Queue) requeue(inv *Invocation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.invocations <- inv:
		return true
	default:
		return false
	}
}

// Channel returns the read-only consumer side of the queue.
func (q *Queue) Channel() <-chan *Invocation {
	return q.invocations
}

// Healthy reports whether the queue is accepting submissions.
func (q *Queue) Healthy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.closed
}

// Close closes the queue, preventing further submissions. Workers drain
// whatever is already buffered.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.invocations)
		q.logger.Info("task queue closed")
	}
}
