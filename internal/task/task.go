package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State represents the current lifecycle state of a task invocation.
type State string

// Possible task states. Success and Failure are terminal: once a result
// reaches either, it never transitions again. Retry cycles back to Pending
// when the invocation becomes visible again.
const (
	StatePending State = "pending"
	StateStarted State = "started"
	StateRetry   State = "retry"
	StateSuccess State = "success"
	StateFailure State = "failure"
)

// Terminal reports whether the state permits no further transitions.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailure
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// Common errors returned by the task layer.
var (
	ErrTaskNotFound   = errors.New("task name not registered")
	ErrResultNotFound = errors.New("task result not found")
)

// Invocation is a single serialized request to run a named task. It is
// created by a producer at submission time and is immutable except for
// RetryCount, which the worker increments on each requeue. The ID is
// preserved across all retry attempts so status polling stays consistent.
type Invocation struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	Args       []json.RawMessage `json:"args"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
	RetryCount int               `json:"retry_count"`
}

// NewInvocation builds an invocation for the named task, serializing each
// argument to JSON in order.
func NewInvocation(name string, args ...any) (*Invocation, error) {
	raw := make([]json.RawMessage, 0, len(args))
	for i, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal argument %d for task %q: %w", i, name, err)
		}
		raw = append(raw, b)
	}

	return &Invocation{
		ID:         uuid.New(),
		Name:       name,
		Args:       raw,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// Arg decodes the argument at index i into v. Handlers use this to unpack
// their positional arguments.
func (inv *Invocation) Arg(i int, v any) error {
	if i < 0 || i >= len(inv.Args) {
		return fmt.Errorf("task %q: argument index %d out of range (have %d)", inv.Name, i, len(inv.Args))
	}
	if err := json.Unmarshal(inv.Args[i], v); err != nil {
		return fmt.Errorf("task %q: failed to decode argument %d: %w", inv.Name, i, err)
	}
	return nil
}

// Result is the observable record of a task invocation, keyed by the
// invocation ID. Exactly one worker mutates a given result at a time.
// Results expire from the store after the retention window.
type Result struct {
	TaskID      uuid.UUID       `json:"task_id"`
	State       State           `json:"state"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Error       string          `json:"error,omitempty"`
	RetryCount  int             `json:"retry_count"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Handler executes one invocation's arguments and reports what happened as
// an Outcome. Returning an outcome (rather than panicking or signaling retry
// through errors alone) keeps retry control flow explicit in the worker loop.
type Handler func(ctx context.Context, inv *Invocation) Outcome

// outcomeKind discriminates the Outcome variants.
type outcomeKind int

const (
	outcomeDone outcomeKind = iota
	outcomeFailed
	outcomeRetry
)

// Outcome is the result variant returned by a Handler: Done with a payload,
// Failed with an error, or Retry with an optional explicit delay.
type Outcome struct {
	kind    outcomeKind
	payload json.RawMessage
	err     error
	delay   time.Duration
}

// Done reports successful completion. The value is serialized as the result
// payload; a value that cannot be marshaled converts the outcome to Failed.
func Done(value any) Outcome {
	if value == nil {
		return Outcome{kind: outcomeDone}
	}
	b, err := json.Marshal(value)
	if err != nil {
		return Failed(fmt.Errorf("failed to marshal task payload: %w", err))
	}
	return Outcome{kind: outcomeDone, payload: b}
}

// Failed reports an error the handler could not work around. The worker
// classifies it as transient and retries until the policy budget runs out.
func Failed(err error) Outcome {
	return Outcome{kind: outcomeFailed, err: err}
}

// Retry requests an early retry with an explicit delay, bypassing the
// generic backoff computation. A zero delay falls back to policy backoff.
func Retry(delay time.Duration, err error) Outcome {
	return Outcome{kind: outcomeRetry, err: err, delay: delay}
}

// Err returns the error carried by a Failed or Retry outcome, or nil.
func (o Outcome) Err() error {
	return o.err
}

// Payload returns the serialized value of a Done outcome, or nil.
func (o Outcome) Payload() json.RawMessage {
	return o.payload
}

// QueueStore persists queued invocations so pending and in-flight work
// survives a worker restart. Rows move pending -> started -> (deleted) on
// the happy path, or started -> retry -> pending across backoff cycles.
type QueueStore interface {
	// Save persists a newly enqueued invocation in the pending state.
	Save(ctx context.Context, inv *Invocation) error

	// MarkStarted records that a worker has picked up the invocation.
	MarkStarted(ctx context.Context, id uuid.UUID) error

	// MarkRetry parks the invocation until nextAttemptAt, recording the
	// incremented retry count.
	MarkRetry(ctx context.Context, id uuid.UUID, retryCount int, nextAttemptAt time.Time) error

	// MarkPending returns the invocation to the pending state ahead of
	// redelivery.
	MarkPending(ctx context.Context, id uuid.UUID) error

	// Delete removes the invocation once it reaches a terminal result.
	Delete(ctx context.Context, id uuid.UUID) error

	// Pending returns all invocations in the pending state in FIFO order.
	Pending(ctx context.Context) ([]*Invocation, error)

	// DueRetries returns invocations in the retry state whose delay has
	// elapsed as of now, in FIFO order.
	DueRetries(ctx context.Context, now time.Time) ([]*Invocation, error)

	// StuckStarted returns invocations that have sat in the started state
	// longer than olderThan. A zero olderThan returns all started rows.
	StuckStarted(ctx context.Context, olderThan time.Duration) ([]*Invocation, error)
}

// ResultStore is the key-value store mapping a task ID to its current
// result. Entries expire after a fixed retention window.
type ResultStore interface {
	// Put upserts the result for its task ID.
	Put(ctx context.Context, res *Result) error

	// Get returns the current result for the task ID, or ErrResultNotFound
	// if the ID is unknown or the entry has expired.
	Get(ctx context.Context, id uuid.UUID) (*Result, error)

	// DeleteExpired removes results not updated within the retention
	// window, regardless of state. Returns the number of rows removed.
	DeleteExpired(ctx context.Context, retention time.Duration) (int64, error)
}
