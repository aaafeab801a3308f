package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/store"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/task"
)

// QueueStore implements the task.QueueStore interface using PostgreSQL.
// Each queued invocation is one row in task_invocations, created on
// enqueue and deleted once the invocation reaches a terminal result, so
// pending and in-flight work survives a process restart.
type QueueStore struct {
	db store.DBTX
}

// NewQueueStore creates a new PostgreSQL implementation of task.QueueStore.
func NewQueueStore(db store.DBTX) *QueueStore {
	return &QueueStore{db: db}
}

var _ task.QueueStore = (*QueueStore)(nil)

// Save implements task.QueueStore.Save.
func (s *QueueStore) Save(ctx context.Context, inv *task.Invocation) error {
	args, err := json.Marshal(inv.Args)
	if err != nil {
		return fmt.Errorf("failed to marshal invocation args: %w", err)
	}

	query := `
		INSERT INTO task_invocations (id, name, args, state, retry_count, enqueued_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, query,
		inv.ID,
		inv.Name,
		args,
		task.StatePending,
		inv.RetryCount,
		inv.EnqueuedAt,
		now,
	)
	if err != nil {
		return MapError(fmt.Errorf("failed to save invocation: %w", err))
	}
	return nil
}

// MarkStarted implements task.QueueStore.MarkStarted.
func (s *QueueStore) MarkStarted(ctx context.Context, id uuid.UUID) error {
	return s.setState(ctx, id, task.StateStarted)
}

// MarkRetry implements task.QueueStore.MarkRetry.
func (s *QueueStore) MarkRetry(ctx context.Context, id uuid.UUID, retryCount int, nextAttemptAt time.Time) error {
	at := nextAttemptAt.UTC()
	query := `
		UPDATE task_invocations
		SET state = $1, retry_count = $2, next_attempt_at = $3, updated_at = $4
		WHERE id = $5
	`
	_, err := s.db.ExecContext(ctx, query,
		task.StateRetry, retryCount, at, time.Now().UTC(), id)
	if err != nil {
		return MapError(fmt.Errorf("failed to mark invocation for retry: %w", err))
	}
	return nil
}

// MarkPending implements task.QueueStore.MarkPending.
func (s *QueueStore) MarkPending(ctx context.Context, id uuid.UUID) error {
	return s.setState(ctx, id, task.StatePending)
}

// Delete implements task.QueueStore.Delete.
func (s *QueueStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM task_invocations WHERE id = $1`, id)
	if err != nil {
		return MapError(fmt.Errorf("failed to delete invocation: %w", err))
	}
	return nil
}

// Pending implements task.QueueStore.Pending.
func (s *QueueStore) Pending(ctx context.Context) ([]*task.Invocation, error) {
	query := `
		SELECT id, name, args, retry_count, enqueued_at
		FROM task_invocations
		WHERE state = $1
		ORDER BY enqueued_at ASC
	`
	return s.queryInvocations(ctx, query, task.StatePending)
}

// DueRetries implements task.QueueStore.DueRetries.
func (s *QueueStore) DueRetries(ctx context.Context, now time.Time) ([]*task.Invocation, error) {
	query := `
		SELECT id, name, args, retry_count, enqueued_at
		FROM task_invocations
		WHERE state = $1 AND next_attempt_at <= $2
		ORDER BY next_attempt_at ASC
	`
	return s.queryInvocations(ctx, query, task.StateRetry, now.UTC())
}

// StuckStarted implements task.QueueStore.StuckStarted.
func (s *QueueStore) StuckStarted(ctx context.Context, olderThan time.Duration) ([]*task.Invocation, error) {
	query := `
		SELECT id, name, args, retry_count, enqueued_at
		FROM task_invocations
		WHERE state = $1 AND updated_at < $2
		ORDER BY enqueued_at ASC
	`
	cutoff := time.Now().UTC().Add(-olderThan)
	return s.queryInvocations(ctx, query, task.StateStarted, cutoff)
}

func (s *QueueStore) setState(ctx context.Context, id uuid.UUID, state task.State) error {
	query := `
		UPDATE task_invocations
		SET state = $1, updated_at = $2
		WHERE id = $3
	`
	_, err := s.db.ExecContext(ctx, query, state, time.Now().UTC(), id)
	if err != nil {
		return MapError(fmt.Errorf("failed to set invocation state %s: %w", state, err))
	}
	return nil
}

func (s *QueueStore) queryInvocations(ctx context.Context, query string, args ...any) ([]*task.Invocation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(fmt.Errorf("failed to query invocations: %w", err))
	}
	defer rows.Close()

	var invocations []*task.Invocation
	for rows.Next() {
		var inv task.Invocation
		var rawArgs []byte
		if err := rows.Scan(&inv.ID, &inv.Name, &rawArgs, &inv.RetryCount, &inv.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invocation row: %w", err)
		}
		if err := json.Unmarshal(rawArgs, &inv.Args); err != nil {
			return nil, fmt.Errorf("failed to decode invocation args: %w", err)
		}
		invocations = append(invocations, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(fmt.Errorf("error iterating invocation rows: %w", err))
	}
	return invocations, nil
}
