package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/store"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/task"
)

// ResultStore implements the task.ResultStore interface using PostgreSQL.
// Rows are keyed by task ID and upserted as the invocation moves through
// its lifecycle; a retention sweeper removes rows past their TTL.
type ResultStore struct {
	db store.DBTX
}

// NewResultStore creates a new PostgreSQL implementation of
// task.ResultStore.
func NewResultStore(db store.DBTX) *ResultStore {
	return &ResultStore{db: db}
}

var _ task.ResultStore = (*ResultStore)(nil)

// Put implements task.ResultStore.Put. The WHERE clause on the upsert
// refuses to overwrite a row already in a terminal state, so a late
// write from a racing producer cannot regress success or failure.
func (s *ResultStore) Put(ctx context.Context, res *task.Result) error {
	query := `
		INSERT INTO task_results (task_id, state, payload, error, retry_count, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (task_id) DO UPDATE
		SET state = EXCLUDED.state,
		    payload = EXCLUDED.payload,
		    error = EXCLUDED.error,
		    retry_count = EXCLUDED.retry_count,
		    completed_at = EXCLUDED.completed_at,
		    updated_at = EXCLUDED.updated_at
		WHERE task_results.state NOT IN ($8, $9)
	`
	var payload []byte
	if res.Payload != nil {
		payload = res.Payload
	}
	_, err := s.db.ExecContext(ctx, query,
		res.TaskID,
		res.State,
		payload,
		res.Error,
		res.RetryCount,
		res.CompletedAt,
		res.UpdatedAt.UTC(),
		task.StateSuccess,
		task.StateFailure,
	)
	if err != nil {
		return MapError(fmt.Errorf("failed to upsert task result: %w", err))
	}
	return nil
}

// Get implements task.ResultStore.Get.
func (s *ResultStore) Get(ctx context.Context, id uuid.UUID) (*task.Result, error) {
	query := `
		SELECT task_id, state, payload, error, retry_count, completed_at, updated_at
		FROM task_results
		WHERE task_id = $1
	`
	var res task.Result
	var payload []byte
	var errMsg sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&res.TaskID,
		&res.State,
		&payload,
		&errMsg,
		&res.RetryCount,
		&res.CompletedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		mapped := MapError(err)
		if isNotFound(mapped) {
			return nil, task.ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get task result: %w", mapped)
	}
	if len(payload) > 0 {
		res.Payload = payload
	}
	res.Error = errMsg.String
	return &res, nil
}

// DeleteExpired implements task.ResultStore.DeleteExpired.
func (s *ResultStore) DeleteExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM task_results WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, MapError(fmt.Errorf("failed to delete expired results: %w", err))
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return removed, nil
}
