package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// queueRowState tracks where a persisted invocation sits in its lifecycle.
type queueRowState string

const (
	rowPending queueRowState = "pending"
	rowStarted queueRowState = "started"
	rowRetry   queueRowState = "retry"
)

type queueRow struct {
	inv           *Invocation
	state         queueRowState
	nextAttemptAt time.Time
	updatedAt     time.Time
	seq           int64
}

// MemoryQueueStore is an in-process QueueStore. It backs tests and the
// dev-mode deployment where no database is configured; queued work then
// does not survive a restart.
type MemoryQueueStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*queueRow
	seq  int64
}

// NewMemoryQueueStore creates an empty in-memory queue store.
func NewMemoryQueueStore() *MemoryQueueStore {
	return &MemoryQueueStore{
		rows: make(map[uuid.UUID]*queueRow),
	}
}

func (s *MemoryQueueStore) Save(ctx context.Context, inv *Invocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.rows[inv.ID] = &queueRow{
		inv:       inv,
		state:     rowPending,
		updatedAt: time.Now().UTC(),
		seq:       s.seq,
	}
	return nil
}

func (s *MemoryQueueStore) MarkStarted(ctx context.Context, id uuid.UUID) error {
	return s.setState(id, rowStarted, 0, time.Time{})
}

func (s *MemoryQueueStore) MarkRetry(ctx context.Context, id uuid.UUID, retryCount int, nextAttemptAt time.Time) error {
	return s.setState(id, rowRetry, retryCount, nextAttemptAt)
}

func (s *MemoryQueueStore) MarkPending(ctx context.Context, id uuid.UUID) error {
	return s.setState(id, rowPending, 0, time.Time{})
}

func (s *MemoryQueueStore) setState(id uuid.UUID, state queueRowState, retryCount int, nextAttemptAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil // row already removed, treat as no-op
	}
	row.state = state
	row.updatedAt = time.Now().UTC()
	if state == rowRetry {
		row.inv.RetryCount = retryCount
		row.nextAttemptAt = nextAttemptAt
	}
	return nil
}

func (s *MemoryQueueStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *MemoryQueueStore) Pending(ctx context.Context) ([]*Invocation, error) {
	return s.collect(func(row *queueRow) bool {
		return row.state == rowPending
	}), nil
}

func (s *MemoryQueueStore) DueRetries(ctx context.Context, now time.Time) ([]*Invocation, error) {
	return s.collect(func(row *queueRow) bool {
		return row.state == rowRetry && !row.nextAttemptAt.After(now)
	}), nil
}

func (s *MemoryQueueStore) StuckStarted(ctx context.Context, olderThan time.Duration) ([]*Invocation, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	return s.collect(func(row *queueRow) bool {
		if row.state != rowStarted {
			return false
		}
		return olderThan == 0 || row.updatedAt.Before(cutoff)
	}), nil
}

// collect returns matching invocations in insertion (FIFO) order.
func (s *MemoryQueueStore) collect(match func(*queueRow) bool) []*Invocation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []*queueRow
	for _, row := range s.rows {
		if match(row) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	invs := make([]*Invocation, 0, len(rows))
	for _, row := range rows {
		invs = append(invs, row.inv)
	}
	return invs
}

// Len reports the number of persisted rows.
func (s *MemoryQueueStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// MemoryResultStore is an in-process ResultStore with the same
// terminal-state guard as the Postgres implementation: a result that has
// reached success or failure is never overwritten by a later non-terminal
// write.
type MemoryResultStore struct {
	mu      sync.RWMutex
	results map[uuid.UUID]*Result
}

// NewMemoryResultStore creates an empty in-memory result store.
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{
		results: make(map[uuid.UUID]*Result),
	}
}

func (s *MemoryResultStore) Put(ctx context.Context, res *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.results[res.TaskID]; ok && existing.State.Terminal() {
		return nil
	}
	cp := *res
	s.results[res.TaskID] = &cp
	return nil
}

func (s *MemoryResultStore) Get(ctx context.Context, id uuid.UUID) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[id]
	if !ok {
		return nil, ErrResultNotFound
	}
	cp := *res
	return &cp, nil
}

func (s *MemoryResultStore) DeleteExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, res := range s.results {
		if res.UpdatedAt.Before(cutoff) {
			delete(s.results, id)
			n++
		}
	}
	return n, nil
}
