package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// ScheduleEntry is the static configuration for one periodic task: a cron
// expression plus the fixed arguments every firing is invoked with. Entries
// are loaded once at scheduler startup and immutable for the process
// lifetime.
type ScheduleEntry struct {
	TaskName string
	Cron     string
	Args     []any
}

// Scheduler is the beat process: a single timer loop that injects periodic
// invocations into the broker, each with a fresh task id. Exactly one
// scheduler instance runs cluster-wide; fire times missed while the process
// was down are skipped, not backfilled, because the cron engine computes
// the next fire time from the current clock at startup.
type Scheduler struct {
	cron   *cron.Cron
	client *Client
	logger *slog.Logger
}

// NewScheduler creates an empty scheduler submitting through the client.
// SkipIfStillRunning keeps a slow firing from stacking up behind itself.
func NewScheduler(client *Client, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		client: client,
		logger: logger.With("component", "task_scheduler"),
	}
}

// Add registers a schedule entry. The task name must already be registered
// and the cron expression must parse; both are validated up front so a
// misconfigured entry fails at startup rather than at first fire.
func (s *Scheduler) Add(entry ScheduleEntry) error {
	if _, err := s.client.registry.Lookup(entry.TaskName); err != nil {
		return fmt.Errorf("schedule entry for unknown task: %w", err)
	}

	_, err := s.cron.AddFunc(entry.Cron, func() {
		id, err := s.client.Enqueue(context.Background(), entry.TaskName, entry.Args...)
		if err != nil {
			s.logger.Error("failed to enqueue scheduled task",
				"task_name", entry.TaskName,
				"error", err)
			return
		}
		s.logger.Info("scheduled task enqueued",
			"task_name", entry.TaskName,
			"task_id", id)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for task %q: %w", entry.Cron, entry.TaskName, err)
	}

	s.logger.Info("schedule entry registered",
		"task_name", entry.TaskName,
		"cron", entry.Cron)
	return nil
}

// Start begins the timer loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "entry_count", len(s.cron.Entries()))
}

// Stop halts the timer loop. Firings already handed to the broker are
// unaffected.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Entries returns the number of registered schedule entries.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
