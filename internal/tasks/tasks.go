// Package tasks defines the concrete background task handlers of the quiz
// platform and binds them to the task registry.
package tasks

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/mail"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/report"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/store"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/task"
)

// Task name constants.
const (
	TaskQuizNotification = "quiz_notification"
	TaskMonthlyReports   = "monthly_reports"
	TaskLoginAnalytics   = "login_analytics"
	TaskQuizResults      = "quiz_results"
)

// Config holds the execution policy shared by the handlers.
type Config struct {
	// MaxRetries is the retry budget for transient failures.
	MaxRetries int

	// RetryBackoffBase is the base delay of the exponential backoff
	// schedule (base * (retryCount + 1)).
	RetryBackoffBase time.Duration

	// MailBatchSize is the number of recipients per outgoing batch.
	MailBatchSize int

	// MailBatchPause is the pause between batches, a throttle for the
	// downstream mail server, not a correctness requirement.
	MailBatchPause time.Duration
}

// DefaultConfig mirrors the production workload: three retries on a
// five-minute backoff base, mail in batches of twenty.
func DefaultConfig() Config {
	return Config{
		MaxRetries:       3,
		RetryBackoffBase: 300 * time.Second,
		MailBatchSize:    20,
		MailBatchPause:   5 * time.Second,
	}
}

// Deps bundles the collaborators the handlers execute against.
type Deps struct {
	Users   store.UserStore
	Quizzes store.QuizStore
	Scores  store.ScoreStore
	Reports report.Generator
	Mailer  mail.EmailSender
	Config  Config
	Logger  *slog.Logger
}

// RegisterAll binds every task handler to the registry. Called once at
// process start, before the runner or scheduler touch the registry.
func RegisterAll(registry *task.Registry, deps Deps) error {
	policy := task.Policy{
		MaxRetries:  deps.Config.MaxRetries,
		BaseBackoff: deps.Config.RetryBackoffBase,
	}

	handlers := map[string]task.Handler{
		TaskQuizNotification: NewQuizNotificationHandler(deps),
		TaskMonthlyReports:   NewMonthlyReportsHandler(deps),
		TaskLoginAnalytics:   NewLoginAnalyticsHandler(deps),
		TaskQuizResults:      NewQuizResultsHandler(deps),
	}

	for name, handler := range handlers {
		if err := registry.Register(name, handler, policy); err != nil {
			return fmt.Errorf("failed to register task %q: %w", name, err)
		}
	}
	return nil
}

// pause sleeps between mail batches, returning early on context
// cancellation.
func pause(d time.Duration, done <-chan struct{}) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-done:
	}
}
