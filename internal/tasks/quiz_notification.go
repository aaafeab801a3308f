package tasks

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/mail"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/task"
)

// NotificationSummary is the payload of a completed quiz_notification run:
// per-recipient counts rather than a pass/fail verdict, because a partial
// batch failure does not fail the task.
type NotificationSummary struct {
	QuizID uuid.UUID `json:"quiz_id"`
	Sent   int       `json:"sent"`
	Failed int       `json:"failed"`
}

// NewQuizNotificationHandler returns the handler for quiz_notification:
// announce a newly created quiz to every active user, mailing in batches.
// Args: [quiz_id].
func NewQuizNotificationHandler(deps Deps) task.Handler {
	logger := deps.Logger.With("task_name", TaskQuizNotification)

	return func(ctx context.Context, inv *task.Invocation) task.Outcome {
		var quizID uuid.UUID
		if err := inv.Arg(0, &quizID); err != nil {
			return task.Failed(err)
		}
		log := logger.With("quiz_id", quizID)

		quiz, err := deps.Quizzes.GetByID(ctx, quizID)
		if err != nil {
			return task.Failed(fmt.Errorf("failed to load quiz: %w", err))
		}

		users, err := deps.Users.ListActive(ctx)
		if err != nil {
			return task.Failed(fmt.Errorf("failed to list active users: %w", err))
		}
		if len(users) == 0 {
			log.Info("no active users to notify")
			return task.Done(NotificationSummary{QuizID: quizID})
		}

		recipients := make([]string, 0, len(users))
		for _, u := range users {
			recipients = append(recipients, u.Email)
		}

		subject := fmt.Sprintf("New Quiz Available: %s", quiz.Name)
		body := fmt.Sprintf(
			"<html><body><h2>New Quiz: %s</h2><p>A new quiz is scheduled for %s. Log in to Quiz Master to attempt it!</p><p>%s</p></body></html>",
			quiz.Name,
			quiz.DateOf.Format("2 January 2006"),
			quiz.Remarks,
		)

		summary := NotificationSummary{QuizID: quizID}
		var lastErr error

		batches := mail.Batches(recipients, deps.Config.MailBatchSize)
		for i, batch := range batches {
			if err := deps.Mailer.Send(ctx, batch, subject, body, nil); err != nil {
				// One bad batch does not stop the remaining batches.
				summary.Failed += len(batch)
				lastErr = err
				log.Warn("notification batch failed",
					"batch", i+1,
					"batch_count", len(batches),
					"recipients", len(batch),
					"error", err)
			} else {
				summary.Sent += len(batch)
				log.Info("notification batch sent",
					"batch", i+1,
					"batch_count", len(batches),
					"recipients", len(batch))
			}

			if i < len(batches)-1 {
				pause(deps.Config.MailBatchPause, ctx.Done())
			}
		}

		// Nothing got through at all: the mail server is down, not the
		// recipients. Ask for a retry so the whole announcement is
		// reattempted after the backoff.
		if summary.Sent == 0 && summary.Failed > 0 {
			return task.Retry(0, fmt.Errorf("all notification batches failed: %w", lastErr))
		}

		log.Info("quiz notification completed",
			"sent", summary.Sent,
			"failed", summary.Failed)
		return task.Done(summary)
	}
}
