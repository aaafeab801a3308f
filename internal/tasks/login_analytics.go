package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/task"
)

// NewLoginAnalyticsHandler returns the handler for login_analytics: record
// a user login event off the request path. Args: [user_id, timestamp].
func NewLoginAnalyticsHandler(deps Deps) task.Handler {
	logger := deps.Logger.With("task_name", TaskLoginAnalytics)

	return func(ctx context.Context, inv *task.Invocation) task.Outcome {
		var userID uuid.UUID
		if err := inv.Arg(0, &userID); err != nil {
			return task.Failed(err)
		}
		var at time.Time
		if err := inv.Arg(1, &at); err != nil {
			return task.Failed(err)
		}

		if err := deps.Users.RecordLogin(ctx, userID, at); err != nil {
			return task.Failed(fmt.Errorf("failed to record login: %w", err))
		}

		logger.Info("recorded login", "user_id", userID, "at", at)
		return task.Done(map[string]any{
			"user_id":      userID,
			"processed_at": time.Now().UTC(),
		})
	}
}
