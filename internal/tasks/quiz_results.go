package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/domain"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/task"
)

// NewQuizResultsHandler returns the handler for quiz_results: persist a
// quiz attempt submitted through the API without blocking the request.
// Args: [user_id, quiz_id, total_scored, max_score].
func NewQuizResultsHandler(deps Deps) task.Handler {
	logger := deps.Logger.With("task_name", TaskQuizResults)

	return func(ctx context.Context, inv *task.Invocation) task.Outcome {
		var userID, quizID uuid.UUID
		if err := inv.Arg(0, &userID); err != nil {
			return task.Failed(err)
		}
		if err := inv.Arg(1, &quizID); err != nil {
			return task.Failed(err)
		}
		var totalScored, maxScore int
		if err := inv.Arg(2, &totalScored); err != nil {
			return task.Failed(err)
		}
		if err := inv.Arg(3, &maxScore); err != nil {
			return task.Failed(err)
		}

		score := &domain.Score{
			ID:          uuid.New(),
			UserID:      userID,
			QuizID:      quizID,
			TotalScored: totalScored,
			MaxScore:    maxScore,
			AttemptedAt: time.Now().UTC(),
		}
		if err := deps.Scores.SaveScore(ctx, score); err != nil {
			return task.Failed(fmt.Errorf("failed to save score: %w", err))
		}

		logger.Info("processed quiz attempt",
			"user_id", userID,
			"quiz_id", quizID,
			"score", totalScored)
		return task.Done(map[string]any{
			"user_id":      userID,
			"quiz_id":      quizID,
			"score":        totalScored,
			"processed_at": time.Now().UTC(),
		})
	}
}
