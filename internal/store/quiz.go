package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/domain"
)

// QuizStore defines the interface for quiz data persistence.
type QuizStore interface {
	// GetByID retrieves a quiz by ID. Returns ErrQuizNotFound if the
	// quiz does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Quiz, error)
}

// ScoreStore defines the interface for quiz attempt persistence and the
// aggregations the report tasks read.
type ScoreStore interface {
	// SaveScore persists one quiz attempt.
	SaveScore(ctx context.Context, score *domain.Score) error

	// MonthlySummary aggregates a user's attempts for the given calendar
	// month. A user with no attempts yields a zero-count summary, not an
	// error.
	MonthlySummary(ctx context.Context, userID uuid.UUID, month, year int) (*domain.MonthlySummary, error)
}
