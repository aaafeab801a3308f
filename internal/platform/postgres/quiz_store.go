package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/domain"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/store"
)

// QuizStore implements the store.QuizStore interface using PostgreSQL.
type QuizStore struct {
	db store.DBTX
}

// NewQuizStore creates a new PostgreSQL implementation of the QuizStore
// interface.
func NewQuizStore(db store.DBTX) *QuizStore {
	return &QuizStore{db: db}
}

var _ store.QuizStore = (*QuizStore)(nil)

// GetByID implements store.QuizStore.GetByID.
func (s *QuizStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quiz, error) {
	query := `
		SELECT id, chapter_id, name, date_of, duration, remarks, created_at
		FROM quizzes
		WHERE id = $1
	`
	var quiz domain.Quiz
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&quiz.ID,
		&quiz.ChapterID,
		&quiz.Name,
		&quiz.DateOf,
		&quiz.Duration,
		&quiz.Remarks,
		&quiz.CreatedAt,
	)
	if err != nil {
		mapped := MapError(err)
		if isNotFound(mapped) {
			return nil, store.ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", mapped)
	}
	return &quiz, nil
}

// ScoreStore implements the store.ScoreStore interface using PostgreSQL.
type ScoreStore struct {
	db store.DBTX
}

// NewScoreStore creates a new PostgreSQL implementation of the ScoreStore
// interface.
func NewScoreStore(db store.DBTX) *ScoreStore {
	return &ScoreStore{db: db}
}

var _ store.ScoreStore = (*ScoreStore)(nil)

// SaveScore implements store.ScoreStore.SaveScore.
func (s *ScoreStore) SaveScore(ctx context.Context, score *domain.Score) error {
	query := `
		INSERT INTO scores (id, user_id, quiz_id, total_scored, max_score, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		score.ID,
		score.UserID,
		score.QuizID,
		score.TotalScored,
		score.MaxScore,
		score.AttemptedAt,
	)
	if err != nil {
		return MapError(fmt.Errorf("failed to save score: %w", err))
	}
	return nil
}

// MonthlySummary implements store.ScoreStore.MonthlySummary. A user with
// no attempts in the month yields a zero-count summary, not an error.
func (s *ScoreStore) MonthlySummary(ctx context.Context, userID uuid.UUID, month, year int) (*domain.MonthlySummary, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_scored), 0),
			COALESCE(SUM(max_score), 0),
			COALESCE(MAX(total_scored), 0)
		FROM scores
		WHERE user_id = $1
		  AND EXTRACT(MONTH FROM attempted_at) = $2
		  AND EXTRACT(YEAR FROM attempted_at) = $3
	`
	summary := domain.MonthlySummary{UserID: userID, Month: month, Year: year}
	err := s.db.QueryRowContext(ctx, query, userID, month, year).Scan(
		&summary.QuizCount,
		&summary.TotalScored,
		&summary.TotalMaximum,
		&summary.BestScore,
	)
	if err != nil {
		return nil, MapError(fmt.Errorf("failed to aggregate monthly summary: %w", err))
	}
	return &summary, nil
}
