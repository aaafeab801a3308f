package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyQuizID   = errors.New("quiz ID cannot be empty")
	ErrEmptyQuizName = errors.New("quiz name cannot be empty")
)

// Quiz is a scheduled quiz within a chapter. Creating one triggers the
// quiz_notification task.
type Quiz struct {
	ID        uuid.UUID `json:"id"`
	ChapterID uuid.UUID `json:"chapter_id"`
	Name      string    `json:"name"`
	DateOf    time.Time `json:"date_of_quiz"`
	Duration  int       `json:"duration_minutes"`
	Remarks   string    `json:"remarks,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the Quiz has valid data.
func (q *Quiz) Validate() error {
	if q.ID == uuid.Nil {
		return ErrEmptyQuizID
	}
	if q.Name == "" {
		return ErrEmptyQuizName
	}
	return nil
}

// Score records one user's attempt at a quiz. The quiz_results task
// persists these, and the monthly report aggregates them.
type Score struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	QuizID      uuid.UUID `json:"quiz_id"`
	TotalScored int       `json:"total_scored"`
	MaxScore    int       `json:"max_score"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// MonthlySummary aggregates a user's quiz activity for one calendar month,
// the raw material of the monthly performance report.
type MonthlySummary struct {
	UserID       uuid.UUID `json:"user_id"`
	Month        int       `json:"month"`
	Year         int       `json:"year"`
	QuizCount    int       `json:"quiz_count"`
	TotalScored  int       `json:"total_scored"`
	TotalMaximum int       `json:"total_maximum"`
	BestScore    int       `json:"best_score"`
}

// Average returns the percentage score across the month, or 0 when the
// user attempted nothing.
func (s MonthlySummary) Average() float64 {
	if s.TotalMaximum == 0 {
		return 0
	}
	return float64(s.TotalScored) / float64(s.TotalMaximum) * 100
}
