package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/domain"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/store"
)

// QuizStore implements store.QuizStore over a process-local map.
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[uuid.UUID]*domain.Quiz
}

// NewQuizStore creates an empty in-memory quiz store.
func NewQuizStore() *QuizStore {
	return &QuizStore{quizzes: make(map[uuid.UUID]*domain.Quiz)}
}

var _ store.QuizStore = (*QuizStore)(nil)

// GetByID implements store.QuizStore.GetByID.
func (s *QuizStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return nil, store.ErrQuizNotFound
	}
	copied := *quiz
	return &copied, nil
}

// Put stores a quiz, overwriting any previous version. Dev-mode seeding
// and tests use it; there is no HTTP surface for quiz authoring.
func (s *QuizStore) Put(quiz *domain.Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *quiz
	s.quizzes[quiz.ID] = &copied
}

// ScoreStore implements store.ScoreStore over a process-local slice.
type ScoreStore struct {
	mu     sync.RWMutex
	scores []domain.Score
}

// NewScoreStore creates an empty in-memory score store.
func NewScoreStore() *ScoreStore {
	return &ScoreStore{}
}

var _ store.ScoreStore = (*ScoreStore)(nil)

// SaveScore implements store.ScoreStore.SaveScore.
func (s *ScoreStore) SaveScore(ctx context.Context, score *domain.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = append(s.scores, *score)
	return nil
}

// MonthlySummary implements store.ScoreStore.MonthlySummary.
func (s *ScoreStore) MonthlySummary(ctx context.Context, userID uuid.UUID, month, year int) (*domain.MonthlySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary := domain.MonthlySummary{UserID: userID, Month: month, Year: year}
	for _, score := range s.scores {
		at := score.AttemptedAt.UTC()
		if score.UserID != userID || int(at.Month()) != month || at.Year() != year {
			continue
		}
		summary.QuizCount++
		summary.TotalScored += score.TotalScored
		summary.TotalMaximum += score.MaxScore
		if score.TotalScored > summary.BestScore {
			summary.BestScore = score.TotalScored
		}
	}
	return &summary, nil
}
