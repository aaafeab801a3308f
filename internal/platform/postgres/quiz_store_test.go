package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/domain"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/store"
)

func TestQuizStoreGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	id := uuid.New()
	chapterID := uuid.New()
	dateOf := time.Now().UTC().Add(24 * time.Hour)

	rows := sqlmock.NewRows([]string{
		"id", "chapter_id", "name", "date_of", "duration", "remarks", "created_at"}).
		AddRow(id.String(), chapterID.String(), "Algebra Basics", dateOf, 30,
			"bring a calculator", time.Now().UTC())

	mock.ExpectQuery("SELECT (.+) FROM quizzes").
		WithArgs(id).
		WillReturnRows(rows)

	quizStore := NewQuizStore(db)
	quiz, err := quizStore.GetByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, quiz.ID)
	assert.Equal(t, chapterID, quiz.ChapterID)
	assert.Equal(t, "Algebra Basics", quiz.Name)
	assert.Equal(t, 30, quiz.Duration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizStoreGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT (.+) FROM quizzes").
		WillReturnError(sql.ErrNoRows)

	quizStore := NewQuizStore(db)
	_, err = quizStore.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrQuizNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreStoreSaveScore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	score := &domain.Score{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		QuizID:      uuid.New(),
		TotalScored: 8,
		MaxScore:    10,
		AttemptedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO scores").
		WithArgs(score.ID, score.UserID, score.QuizID, 8, 10, score.AttemptedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	scoreStore := NewScoreStore(db)
	err = scoreStore.SaveScore(context.Background(), score)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreStoreSaveScoreUnknownQuiz(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("INSERT INTO scores").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	scoreStore := NewScoreStore(db)
	err = scoreStore.SaveScore(context.Background(), &domain.Score{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		QuizID:   uuid.New(),
		MaxScore: 10,
	})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreStoreMonthlySummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	userID := uuid.New()
	rows := sqlmock.NewRows([]string{"count", "sum_scored", "sum_max", "best"}).
		AddRow(3, 24, 30, 10)

	mock.ExpectQuery("SELECT (.+) FROM scores").
		WithArgs(userID, 7, 2026).
		WillReturnRows(rows)

	scoreStore := NewScoreStore(db)
	summary, err := scoreStore.MonthlySummary(context.Background(), userID, 7, 2026)
	require.NoError(t, err)

	assert.Equal(t, userID, summary.UserID)
	assert.Equal(t, 7, summary.Month)
	assert.Equal(t, 2026, summary.Year)
	assert.Equal(t, 3, summary.QuizCount)
	assert.Equal(t, 24, summary.TotalScored)
	assert.Equal(t, 30, summary.TotalMaximum)
	assert.Equal(t, 10, summary.BestScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}
