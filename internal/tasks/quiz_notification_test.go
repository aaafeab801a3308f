package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/domain"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/mail"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/store"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/task"
)

// --- test doubles -----------------------------------------------------

type stubUserStore struct {
	users      []*domain.User
	listErr    error
	lastLogins map[uuid.UUID]time.Time
}

func (s *stubUserStore) Create(ctx context.Context, user *domain.User, password string) error {
	s.users = append(s.users, user)
	return nil
}

func (s *stubUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *stubUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *stubUserStore) ListActive(ctx context.Context) ([]*domain.User, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.users, nil
}

func (s *stubUserStore) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if s.lastLogins == nil {
		s.lastLogins = make(map[uuid.UUID]time.Time)
	}
	s.lastLogins[id] = at
	return nil
}

type stubQuizStore struct {
	quiz *domain.Quiz
}

func (s *stubQuizStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quiz, error) {
	if s.quiz == nil || s.quiz.ID != id {
		return nil, store.ErrQuizNotFound
	}
	return s.quiz, nil
}

type sentBatch struct {
	recipients  []string
	subject     string
	attachments int
}

// fakeMailer records batches and fails the batch indexes listed in
// failBatches (1-based call order).
type fakeMailer struct {
	calls       int
	sent        []sentBatch
	failBatches map[int]bool
	failAll     bool
}

func (m *fakeMailer) Send(ctx context.Context, recipients []string, subject, htmlBody string, attachments []mail.Attachment) error {
	m.calls++
	if m.failAll || m.failBatches[m.calls] {
		return errors.New("connection refused")
	}
	m.sent = append(m.sent, sentBatch{
		recipients:  append([]string(nil), recipients...),
		subject:     subject,
		attachments: len(attachments),
	})
	return nil
}

func activeUsers(n int) []*domain.User {
	users := make([]*domain.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, &domain.User{
			ID:       uuid.New(),
			Email:    fmt.Sprintf("user%d@example.com", i),
			FullName: fmt.Sprintf("User %d", i),
			Active:   true,
		})
	}
	return users
}

func testDeps(users *stubUserStore, quizzes *stubQuizStore, mailer *fakeMailer) Deps {
	cfg := DefaultConfig()
	cfg.MailBatchPause = 0 // no throttling in tests
	return Deps{
		Users:   users,
		Quizzes: quizzes,
		Mailer:  mailer,
		Config:  cfg,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func invocationFor(t *testing.T, name string, args ...any) *task.Invocation {
	t.Helper()
	inv, err := task.NewInvocation(name, args...)
	require.NoError(t, err)
	return inv
}

// --- tests ------------------------------------------------------------

func TestQuizNotificationBatching(t *testing.T) {
	quiz := &domain.Quiz{ID: uuid.New(), Name: "Algebra Basics", DateOf: time.Now(), CreatedAt: time.Now()}
	users := &stubUserStore{users: activeUsers(45)}
	mailer := &fakeMailer{}
	deps := testDeps(users, &stubQuizStore{quiz: quiz}, mailer)

	handler := NewQuizNotificationHandler(deps)
	outcome := handler(context.Background(), invocationFor(t, TaskQuizNotification, quiz.ID))

	require.NoError(t, outcome.Err())
	require.Equal(t, 3, mailer.calls, "45 recipients at batch size 20 make 3 batches")
	assert.Len(t, mailer.sent[0].recipients, 20)
	assert.Len(t, mailer.sent[1].recipients, 20)
	assert.Len(t, mailer.sent[2].recipients, 5)
	assert.Contains(t, mailer.sent[0].subject, "Algebra Basics")
}

func TestQuizNotificationPartialBatchFailure(t *testing.T) {
	quiz := &domain.Quiz{ID: uuid.New(), Name: "Algebra Basics"}
	users := &stubUserStore{users: activeUsers(45)}

	t.Run("failure mid-run does not stop later batches", func(t *testing.T) {
		mailer := &fakeMailer{failBatches: map[int]bool{2: true}}
		deps := testDeps(users, &stubQuizStore{quiz: quiz}, mailer)

		handler := NewQuizNotificationHandler(deps)
		outcome := handler(context.Background(), invocationFor(t, TaskQuizNotification, quiz.ID))

		require.NoError(t, outcome.Err())
		assert.Equal(t, 3, mailer.calls, "batch 3 attempted despite batch 2 failing")
		assert.JSONEq(t,
			fmt.Sprintf(`{"quiz_id":%q,"sent":25,"failed":20}`, quiz.ID),
			string(outcome.Payload()))
	})

	t.Run("failure in final batch reports 40/5", func(t *testing.T) {
		mailer := &fakeMailer{failBatches: map[int]bool{3: true}}
		deps := testDeps(users, &stubQuizStore{quiz: quiz}, mailer)

		handler := NewQuizNotificationHandler(deps)
		outcome := handler(context.Background(), invocationFor(t, TaskQuizNotification, quiz.ID))

		require.NoError(t, outcome.Err())
		assert.JSONEq(t,
			fmt.Sprintf(`{"quiz_id":%q,"sent":40,"failed":5}`, quiz.ID),
			string(outcome.Payload()))
	})
}

func TestQuizNotificationTotalOutageRetries(t *testing.T) {
	quiz := &domain.Quiz{ID: uuid.New(), Name: "Algebra Basics"}
	users := &stubUserStore{users: activeUsers(5)}
	mailer := &fakeMailer{failAll: true}
	deps := testDeps(users, &stubQuizStore{quiz: quiz}, mailer)

	handler := NewQuizNotificationHandler(deps)
	outcome := handler(context.Background(), invocationFor(t, TaskQuizNotification, quiz.ID))

	// Every batch failing means the mail server is down: the handler
	// requests a retry instead of reporting counts.
	require.Error(t, outcome.Err())
	assert.Contains(t, outcome.Err().Error(), "all notification batches failed")
}

func TestQuizNotificationNoActiveUsers(t *testing.T) {
	quiz := &domain.Quiz{ID: uuid.New(), Name: "Algebra Basics"}
	mailer := &fakeMailer{}
	deps := testDeps(&stubUserStore{}, &stubQuizStore{quiz: quiz}, mailer)

	handler := NewQuizNotificationHandler(deps)
	outcome := handler(context.Background(), invocationFor(t, TaskQuizNotification, quiz.ID))

	require.NoError(t, outcome.Err())
	assert.Zero(t, mailer.calls)
}

func TestQuizNotificationUnknownQuiz(t *testing.T) {
	deps := testDeps(&stubUserStore{users: activeUsers(3)}, &stubQuizStore{}, &fakeMailer{})

	handler := NewQuizNotificationHandler(deps)
	outcome := handler(context.Background(), invocationFor(t, TaskQuizNotification, uuid.New()))

	require.Error(t, outcome.Err())
	assert.Contains(t, outcome.Err().Error(), "failed to load quiz")
}
