package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/config"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/domain"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/service/auth"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/store"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/task"
)

type memUserStore struct {
	byEmail map[string]*domain.User
	logins  map[uuid.UUID]time.Time
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		byEmail: make(map[string]*domain.User),
		logins:  make(map[uuid.UUID]time.Time),
	}
}

func (s *memUserStore) Create(ctx context.Context, user *domain.User, password string) error {
	if _, exists := s.byEmail[user.Email]; exists {
		return store.ErrEmailExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	user.HashedPassword = string(hash)
	s.byEmail[user.Email] = user
	return nil
}

func (s *memUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *memUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (s *memUserStore) ListActive(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	for _, u := range s.byEmail {
		if u.Active {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *memUserStore) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.logins[id] = at
	return nil
}

type authFixture struct {
	users   *memUserStore
	results *task.MemoryResultStore
	router  chi.Router
}

func (f *authFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := task.NewRegistry()
	require.NoError(t, registry.Register("login_analytics", noopHandler,
		task.Policy{MaxRetries: 3, BaseBackoff: time.Second}))

	queue := task.NewQueue(16, task.NewMemoryQueueStore(), logger)
	t.Cleanup(func() { queue.Close() })

	results := task.NewMemoryResultStore()
	client := task.NewClient(queue, results, registry, logger)

	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret: "thisisasecretkeythatis32charslong!!",
	})
	require.NoError(t, err)

	users := newMemUserStore()
	handler := NewAuthHandler(users, jwtService, auth.NewBcryptVerifier(), client)

	r := chi.NewRouter()
	r.Post("/api/auth/register", handler.Register)
	r.Post("/api/auth/login", handler.Login)

	return &authFixture{users: users, results: results, router: r}
}

func TestRegister(t *testing.T) {
	af := newAuthFixture(t)

	t.Run("creates user and returns token", func(t *testing.T) {
		rec := af.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{
			Email:    "student@example.com",
			FullName: "Test Student",
			Password: "a long enough password",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)

		stored, err := af.users.GetByEmail(context.Background(), "student@example.com")
		require.NoError(t, err)
		assert.Equal(t, resp.UserID, stored.ID)
		assert.NotEmpty(t, stored.HashedPassword)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rec := af.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{
			Email:    "student@example.com",
			FullName: "Someone Else",
			Password: "another long password",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("short password rejected", func(t *testing.T) {
		rec := af.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{
			Email:    "short@example.com",
			FullName: "Short",
			Password: "short",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogin(t *testing.T) {
	af := newAuthFixture(t)

	user, err := domain.NewUser("login@example.com", "Login User")
	require.NoError(t, err)
	require.NoError(t, af.users.Create(context.Background(), user, "a long enough password"))

	t.Run("valid credentials issue token and queue analytics", func(t *testing.T) {
		rec := af.do(t, http.MethodPost, "/api/auth/login", LoginRequest{
			Email:    "login@example.com",
			Password: "a long enough password",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, user.ID, resp.UserID)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		rec := af.do(t, http.MethodPost, "/api/auth/login", LoginRequest{
			Email:    "login@example.com",
			Password: "wrong password entirely",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown email rejected", func(t *testing.T) {
		rec := af.do(t, http.MethodPost, "/api/auth/login", LoginRequest{
			Email:    "ghost@example.com",
			Password: "a long enough password",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
