// Package memory provides in-process implementations of the store
// interfaces. They back the dev-mode deployment where no database is
// configured; data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/domain"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/store"
)

// UserStore implements store.UserStore over a process-local map.
type UserStore struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]*domain.User
	bcryptCost int
}

// NewUserStore creates an empty in-memory user store. A bcryptCost of 0
// selects the bcrypt default.
func NewUserStore(bcryptCost int) *UserStore {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserStore{
		users:      make(map[uuid.UUID]*domain.User),
		bcryptCost: bcryptCost,
	}
}

var _ store.UserStore = (*UserStore)(nil)

// Create implements store.UserStore.Create.
func (s *UserStore) Create(ctx context.Context, user *domain.User, password string) error {
	if err := user.Validate(); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return store.ErrEmailExists
		}
	}
	user.HashedPassword = string(hash)
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

// GetByID implements store.UserStore.GetByID.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// GetByEmail implements store.UserStore.GetByEmail.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

// ListActive implements store.UserStore.ListActive. Ordered by creation
// time so notification batches are deterministic.
func (s *UserStore) ListActive(ctx context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []*domain.User
	for _, user := range s.users {
		if user.Active {
			copied := *user
			active = append(active, &copied)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	return active, nil
}

// RecordLogin implements store.UserStore.RecordLogin.
func (s *UserStore) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	login := at.UTC()
	user.LastLoginAt = &login
	user.UpdatedAt = time.Now().UTC()
	return nil
}
