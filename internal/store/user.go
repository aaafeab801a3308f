package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user, hashing the provided plaintext password.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User, password string) error

	// GetByID retrieves a user by ID. Returns ErrUserNotFound if the
	// user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by email address. Returns
	// ErrUserNotFound if no user is registered under it.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// ListActive returns all active users, the audience of bulk
	// notification and report mail.
	ListActive(ctx context.Context) ([]*domain.User, error)

	// RecordLogin updates the user's last-login timestamp. Returns
	// ErrUserNotFound if the user does not exist.
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}
