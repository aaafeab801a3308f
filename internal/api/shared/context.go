package shared

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the key type for request context values.
type ContextKey string

// Context keys for values carried through the request lifecycle.
const (
	// UserIDContextKey is the context key for the authenticated user ID
	UserIDContextKey ContextKey = "userID"

	// AdminContextKey is the context key for the admin flag of the
	// authenticated user
	AdminContextKey ContextKey = "admin"
)

// UserIDFromContext retrieves the authenticated user ID from the context.
// Returns the ID and a boolean indicating if it was found.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	return id, ok
}

// IsAdmin reports whether the context belongs to an administrator.
func IsAdmin(ctx context.Context) bool {
	admin, ok := ctx.Value(AdminContextKey).(bool)
	return ok && admin
}
