package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(ctx context.Context, inv *Invocation) Outcome {
	return Done(nil)
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()

	policy := Policy{MaxRetries: 3, BaseBackoff: 300 * time.Second}
	require.NoError(t, reg.Register("quiz_notification", noopHandler, policy))

	got, err := reg.Lookup("quiz_notification")
	require.NoError(t, err)
	assert.Equal(t, "quiz_notification", got.Name)
	assert.Equal(t, 3, got.Policy.MaxRetries)
	assert.Equal(t, 300*time.Second, got.Policy.BaseBackoff)
	assert.NotNil(t, got.Handler)
}

func TestRegistryLookupUnknown(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Lookup("never_registered")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.Contains(t, err.Error(), "never_registered")
}

func TestRegistryRejectsInvalidRegistrations(t *testing.T) {
	reg := NewRegistry()

	assert.Error(t, reg.Register("", noopHandler, Policy{}))
	assert.Error(t, reg.Register("no_handler", nil, Policy{}))

	require.NoError(t, reg.Register("dup", noopHandler, Policy{}))
	err := reg.Register("dup", noopHandler, Policy{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistryNames(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("monthly_reports", noopHandler, Policy{}))
	require.NoError(t, reg.Register("login_analytics", noopHandler, Policy{}))

	assert.Equal(t, []string{"login_analytics", "monthly_reports"}, reg.Names())
}
