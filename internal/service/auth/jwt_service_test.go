package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/config"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/domain"
)

const testSecret = "thisisasecretkeythatis32charslong!!"

func newTestService(t *testing.T) *hmacJWTService {
	t.Helper()
	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)
	return svc.(*hmacJWTService)
}

func testUser(admin bool) *domain.User {
	user, _ := domain.NewUser("student@example.com", "Test Student")
	user.Admin = admin
	return user
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short"})
	assert.Error(t, err)
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService(t)
	user := testUser(false)

	token, err := svc.GenerateToken(context.Background(), user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.False(t, claims.Admin)
	assert.NotEmpty(t, claims.ID)
}

func TestAdminClaimRoundTrips(t *testing.T) {
	svc := newTestService(t)

	token, err := svc.GenerateToken(context.Background(), testUser(true))
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, claims.Admin)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := newTestService(t)

	// Issue a token in the past, then validate it at the present time.
	issuedAt := time.Now().Add(-24 * time.Hour)
	svc.timeFunc = func() time.Time { return issuedAt }
	token, err := svc.GenerateToken(context.Background(), testUser(false))
	require.NoError(t, err)

	svc.timeFunc = time.Now
	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWrongSignature(t *testing.T) {
	svc := newTestService(t)
	other, err := NewJWTService(config.AuthConfig{
		JWTSecret: "anothersecretkeythatis32charslong!!",
	})
	require.NoError(t, err)

	token, err := other.GenerateToken(context.Background(), testUser(false))
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.ValidateToken(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBcryptVerifier(t *testing.T) {
	verifier := NewBcryptVerifier()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse battery staple"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, verifier.Compare(string(hash), "correct horse battery staple"))
	assert.Error(t, verifier.Compare(string(hash), "wrong password"))
}
