package jwt

import (
	"testing"
	"time"

	"go-consultation-service/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{
		Secret:       "test-secret",
		AccessExpiry: time.Hour,
	})

	userID := uuid.New()
	signed, tokenID, err := svc.GenerateAccessToken(userID, "user@example.com", 3)
	require.NoError(t, err)
	require.NotEmpty(t, tokenID)

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, 3, claims.RoleID)
	assert.Equal(t, AccessToken, claims.TokenType)
	assert.Equal(t, tokenID, claims.TokenID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Hour})
	other := NewJWTService(config.JWTConfig{Secret: "other-secret", AccessExpiry: time.Hour})

	signed, _, err := svc.GenerateAccessToken(uuid.New(), "user@example.com", 3)
	require.NoError(t, err)

	_, err = other.ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: -time.Minute})

	signed, _, err := svc.GenerateAccessToken(uuid.New(), "user@example.com", 3)
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.Error(t, err)
}

func TestTokenIDsAreUnique(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Hour})

	_, first, err := svc.GenerateAccessToken(uuid.New(), "user@example.com", 3)
	require.NoError(t, err)
	_, second, err := svc.GenerateAccessToken(uuid.New(), "user@example.com", 3)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
