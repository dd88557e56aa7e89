package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	token, err := manager.GenerateToken(42, "maria")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "maria", claims.Username)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute)

	token, err := manager.GenerateToken(42, "maria")
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.Error(t, err)
}

func TestWrongSecretIsRejected(t *testing.T) {
	token, err := NewJWTManager("secret-a", time.Hour).GenerateToken(42, "maria")
	require.NoError(t, err)

	_, err = NewJWTManager("secret-b", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestGarbageTokenIsRejected(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	_, err := manager.ValidateToken("not.a.token")
	assert.Error(t, err)
}
