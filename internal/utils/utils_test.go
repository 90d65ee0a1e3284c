package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, CheckPasswordHash("s3cret-pass", hash))
	assert.False(t, CheckPasswordHash("wrong-pass", hash))
	assert.False(t, CheckPasswordHash("s3cret-pass", "not-a-hash"))
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue("665f1f77bcf86cd799439011", "doctor")
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "665f1f77bcf86cd799439011", claims.UserID)
	assert.Equal(t, "doctor", claims.Role)
}

func TestTokenIssuerRejectsBadTokens(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	_, err = issuer.Validate("not-a-token")
	assert.Error(t, err)

	// Token signed with a different secret.
	other, err := NewTokenIssuer("other-secret", time.Hour)
	require.NoError(t, err)
	token, err := other.Issue("665f1f77bcf86cd799439011", "patient")
	require.NoError(t, err)
	_, err = issuer.Validate(token)
	assert.Error(t, err)
}

func TestTokenIssuerRejectsExpired(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", -time.Minute)
	require.NoError(t, err)

	token, err := issuer.Issue("665f1f77bcf86cd799439011", "patient")
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	assert.Error(t, err)
}

func TestTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestResetToken(t *testing.T) {
	token, digest, err := NewResetToken()
	require.NoError(t, err)
	assert.Len(t, token, 40)  // 20 random bytes, hex encoded
	assert.Len(t, digest, 64) // sha256, hex encoded
	assert.NotEqual(t, token, digest)

	// The stored digest must be reproducible from the raw token.
	assert.Equal(t, digest, HashResetToken(token))

	// Tokens are random.
	token2, _, err := NewResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, token2)
}
