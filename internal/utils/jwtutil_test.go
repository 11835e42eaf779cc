package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	SetSecret("test-secret")

	token, expiresAt, err := GenerateToken(42, "admin@acme.test", "company_admin", time.Hour)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserId)
	assert.Equal(t, "admin@acme.test", claims.Email)
	assert.Equal(t, "company_admin", claims.Role)
}

func TestParseToken_WrongSecret(t *testing.T) {
	SetSecret("first-secret")
	token, _, err := GenerateToken(1, "a@b.test", "customer", time.Hour)
	require.NoError(t, err)

	SetSecret("second-secret")
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	SetSecret("test-secret")
	token, _, err := GenerateToken(1, "a@b.test", "customer", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_Garbage(t *testing.T) {
	SetSecret("test-secret")
	_, err := ParseToken("not.a.token")
	assert.Error(t, err)
}
