package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserToken_RoundTrip(t *testing.T) {
	now := time.Now()
	token, err := IssueUserToken("secret", "auth|123", "dev@example.com", time.Hour, now)
	require.NoError(t, err)

	claims, err := ParseUserToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "auth|123", claims.Subject)
	assert.Equal(t, "dev@example.com", claims.Email)
}

func TestParseUserToken_Rejects(t *testing.T) {
	now := time.Now()

	token, err := IssueUserToken("secret", "auth|1", "", time.Hour, now)
	require.NoError(t, err)
	_, err = ParseUserToken("other", token)
	assert.Error(t, err, "wrong secret")

	_, err = ParseUserToken("", token)
	assert.ErrorIs(t, err, ErrMissingSecret)

	expired, err := IssueUserToken("secret", "auth|1", "", time.Minute, now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = ParseUserToken("secret", expired)
	assert.Error(t, err, "expired")

	noSubject, err := IssueUserToken("secret", "", "", time.Hour, now)
	require.NoError(t, err)
	_, err = ParseUserToken("secret", noSubject)
	assert.ErrorIs(t, err, ErrMissingSubject)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "auth|1",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseUserToken("secret", unsigned)
	assert.Error(t, err, "alg none")
}

func TestAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "sf_"))

	other, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	hash := HashAPIKey(key)
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, HashAPIKey(" "+key+" "))
	assert.NotEqual(t, hash, HashAPIKey(other))

	assert.Equal(t, key[:10], APIKeyDisplayPrefix(key))
	assert.Equal(t, "short", APIKeyDisplayPrefix("short"))
}
