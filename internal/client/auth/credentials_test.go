package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestBearerToken_NoneConfigured(t *testing.T) {
	c := NewStaticCredentials("csrf", "")
	tok, err := c.BearerToken()
	require.NoError(t, err)
	assert.Empty(t, tok)
	assert.Equal(t, "csrf", c.CSRFToken())
}

func TestBearerToken_OpaqueTokenPassesThrough(t *testing.T) {
	c := NewStaticCredentials("", "  opaque-token ")
	tok, err := c.BearerToken()
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", tok)
}

func TestBearerToken_ValidJWT(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	token := signed(t, now.Add(time.Hour))

	c := NewStaticCredentials("", token)
	c.now = func() time.Time { return now }

	got, err := c.BearerToken()
	require.NoError(t, err)
	assert.Equal(t, token, got)
}

func TestBearerToken_ExpiredJWT(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewStaticCredentials("", signed(t, now.Add(-time.Minute)))
	c.now = func() time.Time { return now }

	_, err := c.BearerToken()
	require.ErrorIs(t, err, common.ErrSessionExpired)
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestSetBearer_Replaces(t *testing.T) {
	c := NewStaticCredentials("", "old")
	c.SetBearer("new")
	tok, err := c.BearerToken()
	require.NoError(t, err)
	assert.Equal(t, "new", tok)
}
