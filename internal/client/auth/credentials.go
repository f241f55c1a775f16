// Package auth provides the credential accessors the client needs: the
// anti-forgery token and an optional bearer token.
package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Credentials is consumed by the API client on every request.
type Credentials interface {
	// CSRFToken returns the anti-forgery token, or "" if none is known.
	CSRFToken() string

	// BearerToken returns the access token, "" when none is configured.
	// It returns common.ErrSessionExpired if the token is a JWT whose exp
	// claim has passed, so callers fail before touching the network.
	BearerToken() (string, error)
}

// StaticCredentials holds tokens handed over by the session collaborator.
// Safe for concurrent use.
type StaticCredentials struct {
	mu     sync.RWMutex
	csrf   string
	bearer string
	now    func() time.Time
}

func NewStaticCredentials(csrf, bearer string) *StaticCredentials {
	return &StaticCredentials{
		csrf:   strings.TrimSpace(csrf),
		bearer: strings.TrimSpace(bearer),
		now:    time.Now,
	}
}

func (c *StaticCredentials) CSRFToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.csrf
}

// SetBearer replaces the access token (e.g. after the user pastes a new one).
func (c *StaticCredentials) SetBearer(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bearer = strings.TrimSpace(token)
}

func (c *StaticCredentials) BearerToken() (string, error) {
	c.mu.RLock()
	token := c.bearer
	c.mu.RUnlock()

	if token == "" {
		return "", nil
	}
	if expired(token, c.now()) {
		return "", common.ErrSessionExpired
	}
	return token, nil
}

// expired inspects the exp claim without verifying the signature; the
// backend remains the authority. Opaque (non-JWT) tokens never expire here.
func expired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
