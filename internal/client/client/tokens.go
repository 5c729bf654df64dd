package client

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type tokenStore struct {
	mu      sync.RWMutex
	session Session
}

func (t *tokenStore) get() Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.session
}

func (t *tokenStore) set(s Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session = s
}

// tokenExpired reports whether a JWT access token is past its exp claim.
// Only the claims are read; the signature is the server's business.
// Tokens that are not JWTs, or carry no exp, never count as expired.
func tokenExpired(token string, now time.Time) bool {
	if token == "" {
		return true
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
