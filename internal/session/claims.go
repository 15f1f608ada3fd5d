package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when there is no token to inspect.
var ErrNoToken = errors.New("not logged in")

// Claims is the display information carried by an access token.
type Claims struct {
	Username  string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time // zero when the token has no exp claim
}

// IsExpired reports whether the token's expiry has passed.
// A zero expiry is treated as not expired.
func (c Claims) IsExpired() bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(c.ExpiresAt)
}

type accessClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// ParseClaims decodes a JWT access token without verifying its signature.
// The API is the only party that can verify it; the client only reads the
// username and expiry for display and session lifetime.
func ParseClaims(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrNoToken
	}

	var ac accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &ac); err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}

	c := Claims{Username: ac.Username, Subject: ac.Subject}
	if ac.IssuedAt != nil {
		c.IssuedAt = ac.IssuedAt.Time
	}
	if ac.ExpiresAt != nil {
		c.ExpiresAt = ac.ExpiresAt.Time
	}
	return c, nil
}
