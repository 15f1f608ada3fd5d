package model

import "time"

// Session is a web panel login: a cookie ID standing in for the bearer token
// the products API issued to that browser.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Token     string    `json:"-"`
	TokenExp  time.Time `json:"-"` // zero when the JWT has no exp claim
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidAt reports whether both the login and its token still hold at now.
func (s *Session) ValidAt(now time.Time) bool {
	if !now.Before(s.ExpiresAt) {
		return false
	}
	return s.TokenExp.IsZero() || now.Before(s.TokenExp)
}
