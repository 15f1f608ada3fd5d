package model

import (
	"testing"
	"time"
)

func TestSession_ValidAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	hour := time.Hour
	tests := []struct {
		name     string
		expires  time.Time
		tokenExp time.Time
		want     bool
	}{
		{"live, token without expiry", now.Add(hour), time.Time{}, true},
		{"live, token live", now.Add(hour), now.Add(2 * hour), true},
		{"login lapsed", now.Add(-hour), time.Time{}, false},
		{"login ends now", now, time.Time{}, false},
		{"token lapsed", now.Add(hour), now.Add(-time.Second), false},
	}
	for _, tt := range tests {
		s := &Session{ExpiresAt: tt.expires, TokenExp: tt.tokenExp}
		if got := s.ValidAt(now); got != tt.want {
			t.Errorf("%s: ValidAt = %v, want %v", tt.name, got, tt.want)
		}
	}
}
