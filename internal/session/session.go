// Package session owns the bearer token used for authenticated API calls.
//
// A Store is created once at startup with Open, which hydrates the token from
// persisted Storage so a restart keeps the session without a network round
// trip. Login replaces the token, logout and 401 responses clear it, and every
// mutation is written through to Storage.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/me/shopadmin/internal/logging"
)

// TokenKey is the storage key holding the bearer token.
const TokenKey = "accessToken"

// Store is the process-wide session state.
type Store struct {
	storage Storage
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

// Open creates a Store and reads any previously persisted token.
func Open(ctx context.Context, storage Storage, logger *slog.Logger) (*Store, error) {
	s := &Store{
		storage: storage,
		logger:  logging.OrDiscard(logger).With("component", "session"),
	}

	token, ok, err := storage.GetValue(ctx, TokenKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if ok {
		s.token = strings.TrimSpace(token)
	}
	s.logger.Debug("session hydrated", "authenticated", s.token != "")
	return s, nil
}

// Token returns the current bearer token, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a token is held.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// SetToken stores token in memory and in persisted storage.
func (s *Store) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.SetValue(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	s.token = token
	s.logger.Info("session started")
	return nil
}

// Logout clears the token in memory and in persisted storage. The in-memory
// token is cleared even when the storage write fails.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	if err := s.storage.DeleteValue(ctx, TokenKey); err != nil {
		return fmt.Errorf("clear persisted token: %w", err)
	}
	s.logger.Info("session cleared")
	return nil
}

// Claims decodes the current token. See ParseClaims.
func (s *Store) Claims() (Claims, error) {
	return ParseClaims(s.Token())
}
