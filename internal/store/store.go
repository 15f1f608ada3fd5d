package store

import (
	"context"

	"github.com/me/shopadmin/pkg/model"
)

// Store defines the local persistence used by shopadmin: a key/value slot
// table (the persisted session token) and web panel sessions.
type Store interface {
	// Key/value slots
	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error

	// Web sessions
	CreateSession(ctx context.Context, sess *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
