package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/me/shopadmin/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps shopadmin's local state in a SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at path, creating the file when needed.
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return newWithDB(db, logger), nil
}

// dsn adds the connection pragmas understood by modernc.org/sqlite.
func dsn(path string) string {
	if path == ":memory:" {
		return path
	}
	q := url.Values{"_pragma": {"journal_mode(WAL)", "busy_timeout(5000)"}}
	return path + "?" + q.Encode()
}

func newWithDB(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    time.Now,
	}
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate brings the schema up to date.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return migrate(ctx, s.db, s.logger)
}

func (s *SQLiteStore) trace(op, table string, args ...any) {
	s.logger.Debug("sql", append([]any{"op", op, "table", table}, args...)...)
}

// GetValue reads slot key. ok is false when the slot is empty.
func (s *SQLiteStore) GetValue(ctx context.Context, key string) (value string, ok bool, err error) {
	s.trace("get", "kv", "key", key)

	err = s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// SetValue fills slot key, overwriting what was there.
func (s *SQLiteStore) SetValue(ctx context.Context, key, value string) error {
	s.trace("set", "kv", "key", key)

	const q = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, q, key, value, s.now().Unix()); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// DeleteValue empties slot key. An empty slot stays empty without error.
func (s *SQLiteStore) DeleteValue(ctx context.Context, key string) error {
	s.trace("delete", "kv", "key", key)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

const sessionColumns = `id, username, token, token_exp, created_at, expires_at`

// CreateSession stores a panel login.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *model.Session) error {
	s.trace("insert", "sessions", "id", sess.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Username, sess.Token, unixOrZero(sess.TokenExp),
		sess.CreatedAt.Unix(), sess.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession loads a panel login. A missing ID yields nil and no error.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	s.trace("get", "sessions", "id", id)

	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func scanSession(row *sql.Row) (*model.Session, error) {
	var sess model.Session
	var tokenExp, created, expiresAt int64
	if err := row.Scan(&sess.ID, &sess.Username, &sess.Token, &tokenExp, &created, &expiresAt); err != nil {
		return nil, err
	}
	if tokenExp != 0 {
		sess.TokenExp = time.Unix(tokenExp, 0)
	}
	sess.CreatedAt = time.Unix(created, 0)
	sess.ExpiresAt = time.Unix(expiresAt, 0)
	return &sess, nil
}

// DeleteSession forgets a panel login.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	s.trace("delete", "sessions", "id", id)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions forgets every login past its expiry.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	s.trace("purge", "sessions")

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
