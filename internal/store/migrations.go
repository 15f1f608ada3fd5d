package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// migrations are applied in order. The database's user_version records how
// many have run, so only append to this list.
var migrations = []string{
	// 1: persisted key/value slots such as the CLI's access token.
	`CREATE TABLE kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,

	// 2: web panel logins.
	`CREATE TABLE sessions (
		id         TEXT PRIMARY KEY,
		username   TEXT NOT NULL,
		token      TEXT NOT NULL,
		token_exp  INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX idx_sessions_expires_at ON sessions(expires_at)`,
}

// migrate runs the migrations the database has not seen yet, each in its
// own transaction.
func migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		logger.Debug("sql", "op", "migrate", "version", i+1)
		if err := step(ctx, db, i+1, migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

func step(ctx context.Context, db *sql.DB, version int, ddl string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return err
	}
	// PRAGMA does not take bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, version)); err != nil {
		return err
	}
	return tx.Commit()
}
