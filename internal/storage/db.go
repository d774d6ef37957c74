// Package storage persists the delivery log and per-chat settings.
// The delivery log records the outcome of every outbound send, kept for
// reconciliation of replies that finished after the webhook deadline.
// No message content is stored, only hashes and classifications; rows
// are swept after the configured retention.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// DB wraps the SQLite delivery log.
type DB struct {
	conn      *sql.DB
	path      string
	retention time.Duration
}

// New creates a database connection and initializes the schema.
// retention controls how long delivery rows are kept before Sweep
// removes them.
func New(dbPath string, retention time.Duration) (*DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	// WAL for concurrent readers while the webhook workers write.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=30000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		conn:      conn,
		path:      dbPath,
		retention: retention,
	}

	if err := db.initSchema(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS deliveries (
	id               TEXT PRIMARY KEY,
	event_id         TEXT NOT NULL,
	event_type       TEXT NOT NULL,
	reply_token_hash TEXT NOT NULL,
	result           TEXT NOT NULL,
	status_code      INTEGER NOT NULL DEFAULT 0,
	attempts         INTEGER NOT NULL DEFAULT 0,
	error            TEXT NOT NULL DEFAULT '',
	duration_ms      INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deliveries_created_at ON deliveries(created_at);
CREATE INDEX IF NOT EXISTS idx_deliveries_result ON deliveries(result);

CREATE TABLE IF NOT EXISTS chat_settings (
	chat_id    TEXT PRIMARY KEY,
	language   TEXT NOT NULL DEFAULT 'en',
	updated_at TIMESTAMP NOT NULL
);
`
	if _, err := d.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Ready checks that the database answers queries.
func (d *DB) Ready(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}
