package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Delivery is one recorded outbound send outcome.
type Delivery struct {
	ID             string    `json:"id"`
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	ReplyTokenHash string    `json:"reply_token_hash"`
	Result         string    `json:"result"` // success, validation, rate_limited, permanent, exhausted
	StatusCode     int       `json:"status_code,omitempty"`
	Attempts       int       `json:"attempts"`
	Error          string    `json:"error,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecordDelivery inserts one delivery row.
func (d *DB) RecordDelivery(ctx context.Context, del Delivery) error {
	if del.CreatedAt.IsZero() {
		del.CreatedAt = time.Now()
	}

	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO deliveries (id, event_id, event_type, reply_token_hash, result, status_code, attempts, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		del.ID, del.EventID, del.EventType, del.ReplyTokenHash, del.Result,
		del.StatusCode, del.Attempts, del.Error, del.DurationMs, del.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// CountByResult returns delivery counts grouped by result.
func (d *DB) CountByResult(ctx context.Context) (map[string]int64, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT result, COUNT(*) FROM deliveries GROUP BY result`)
	if err != nil {
		return nil, fmt.Errorf("failed to count deliveries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int64)
	for rows.Next() {
		var result string
		var count int64
		if err := rows.Scan(&result, &count); err != nil {
			return nil, fmt.Errorf("failed to scan delivery count: %w", err)
		}
		counts[result] = count
	}
	return counts, rows.Err()
}

// Sweep deletes delivery rows older than the configured retention.
// Returns the number of rows removed.
func (d *DB) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-d.retention)
	res, err := d.conn.ExecContext(ctx, `DELETE FROM deliveries WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep deliveries: %w", err)
	}
	return res.RowsAffected()
}

// ExportNDJSON streams every delivery row to w as newline-delimited JSON,
// newest first. The admin endpoint wraps w in a gzip writer.
func (d *DB) ExportNDJSON(ctx context.Context, w io.Writer) error {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, event_id, event_type, reply_token_hash, result, status_code, attempts, error, duration_ms, created_at
		FROM deliveries ORDER BY created_at DESC`)
	if err != nil {
		return fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	enc := json.NewEncoder(w)
	for rows.Next() {
		var del Delivery
		var createdAt sql.NullTime
		if err := rows.Scan(
			&del.ID, &del.EventID, &del.EventType, &del.ReplyTokenHash, &del.Result,
			&del.StatusCode, &del.Attempts, &del.Error, &del.DurationMs, &createdAt,
		); err != nil {
			return fmt.Errorf("failed to scan delivery: %w", err)
		}
		del.CreatedAt = createdAt.Time
		if err := enc.Encode(del); err != nil {
			return err
		}
	}
	return rows.Err()
}
