package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"safesupport/internal/alertlog"
)

// Schema creates the alert_log table. The serial id preserves append order.
const Schema = `
CREATE TABLE IF NOT EXISTS alert_log (
	id          BIGSERIAL PRIMARY KEY,
	user_id     TEXT NOT NULL DEFAULT '',
	entry       JSONB NOT NULL,
	received_at BIGINT NOT NULL DEFAULT 0
)`

// PostgresStore keeps the alert log in a table for multi-instance deployments.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate alert_log: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, entry alertlog.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode alert entry: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO alert_log (user_id, entry, received_at) VALUES ($1, $2, $3)`,
		entry.UserID, data, entry.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert entry: %w", err)
	}
	return nil
}

// Recent mirrors FileStore: the window is the last limit rows overall, then
// filtered to userID.
func (s *PostgresStore) Recent(ctx context.Context, userID string, limit int) ([]alertlog.Entry, error) {
	if limit <= 0 {
		limit = alertlog.DefaultRecentLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT entry FROM (
			SELECT id, user_id, entry FROM alert_log ORDER BY id DESC LIMIT $1
		) recent
		WHERE user_id = $2
		ORDER BY id DESC`, limit, userID)
	if err != nil {
		return nil, fmt.Errorf("query alert log: %w", err)
	}
	defer rows.Close()

	entries := []alertlog.Entry{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan alert entry: %w", err)
		}
		var e alertlog.Entry
		if err := json.Unmarshal(data, &e); err != nil {
			e = alertlog.Entry{Raw: string(data)}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert log: %w", err)
	}
	return entries, nil
}
