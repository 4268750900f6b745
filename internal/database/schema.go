package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds the DDL for the quote tables. Statements are idempotent
// so EnsureSchema can run on every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id           BIGSERIAL PRIMARY KEY,
		captured_at  TIMESTAMPTZ NOT NULL,
		quotes       JSONB NOT NULL,
		source_count INT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS snapshots_captured_at_idx
		ON snapshots (captured_at DESC)`,

	`CREATE TABLE IF NOT EXISTS quote_history (
		app_name    TEXT NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL,
		rate        DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (app_name, captured_at)
	)`,
	`CREATE INDEX IF NOT EXISTS quote_history_captured_at_idx
		ON quote_history (captured_at DESC)`,

	`CREATE TABLE IF NOT EXISTS latest_snapshot (
		id           INT PRIMARY KEY CHECK (id = 1),
		captured_at  TIMESTAMPTZ NOT NULL,
		quotes       JSONB NOT NULL,
		source_count INT NOT NULL
	)`,
}

// EnsureSchema creates the quote tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
