// Package store persists quote snapshots: an append-only time series
// plus a singleton "latest" record for O(1) current-rate reads.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pixhistorial/internal/quote"
)

// Order selects the sort direction of a range query.
type Order int

const (
	Ascending Order = iota
	Descending
)

// StorageError is a failed storage operation. The collection cycle
// treats it as terminal; the next scheduled cycle tries again.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Gateway is the persistence surface consumed by the collector and the
// read layer.
type Gateway interface {
	// Commit appends the snapshot to the time series and then advances
	// the latest record. A failed append skips the latest update.
	Commit(ctx context.Context, snap quote.Snapshot) error

	// ReadLatest returns the most recently committed snapshot. ok is
	// false when no snapshot has ever been committed.
	ReadLatest(ctx context.Context) (snap quote.Snapshot, ok bool, err error)

	// RangeQuery returns the history records for one app inside
	// [since, until]. Each call re-executes the read. An empty range
	// yields an empty slice, not an error.
	RangeQuery(ctx context.Context, appName string, since, until time.Time, order Order) ([]quote.HistoryRecord, error)

	// Ping probes storage reachability.
	Ping(ctx context.Context) error
}

// Store is the PostgreSQL-backed Gateway.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ Gateway = (*Store)(nil)

// New creates a Store on the given pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Commit writes the snapshot in fixed order: the snapshot row and its
// history projection first, inside one transaction, then the latest
// upsert. "Latest" never advances past what the history durably holds.
//
// Out-of-order commits (concurrent writers) still append their rows to
// the time series; only the latest record is guarded, by the
// conditional upsert. The scheduler serializes cycles, so interleaved
// history rows only arise from concurrent manual collection runs.
func (s *Store) Commit(ctx context.Context, snap quote.Snapshot) error {
	if err := s.appendHistory(ctx, snap); err != nil {
		return &StorageError{Op: "append", Err: err}
	}

	if err := s.upsertLatest(ctx, snap); err != nil {
		return &StorageError{Op: "upsert latest", Err: err}
	}

	s.logger.Debug("snapshot committed",
		"captured_at", snap.CapturedAt,
		"quotes", len(snap.Quotes),
	)
	return nil
}

func (s *Store) appendHistory(ctx context.Context, snap quote.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO snapshots (captured_at, quotes, source_count)
		VALUES ($1, $2, $3)
	`, snap.CapturedAt, snap.Quotes, snap.SourceCount)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	// Re-committing the same snapshot is a no-op per history row.
	batch := &pgx.Batch{}
	for _, r := range snap.History() {
		batch.Queue(`
			INSERT INTO quote_history (app_name, captured_at, rate)
			VALUES ($1, $2, $3)
			ON CONFLICT (app_name, captured_at) DO NOTHING
		`, r.AppName, r.CapturedAt, r.Rate)
	}

	results := tx.SendBatch(ctx, batch)
	for range snap.Quotes {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert history: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

// upsertLatest replaces the singleton latest record. The WHERE clause
// keeps captured_at monotonically non-decreasing: an older snapshot can
// never move "latest" backwards.
func (s *Store) upsertLatest(ctx context.Context, snap quote.Snapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO latest_snapshot (id, captured_at, quotes, source_count)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET captured_at = EXCLUDED.captured_at,
		    quotes = EXCLUDED.quotes,
		    source_count = EXCLUDED.source_count
		WHERE latest_snapshot.captured_at <= EXCLUDED.captured_at
	`, snap.CapturedAt, snap.Quotes, snap.SourceCount)
	return err
}

// ReadLatest returns the latest committed snapshot.
func (s *Store) ReadLatest(ctx context.Context) (quote.Snapshot, bool, error) {
	var snap quote.Snapshot
	err := s.pool.QueryRow(ctx, `
		SELECT captured_at, quotes, source_count
		FROM latest_snapshot
		WHERE id = 1
	`).Scan(&snap.CapturedAt, &snap.Quotes, &snap.SourceCount)
	if err == pgx.ErrNoRows {
		return quote.Snapshot{}, false, nil
	}
	if err != nil {
		return quote.Snapshot{}, false, &StorageError{Op: "read latest", Err: err}
	}
	return snap, true, nil
}

// RangeQuery returns one app's history inside [since, until].
func (s *Store) RangeQuery(ctx context.Context, appName string, since, until time.Time, order Order) ([]quote.HistoryRecord, error) {
	dir := "ASC"
	if order == Descending {
		dir = "DESC"
	}

	rows, err := s.pool.Query(ctx, `
		SELECT app_name, captured_at, rate
		FROM quote_history
		WHERE app_name = $1 AND captured_at >= $2 AND captured_at <= $3
		ORDER BY captured_at `+dir,
		appName, since, until)
	if err != nil {
		return nil, &StorageError{Op: "range query", Err: err}
	}
	defer rows.Close()

	var records []quote.HistoryRecord
	for rows.Next() {
		var r quote.HistoryRecord
		if err := rows.Scan(&r.AppName, &r.CapturedAt, &r.Rate); err != nil {
			return nil, &StorageError{Op: "range query", Err: err}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "range query", Err: err}
	}

	return records, nil
}

// Ping probes the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &StorageError{Op: "ping", Err: err}
	}
	return nil
}
