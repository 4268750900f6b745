// Package database provides connection pool management for PostgreSQL.
//
// Three tables back the quote pipeline:
//   - snapshots: append-only snapshot time series
//   - quote_history: per-app rate projection for range queries
//   - latest_snapshot: singleton row holding the most recent snapshot
package database
