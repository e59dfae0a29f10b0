package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the archive tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		policy      TEXT NOT NULL,
		num_cpu     INTEGER NOT NULL,
		ticks       INTEGER NOT NULL,
		cores_used  INTEGER NOT NULL DEFAULT 0,
		utilization REAL NOT NULL DEFAULT 0,
		started_at  TEXT NOT NULL,
		archived_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS run_processes (
		run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		pid        INTEGER NOT NULL,
		name       TEXT NOT NULL,
		status     TEXT NOT NULL,
		completed  INTEGER NOT NULL,
		total      INTEGER NOT NULL,
		error_flag INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		PRIMARY KEY (run_id, pid)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_run_processes_run_id ON run_processes(run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_archived_at ON runs(archived_at)`,
}

// migrate applies all DDL statements in order.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
