package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/coresim/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// WAL keeps report reads cheap while a run is being archived.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// ArchiveRun inserts the run row and one row per process inside a
// transaction.
func (s *SQLiteStore) ArchiveRun(ctx context.Context, run *RunRecord) error {
	s.logger.Debug("sql", "op", "archive", "run_id", run.ID, "processes", len(run.Processes))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, policy, num_cpu, ticks, cores_used, utilization, started_at, archived_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Policy.String(), run.NumCPU, run.Ticks, run.CoresUsed, run.Percent,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.ArchivedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for _, pr := range run.Processes {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_processes (run_id, pid, name, status, completed, total, error_flag, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, pr.PID, pr.Name, pr.Status.String(), pr.Completed, pr.Total, boolToInt(pr.ErrorFlag), pr.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert run process %s/%d: %w", run.ID, pr.PID, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns archived runs, newest first, without their process
// records.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "limit", limit)
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, policy, num_cpu, ticks, cores_used, utilization, started_at, archived_at
		 FROM runs ORDER BY archived_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun loads one run and its process records. Returns nil, nil when
// the run does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, policy, num_cpu, ticks, cores_used, utilization, started_at, archived_at
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, pid, name, status, completed, total, error_flag, created_at
		 FROM run_processes WHERE run_id = ? ORDER BY pid`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var pr ProcessRecord
		var errorFlag int
		var status string
		if err := rows.Scan(&pr.RunID, &pr.PID, &pr.Name, &status, &pr.Completed, &pr.Total, &errorFlag, &pr.CreatedAt); err != nil {
			return nil, err
		}
		pr.Status = statusFromString(status)
		pr.ErrorFlag = errorFlag != 0
		run.Processes = append(run.Processes, pr)
	}
	return run, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var run RunRecord
	var policy, startedAt, archivedAt string
	if err := row.Scan(&run.ID, &policy, &run.NumCPU, &run.Ticks, &run.CoresUsed, &run.Percent, &startedAt, &archivedAt); err != nil {
		return nil, err
	}
	run.Policy = policyFromString(policy)
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	run.ArchivedAt, _ = time.Parse(time.RFC3339Nano, archivedAt)
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func statusFromString(s string) model.Status {
	return model.Status(s)
}

func policyFromString(s string) model.Policy {
	return model.Policy(s)
}
