// Package store archives completed runs. The live scheduler never
// reads it back; it exists so utilization reports survive the process.
package store

import (
	"context"
	"time"

	"github.com/me/coresim/pkg/model"
)

// RunRecord is one archived scheduler run.
type RunRecord struct {
	ID         string
	Policy     model.Policy
	NumCPU     int
	Ticks      uint64
	CoresUsed  int
	Percent    float64
	StartedAt  time.Time
	ArchivedAt time.Time
	Processes  []ProcessRecord
}

// ProcessRecord is the archived view of one process at archive time.
type ProcessRecord struct {
	RunID     string
	PID       int64
	Name      string
	Status    model.Status
	Completed int
	Total     int
	ErrorFlag bool
	CreatedAt string
}

// Store persists run archives.
type Store interface {
	// ArchiveRun inserts the run and all of its process records in one
	// transaction.
	ArchiveRun(ctx context.Context, run *RunRecord) error

	// ListRuns returns archived runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*RunRecord, error)

	// GetRun loads one run with its process records.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
