package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/me/coresim/pkg/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleRun(id string) *RunRecord {
	now := time.Now().UTC()
	return &RunRecord{
		ID:         id,
		Policy:     model.PolicyRR,
		NumCPU:     4,
		Ticks:      1234,
		CoresUsed:  2,
		Percent:    50,
		StartedAt:  now.Add(-time.Minute),
		ArchivedAt: now,
		Processes: []ProcessRecord{
			{RunID: id, PID: 1, Name: "process1", Status: model.StatusFinished, Completed: 5, Total: 5, CreatedAt: "08/06/2026, 10:00:00 AM"},
			{RunID: id, PID: 2, Name: "process2", Status: model.StatusRunning, Completed: 2, Total: 9, ErrorFlag: false, CreatedAt: "08/06/2026, 10:00:01 AM"},
			{RunID: id, PID: 3, Name: "bad", Status: model.StatusFinished, Completed: 1, Total: 4, ErrorFlag: true, CreatedAt: "08/06/2026, 10:00:02 AM"},
		},
	}
}

func TestArchiveAndGetRun(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.ArchiveRun(ctx, sampleRun("run_1")); err != nil {
		t.Fatalf("ArchiveRun: %v", err)
	}

	run, err := st.GetRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run == nil {
		t.Fatal("GetRun returned nil for an archived run")
	}
	if run.Policy != model.PolicyRR || run.NumCPU != 4 || run.Ticks != 1234 {
		t.Errorf("run = %+v", run)
	}
	if len(run.Processes) != 3 {
		t.Fatalf("processes = %d, want 3", len(run.Processes))
	}
	if run.Processes[0].Name != "process1" || run.Processes[2].Name != "bad" {
		t.Errorf("process order = %v", run.Processes)
	}
	if !run.Processes[2].ErrorFlag {
		t.Error("error flag lost in archive round trip")
	}
}

func TestGetRunMissing(t *testing.T) {
	st := testStore(t)
	run, err := st.GetRun(context.Background(), "run_missing")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run != nil {
		t.Fatal("GetRun returned a run for an unknown id")
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	older := sampleRun("run_old")
	older.ArchivedAt = time.Now().UTC().Add(-time.Hour)
	newer := sampleRun("run_new")

	if err := st.ArchiveRun(ctx, older); err != nil {
		t.Fatalf("ArchiveRun(old): %v", err)
	}
	if err := st.ArchiveRun(ctx, newer); err != nil {
		t.Fatalf("ArchiveRun(new): %v", err)
	}

	runs, err := st.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].ID != "run_new" || runs[1].ID != "run_old" {
		t.Errorf("order = [%s %s], want [run_new run_old]", runs[0].ID, runs[1].ID)
	}
}

func TestArchiveDuplicateRunFails(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.ArchiveRun(ctx, sampleRun("run_1")); err != nil {
		t.Fatalf("first ArchiveRun: %v", err)
	}
	if err := st.ArchiveRun(ctx, sampleRun("run_1")); err == nil {
		t.Fatal("duplicate run id did not fail")
	}
}
