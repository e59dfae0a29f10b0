package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/me/coresim/pkg/model"
)

func info(name string, id int64, status model.Status, core, ip, total int) model.Info {
	return model.Info{
		ID:        id,
		Name:      name,
		Status:    status,
		Core:      core,
		IP:        ip,
		Total:     total,
		CreatedAt: time.Now(),
		Stamp:     "08/06/2026, 10:00:00 AM",
	}
}

func TestSnapshotCountsDistinctCores(t *testing.T) {
	infos := []model.Info{
		info("a", 1, model.StatusRunning, 0, 1, 5),
		info("b", 2, model.StatusRunning, 0, 2, 5), // same core as a
		info("c", 3, model.StatusSleeping, 1, 3, 5),
		info("d", 4, model.StatusFinished, -1, 5, 5),
		info("e", 5, model.StatusReady, -1, 0, 5),
	}

	u := Snapshot(infos, 4)
	if u.CoresUsed != 2 {
		t.Errorf("CoresUsed = %d, want 2", u.CoresUsed)
	}
	if u.CoresAvailable != 2 {
		t.Errorf("CoresAvailable = %d, want 2", u.CoresAvailable)
	}
	if u.Percent != 50 {
		t.Errorf("Percent = %.2f, want 50.00", u.Percent)
	}
}

func TestSnapshotEmpty(t *testing.T) {
	u := Snapshot(nil, 4)
	if u.CoresUsed != 0 || u.CoresAvailable != 4 || u.Percent != 0 {
		t.Errorf("empty snapshot = %+v", u)
	}
}

func TestRenderSections(t *testing.T) {
	infos := []model.Info{
		info("worker", 1, model.StatusRunning, 0, 2, 7),
		info("done", 2, model.StatusFinished, -1, 7, 7),
	}

	var sb strings.Builder
	Render(&sb, infos, 2)
	out := sb.String()

	for _, want := range []string{
		"CPU Stats:",
		"Cores Used:      1 / 2",
		"Cores Available: 1",
		"CPU Utilization: 50.00%",
		"Running Processes:",
		"- worker",
		"2 / 7",
		"Finished Processes:",
		"- done",
		"7 / 7",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmptySections(t *testing.T) {
	var sb strings.Builder
	Render(&sb, nil, 1)
	out := sb.String()
	if !strings.Contains(out, "No running processes.") {
		t.Error("missing empty running section")
	}
	if !strings.Contains(out, "No finished processes.") {
		t.Error("missing empty finished section")
	}
}

func TestRenderMarksErroredProcesses(t *testing.T) {
	in := info("bad", 1, model.StatusFinished, -1, 2, 5)
	in.ErrorFlag = true

	var sb strings.Builder
	Render(&sb, []model.Info{in}, 1)
	if !strings.Contains(sb.String(), "Error") {
		t.Error("errored process not marked in listing")
	}
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "csopesy-log.txt")
	infos := []model.Info{info("p", 1, model.StatusFinished, -1, 3, 3)}

	if err := Write(path, infos, 1); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "- p") {
		t.Fatalf("report content:\n%s", data)
	}
}
