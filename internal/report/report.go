// Package report renders the CPU utilization listing shown by
// `screen -ls` and written to csopesy-log.txt by `report-util`.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/me/coresim/pkg/model"
)

// FileName is where report-util writes the utilization report.
const FileName = "csopesy-log.txt"

const divider = "----------------------------------------"

// Utilization summarizes core usage at one instant.
type Utilization struct {
	CoresUsed      int
	CoresAvailable int
	Percent        float64
}

// Snapshot computes utilization over the given process views:
// utilization is the number of distinct cores holding a non-finished
// process over the total core count.
func Snapshot(infos []model.Info, totalCores int) Utilization {
	used := make(map[int]struct{})
	for _, in := range infos {
		if !in.Status.IsTerminal() && in.Core >= 0 {
			used[in.Core] = struct{}{}
		}
	}
	u := Utilization{CoresUsed: len(used)}
	u.CoresAvailable = totalCores - u.CoresUsed
	if u.CoresAvailable < 0 {
		u.CoresAvailable = 0
	}
	if totalCores > 0 {
		u.Percent = float64(u.CoresUsed) / float64(totalCores) * 100
	}
	return u
}

// Render writes the full listing: CPU stats header, then Running and
// Finished sections.
func Render(w io.Writer, infos []model.Info, totalCores int) {
	u := Snapshot(infos, totalCores)

	fmt.Fprintf(w, "%s\n", divider)
	fmt.Fprintf(w, "CPU Stats:\n")
	fmt.Fprintf(w, "Cores Used:      %d / %d\n", u.CoresUsed, totalCores)
	fmt.Fprintf(w, "Cores Available: %d\n", u.CoresAvailable)
	fmt.Fprintf(w, "CPU Utilization: %.2f%%\n", u.Percent)
	fmt.Fprintf(w, "%s\n\n", divider)

	fmt.Fprintf(w, "Running Processes:\n")
	running := 0
	for _, in := range infos {
		if in.Status.IsTerminal() || in.Core < 0 {
			continue
		}
		running++
		fmt.Fprintf(w, "%-15s%-22sCore: %-3d  %d / %d\n",
			"- "+in.Name, "("+in.Stamp+")", in.Core, in.IP, in.Total)
	}
	if running == 0 {
		fmt.Fprintf(w, "No running processes.\n")
	}

	fmt.Fprintf(w, "\nFinished Processes:\n")
	finished := 0
	for _, in := range infos {
		if !in.Status.IsTerminal() {
			continue
		}
		finished++
		tag := "Finished "
		if in.ErrorFlag {
			tag = "Error    "
		}
		fmt.Fprintf(w, "%-15s%-22s%s  %d / %d\n",
			"- "+in.Name, "("+in.Stamp+")", tag, in.Total, in.Total)
	}
	if finished == 0 {
		fmt.Fprintf(w, "No finished processes.\n")
	}

	fmt.Fprintf(w, "%s\n", divider)
}

// Write saves the listing to path (csopesy-log.txt by convention).
func Write(path string, infos []model.Info, totalCores int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer f.Close()
	Render(f, infos, totalCores)
	return nil
}

// Infos collects point-in-time views from live process handles.
func Infos(procs []*model.Process) []model.Info {
	out := make([]model.Info, 0, len(procs))
	for _, p := range procs {
		out = append(out, p.Info())
	}
	return out
}
