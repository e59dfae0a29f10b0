package cli

import (
	"fmt"
	"sort"
	"strings"
)

// attach runs the per-process screen view: a small sub-REPL with
// `process-smi` and `exit`.
func (sh *Shell) attach(name string) {
	clearScreen(sh.out)
	fmt.Fprintf(sh.out, "Attached to process: %s\n", name)

	for {
		fmt.Fprintf(sh.out, "[screen:%s]$ ", name)
		if !sh.in.Scan() {
			return
		}
		switch strings.TrimSpace(sh.in.Text()) {
		case "process-smi":
			sh.processSMI(name)
		case "exit":
			return
		case "":
		default:
			fmt.Fprintln(sh.out, "Unknown command.")
		}
	}
}

// processSMI prints the live state of the attached process.
func (sh *Shell) processSMI(name string) {
	p, ok := sh.scheduler.Registry().Lookup(name)
	if !ok {
		fmt.Fprintf(sh.out, "Process \"%s\" not found.\n", name)
		return
	}
	in := p.Info()

	fmt.Fprintf(sh.out, "Process: %s\n", in.Name)
	fmt.Fprintf(sh.out, "ID: %d\n", in.ID)
	fmt.Fprintf(sh.out, "Created: %s\n", in.Stamp)
	fmt.Fprintf(sh.out, "Logs written: %d\n", p.LogLines())

	if in.Status.IsTerminal() {
		if in.ErrorFlag {
			fmt.Fprintf(sh.out, "Faulted: %s\n", p.FaultMessage())
		} else {
			fmt.Fprintln(sh.out, "Finished!")
		}
	} else {
		fmt.Fprintf(sh.out, "Status: %s\n", in.Status)
		fmt.Fprintf(sh.out, "Current instruction line: %d\n", in.IP)
		fmt.Fprintf(sh.out, "Lines of code: %d\n", in.Total)
	}

	mem := p.MemorySnapshot()
	if len(mem) > 0 {
		names := make([]string, 0, len(mem))
		for k := range mem {
			names = append(names, k)
		}
		sort.Strings(names)
		fmt.Fprint(sh.out, "Variables:")
		for _, k := range names {
			fmt.Fprintf(sh.out, " %s=%d", k, mem[k])
		}
		fmt.Fprintln(sh.out)
	}
}
