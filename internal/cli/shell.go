package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/me/coresim/internal/config"
	"github.com/me/coresim/internal/gen"
	"github.com/me/coresim/internal/registry"
	"github.com/me/coresim/internal/report"
	"github.com/me/coresim/internal/sched"
	"github.com/me/coresim/internal/store"
)

// Shell is the interactive command loop. `initialize` must run before
// any other command.
type Shell struct {
	cfgPath string
	dbPath  string
	logger  *slog.Logger

	in  *bufio.Scanner
	out io.Writer

	cfg       config.Config
	scheduler *sched.Scheduler
	gen       *gen.Generator
	startedAt time.Time
}

// NewShell builds a shell reading stdin and writing stdout.
func NewShell(cfgPath, dbPath string, logger *slog.Logger) *Shell {
	return &Shell{
		cfgPath: cfgPath,
		dbPath:  dbPath,
		logger:  logger,
		in:      bufio.NewScanner(os.Stdin),
		out:     os.Stdout,
	}
}

// Run executes the command loop until `exit` or EOF.
func (sh *Shell) Run() error {
	clearScreen(sh.out)
	printBanner(sh.out)

	for {
		fmt.Fprint(sh.out, prompt)
		if !sh.in.Scan() {
			break
		}
		line := strings.TrimSpace(sh.in.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		if cmd == "exit" {
			fmt.Fprintln(sh.out, "Exiting...")
			sh.shutdown()
			return nil
		}
		sh.dispatch(cmd, args)
	}

	sh.shutdown()
	return sh.in.Err()
}

func (sh *Shell) dispatch(cmd string, args []string) {
	if cmd == "initialize" {
		sh.initialize()
		return
	}
	if sh.scheduler == nil {
		fmt.Fprintln(sh.out, "Command not available. Please run 'initialize' first.")
		return
	}

	switch cmd {
	case "scheduler-start":
		sh.scheduler.Start()
		sh.scheduler.Batcher().Start()
		fmt.Fprintln(sh.out, "Scheduler started.")
	case "scheduler-stop":
		sh.scheduler.Batcher().Stop()
		fmt.Fprintln(sh.out, "Batch process generation stopped.")
	case "screen":
		sh.screen(args)
	case "report-util":
		sh.reportUtil()
	default:
		fmt.Fprintln(sh.out, "Unrecognized command.")
	}
}

// initialize loads the config and constructs the scheduler. One
// runtime per session: a second initialize is refused.
func (sh *Shell) initialize() {
	if sh.scheduler != nil {
		fmt.Fprintln(sh.out, "Already initialized.")
		return
	}
	cfg, err := config.Load(sh.cfgPath, sh.logger)
	if err != nil {
		fmt.Fprintf(sh.out, "initialize failed: %v\n", err)
		return
	}
	sh.cfg = cfg
	rt := sched.NewRuntime()
	reg := registry.New(sh.logger)
	sh.gen = gen.New(rand.NewSource(time.Now().UnixNano()))
	sh.scheduler = sched.New(cfg, rt, reg, sh.gen, sh.logger)
	sh.startedAt = time.Now()
	fmt.Fprintln(sh.out, "System initialized.")
}

func (sh *Shell) screen(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(sh.out, "Unknown screen option.")
		return
	}
	switch args[0] {
	case "-s":
		if len(args) < 2 {
			fmt.Fprintln(sh.out, "Please provide a screen name.")
			return
		}
		sh.screenStart(args[1])
	case "-r":
		if len(args) < 2 {
			fmt.Fprintln(sh.out, "Please specify a screen name to resume.")
			return
		}
		sh.screenResume(args[1])
	case "-ls":
		infos := report.Infos(sh.scheduler.Registry().Snapshot())
		report.Render(sh.out, infos, sh.cfg.NumCPU)
	default:
		fmt.Fprintln(sh.out, "Unknown screen option.")
	}
}

// screenStart creates one manual process with a generated instruction
// list, enqueues it, and attaches.
func (sh *Shell) screenStart(name string) {
	if _, exists := sh.scheduler.Registry().Lookup(name); exists {
		fmt.Fprintf(sh.out, "Screen with name '%s' already exists. Use 'screen -r %s' to resume.\n", name, name)
		return
	}

	count := sh.gen.Count(sh.cfg.MinIns, sh.cfg.MaxIns)
	instructions := sh.gen.Instructions(name, count)

	p, err := sh.scheduler.CreateProcess(name, instructions)
	if err != nil {
		fmt.Fprintf(sh.out, "Could not create screen '%s': %v\n", name, err)
		return
	}
	fmt.Fprintf(sh.out, "Screen '%s' added to scheduler queue.\n", name)
	sh.attach(p.Name())
}

func (sh *Shell) screenResume(name string) {
	if _, ok := sh.scheduler.Registry().Lookup(name); !ok {
		fmt.Fprintf(sh.out, "No screen found with the name '%s'.\n", name)
		return
	}
	sh.attach(name)
}

// reportUtil writes csopesy-log.txt and archives the snapshot.
func (sh *Shell) reportUtil() {
	infos := report.Infos(sh.scheduler.Registry().Snapshot())
	if err := report.Write(report.FileName, infos, sh.cfg.NumCPU); err != nil {
		fmt.Fprintf(sh.out, "Failed to write report: %v\n", err)
		return
	}
	fmt.Fprintf(sh.out, "Report saved to %s\n", report.FileName)

	if err := sh.archive(); err != nil {
		sh.logger.Warn("archive run", "error", err)
	}
}

// archive persists the current run snapshot into the SQLite archive.
func (sh *Shell) archive() error {
	st, err := store.NewSQLiteStore(sh.dbPath, sh.logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	infos := report.Infos(sh.scheduler.Registry().Snapshot())
	u := report.Snapshot(infos, sh.cfg.NumCPU)

	run := &store.RunRecord{
		ID:         "run_" + uuid.New().String()[:8],
		Policy:     sh.cfg.Scheduler,
		NumCPU:     sh.cfg.NumCPU,
		Ticks:      sh.scheduler.Runtime().Now(),
		CoresUsed:  u.CoresUsed,
		Percent:    u.Percent,
		StartedAt:  sh.startedAt,
		ArchivedAt: time.Now(),
	}
	for _, in := range infos {
		run.Processes = append(run.Processes, store.ProcessRecord{
			RunID:     run.ID,
			PID:       in.ID,
			Name:      in.Name,
			Status:    in.Status,
			Completed: in.IP,
			Total:     in.Total,
			ErrorFlag: in.ErrorFlag,
			CreatedAt: in.Stamp,
		})
	}
	return st.ArchiveRun(ctx, run)
}

// shutdown finishes the scheduler and archives the final state.
func (sh *Shell) shutdown() {
	if sh.scheduler == nil {
		return
	}
	sh.scheduler.Finish()
	sh.scheduler.JoinAll()
	if err := sh.archive(); err != nil {
		sh.logger.Warn("archive final run", "error", err)
	}
}
