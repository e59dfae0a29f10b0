// coresimd runs the scheduler headless: it loads the configuration,
// starts the worker pool and batch generator immediately, and serves
// the HTTP status API until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/me/coresim/internal/config"
	"github.com/me/coresim/internal/gen"
	"github.com/me/coresim/internal/logging"
	"github.com/me/coresim/internal/registry"
	"github.com/me/coresim/internal/report"
	"github.com/me/coresim/internal/sched"
	"github.com/me/coresim/internal/server"
	"github.com/me/coresim/internal/store"
)

func main() {
	var (
		cfgPath   = flag.String("config", config.DefaultPath, "Config file (config.txt or config.yaml)")
		addr      = flag.String("addr", ":8080", "Status API listen address")
		dbPath    = flag.String("db", "coresim.db", "Run archive database path")
		logLevel  = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		logFormat = flag.String("log-format", "text", "Log format (text, json)")
		debug     = flag.Bool("debug", false, "Shorthand for --log-level=debug")
	)
	flag.Parse()

	if *debug {
		*logLevel = "debug"
	}
	logger := logging.New(*logLevel, *logFormat)

	cfg, err := config.Load(*cfgPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	rt := sched.NewRuntime()
	reg := registry.New(logger)
	g := gen.New(rand.NewSource(time.Now().UnixNano()))
	s := sched.New(cfg, rt, reg, g, logger)
	sched.BindTickMetric(rt)

	startedAt := time.Now()
	s.Start()
	s.Batcher().Start()

	srv := &http.Server{Addr: *addr, Handler: server.New(s, logger)}
	go func() {
		logger.Info("status API listening", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("status API failed", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	s.Finish()
	s.JoinAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("status API shutdown", "error", err)
	}

	if err := archive(s, cfg, *dbPath, startedAt, logger); err != nil {
		logger.Warn("archive run", "error", err)
	}
}

// archive persists the final snapshot of the run.
func archive(s *sched.Scheduler, cfg config.Config, dbPath string, startedAt time.Time, logger *slog.Logger) error {
	st, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	infos := report.Infos(s.Registry().Snapshot())
	u := report.Snapshot(infos, cfg.NumCPU)
	run := &store.RunRecord{
		ID:         "run_" + uuid.New().String()[:8],
		Policy:     cfg.Scheduler,
		NumCPU:     cfg.NumCPU,
		Ticks:      s.Runtime().Now(),
		CoresUsed:  u.CoresUsed,
		Percent:    u.Percent,
		StartedAt:  startedAt,
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
