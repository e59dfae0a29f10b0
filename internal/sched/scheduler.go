package sched

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/me/coresim/internal/config"
	"github.com/me/coresim/internal/gen"
	"github.com/me/coresim/internal/interp"
	"github.com/me/coresim/internal/proclog"
	"github.com/me/coresim/internal/registry"
	"github.com/me/coresim/pkg/model"
)

// Scheduler wires the runtime, ready queue, registry, worker pool, and
// batch generator together. One worker goroutine runs per configured
// core; the dispatch policy is a tagged choice inside the worker loop,
// not a type hierarchy.
type Scheduler struct {
	cfg      config.Config
	rt       *Runtime
	queue    *ReadyQueue
	registry *registry.Registry
	gen      *gen.Generator
	batcher  *Batcher
	logger   *slog.Logger

	startOnce sync.Once
	joinOnce  sync.Once
	workerWG  sync.WaitGroup
}

// New creates a Scheduler. Nothing runs until Start.
func New(cfg config.Config, rt *Runtime, reg *registry.Registry, g *gen.Generator, logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		cfg:      cfg,
		rt:       rt,
		queue:    NewReadyQueue(),
		registry: reg,
		gen:      g,
		logger:   logger.With("component", "scheduler"),
	}
	s.batcher = NewBatcher(s, logger)
	return s
}

// Runtime returns the shared runtime.
func (s *Scheduler) Runtime() *Runtime { return s.rt }

// Registry returns the process registry.
func (s *Scheduler) Registry() *registry.Registry { return s.registry }

// Config returns the immutable configuration.
func (s *Scheduler) Config() config.Config { return s.cfg }

// Batcher returns the background process generator.
func (s *Scheduler) Batcher() *Batcher { return s.batcher }

// Start launches the tick goroutine and the worker pool. Idempotent.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.rt.StartTicks()
		for core := 0; core < s.cfg.NumCPU; core++ {
			s.workerWG.Add(1)
			go s.worker(core)
		}
		s.logger.Info("scheduler started",
			"policy", s.cfg.Scheduler,
			"num_cpu", s.cfg.NumCPU,
			"quantum", s.cfg.Quantum,
		)
	})
}

// Submit enqueues a registered process as READY.
func (s *Scheduler) Submit(p *model.Process) {
	s.queue.Push(p)
	readyQueueDepth.Set(float64(s.queue.Len()))
}

// CreateProcess registers a new named process with the given
// instruction list, opens its log sink, and enqueues it. Fails with
// ErrDuplicateName when the name is taken; the process is not enqueued.
func (s *Scheduler) CreateProcess(name string, instructions []model.Instruction) (*model.Process, error) {
	sink, err := proclog.NewFileSink(s.cfg.LogDir, name)
	if err != nil {
		return nil, fmt.Errorf("create process %q: %w", name, err)
	}
	p := model.NewProcess(s.rt.NextPID(), name, instructions, sink)
	if err := s.registry.Register(p); err != nil {
		sink.Close()
		return nil, err
	}
	s.Submit(p)
	s.logger.Debug("process created", "name", name, "pid", p.ID(), "instructions", len(instructions))
	return p, nil
}

// Finish sets the global finished flag, stops the batch generator, and
// wakes the queue so workers can drain and exit.
func (s *Scheduler) Finish() {
	s.logger.Info("scheduler finishing")
	s.rt.Finish()
	s.batcher.Stop()
	s.queue.Shutdown()
}

// JoinAll waits for the worker pool, the batch generator, and the tick
// goroutine. Idempotent; Finish must have been called.
func (s *Scheduler) JoinAll() {
	s.joinOnce.Do(func() {
		s.workerWG.Wait()
		s.batcher.Join()
		s.rt.WaitTickJoin()
		s.logger.Info("scheduler stopped", "ticks", s.rt.Now())
	})
}

// worker is one logical core: it pulls handles from the ready queue and
// runs one dispatch quantum per pull.
func (s *Scheduler) worker(core int) {
	defer s.workerWG.Done()
	for {
		p, err := s.queue.Pop()
		if err != nil {
			// Queue shut down and drained.
			s.logger.Debug("worker exiting", "core", core)
			return
		}
		readyQueueDepth.Set(float64(s.queue.Len()))
		if p.Status().IsTerminal() {
			continue
		}

		p.SetCore(core)
		if err := p.SetStatus(model.StatusRunning); err != nil {
			// A handle in the queue must be dispatchable; anything else
			// is dropped rather than run in a bad state.
			s.logger.Warn("dispatch rejected", "name", p.Name(), "core", core, "error", err)
			p.SetCore(-1)
			continue
		}
		activeCores.Inc()
		dispatchesTotal.WithLabelValues(s.cfg.Scheduler.String()).Inc()

		switch s.cfg.Scheduler {
		case model.PolicyRR:
			s.runQuantumRR(core, p)
		default:
			s.runToCompletion(core, p)
		}
		activeCores.Dec()
	}
}

// runToCompletion is the FCFS path: the process keeps the core until it
// finishes, faults, or the scheduler shuts down. A SLEEP holds the core
// and spin-yields until the deadline passes.
func (s *Scheduler) runToCompletion(core int, p *model.Process) {
	for {
		if s.rt.Finished() {
			s.release(p, core)
			return
		}
		if p.SleepArmed() && s.rt.Now() < p.WakeTick() {
			s.sleepPoll()
			continue
		}

		s.rt.ObserveDelay(s.cfg.DelayPerExec)

		switch interp.Step(p, s.rt.Now()) {
		case interp.OutcomeDone:
			s.retire(p, core, outcomeFinished)
			return
		case interp.OutcomeFault:
			s.retire(p, core, outcomeFaulted)
			return
		default:
			// Advanced or Yield-Sleep: keep the core.
		}
	}
}

// runQuantumRR is the round-robin path: up to quantum instructions,
// then back to the queue tail. A sleeping process releases the core
// immediately and is requeued until its deadline passes.
func (s *Scheduler) runQuantumRR(core int, p *model.Process) {
	executed := 0
	for {
		if s.rt.Finished() {
			s.release(p, core)
			return
		}
		if p.SleepArmed() && s.rt.Now() < p.WakeTick() {
			if !s.release(p, core) {
				return
			}
			s.Submit(p)
			return
		}

		s.rt.ObserveDelay(s.cfg.DelayPerExec)

		switch interp.Step(p, s.rt.Now()) {
		case interp.OutcomeDone:
			s.retire(p, core, outcomeFinished)
			return
		case interp.OutcomeFault:
			s.retire(p, core, outcomeFaulted)
			return
		case interp.OutcomeSleep:
			// Requeued by the sleep check on the next iteration.
		case interp.OutcomeAdvanced:
			executed++
			if executed >= s.cfg.Quantum {
				if !s.release(p, core) {
					return
				}
				s.Submit(p)
				return
			}
		}
	}
}

// release puts a non-terminal process back to READY with its core
// cleared. A rejected transition means the handle must not be requeued;
// callers check the return value before a Submit.
func (s *Scheduler) release(p *model.Process, core int) bool {
	if err := p.Release(model.StatusReady); err != nil {
		s.logger.Warn("release rejected", "name", p.Name(), "core", core, "error", err)
		return false
	}
	return true
}

// retire releases the core of a terminal process. Terminal processes
// stay in the registry for reporting and are never requeued.
func (s *Scheduler) retire(p *model.Process, core int, outcome string) {
	p.SetCore(-1)
	processesTotal.WithLabelValues(outcome).Inc()
	if outcome == outcomeFaulted {
		s.logger.Warn("process faulted", "name", p.Name(), "pid", p.ID(), "core", core, "reason", p.FaultMessage())
	} else {
		s.logger.Info("process finished", "name", p.Name(), "pid", p.ID(), "core", core)
	}
	if err := p.CloseLog(); err != nil {
		s.logger.Warn("close process log", "name", p.Name(), "error", err)
	}
}

// sleepPoll is the FCFS sleep-hold wait. The core is deliberately
// held; only the OS thread yields.
func (s *Scheduler) sleepPoll() {
	time.Sleep(pollPeriod)
}
