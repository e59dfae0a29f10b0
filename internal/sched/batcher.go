package sched

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Batcher synthesizes a new random process every batchFreq ticks while
// running. It is a two-state machine (idle/running); Start and Stop are
// idempotent, including under concurrent callers.
type Batcher struct {
	sched  *Scheduler
	logger *slog.Logger

	running atomic.Bool
	counter atomic.Int64

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBatcher creates an idle Batcher bound to the scheduler.
func NewBatcher(s *Scheduler, logger *slog.Logger) *Batcher {
	return &Batcher{
		sched:  s,
		logger: logger.With("component", "batcher"),
	}
}

// Running reports whether generation is active.
func (b *Batcher) Running() bool {
	return b.running.Load()
}

// Start begins background generation. A second call while running is a
// no-op; the state flip and channel setup happen in one critical
// section so concurrent Start/Stop callers always observe a consistent
// pair.
func (b *Batcher) Start() {
	b.mu.Lock()
	if !b.running.CompareAndSwap(false, true) {
		b.mu.Unlock()
		b.logger.Debug("batch generation already running")
		return
	}
	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})
	stopCh, doneCh := b.stopCh, b.doneCh
	b.mu.Unlock()

	b.logger.Info("batch generation started", "batch_freq", b.sched.cfg.BatchFreq)
	go b.generate(stopCh, doneCh)
}

// Stop halts generation and waits for the generator goroutine. A call
// while idle is a no-op.
func (b *Batcher) Stop() {
	b.mu.Lock()
	if !b.running.CompareAndSwap(true, false) {
		b.mu.Unlock()
		return
	}
	stopCh, doneCh := b.stopCh, b.doneCh
	b.mu.Unlock()

	close(stopCh)
	<-doneCh
	b.logger.Info("batch generation stopped", "generated", b.counter.Load())
}

// Join waits for the generator goroutine if one is active. Used by
// JoinAll after Finish.
func (b *Batcher) Join() {
	b.Stop()
}

// generate polls the tick counter and emits one process per elapsed
// batch interval.
func (b *Batcher) generate(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	rt := b.sched.rt
	lastTick := rt.Now()
	for {
		select {
		case <-stopCh:
			return
		default:
		}
		if rt.Finished() {
			return
		}

		if now := rt.Now(); now-lastTick >= b.sched.cfg.BatchFreq {
			b.emit()
			lastTick = now
		}
		time.Sleep(pollPeriod)
	}
}

// emit synthesizes, registers, and enqueues one process.
func (b *Batcher) emit() {
	n := b.counter.Add(1)
	name := fmt.Sprintf("process%d", n)

	count := b.sched.gen.Count(b.sched.cfg.MinIns, b.sched.cfg.MaxIns)
	instructions := b.sched.gen.Instructions(name, count)

	if _, err := b.sched.CreateProcess(name, instructions); err != nil {
		// Duplicate names only happen when a shell-created process took
		// the slot; skip this interval rather than abort generation.
		b.logger.Warn("batch process rejected", "name", name, "error", err)
		return
	}
	generatedTotal.Inc()
	b.logger.Debug("batch process generated", "name", name, "instructions", count)
}
