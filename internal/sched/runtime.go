// Package sched implements the tick-driven scheduler: the shared
// runtime (tick source, shutdown flag, id allocation), the ready queue,
// the per-core worker pool with FCFS and round-robin dispatch, and the
// background batch generator.
package sched

import (
	"sync"
	"sync/atomic"
	"time"
)

// tickPeriod is how often the tick goroutine advances the counter.
const tickPeriod = time.Millisecond

// pollPeriod is the sleep used by every polling wait (FCFS sleep-hold,
// batch generator, delay observation). Shutdown responsiveness is
// bounded by it.
const pollPeriod = time.Millisecond

// Runtime is the shared mutable state every component receives at
// construction. It replaces file-global singletons: the tick counter,
// the finished flag, and the process id counter all live here as
// atomics.
type Runtime struct {
	ticks    atomic.Uint64
	finished atomic.Bool
	nextPID  atomic.Int64

	tickOnce sync.Once
	tickWG   sync.WaitGroup
}

// NewRuntime returns a Runtime with the tick counter at zero. The tick
// goroutine is not started until StartTicks.
func NewRuntime() *Runtime {
	return &Runtime{}
}

// Now returns the current tick. Monotonic and non-decreasing.
func (rt *Runtime) Now() uint64 {
	return rt.ticks.Load()
}

// NextPID allocates the next process id, starting at 1.
func (rt *Runtime) NextPID() int64 {
	return rt.nextPID.Add(1)
}

// Finished reports whether Finish has been called.
func (rt *Runtime) Finished() bool {
	return rt.finished.Load()
}

// Finish sets the global shutdown flag. The tick goroutine and every
// polling wait observe it within one poll period.
func (rt *Runtime) Finish() {
	rt.finished.Store(true)
}

// StartTicks launches the tick goroutine: one increment per tick
// period until Finish. Subsequent calls are no-ops.
func (rt *Runtime) StartTicks() {
	rt.tickOnce.Do(func() {
		rt.tickWG.Add(1)
		go func() {
			defer rt.tickWG.Done()
			for !rt.finished.Load() {
				time.Sleep(tickPeriod)
				rt.ticks.Add(1)
			}
		}()
	})
}

// WaitTickJoin blocks until the tick goroutine has exited. Finish must
// have been called first.
func (rt *Runtime) WaitTickJoin() {
	rt.tickWG.Wait()
}

// ObserveDelay blocks until n ticks have elapsed since it was called,
// or the runtime finishes. Workers call it before each interpreter step
// to charge the configured per-instruction cost; the tick goroutine is
// the only writer of the counter.
func (rt *Runtime) ObserveDelay(n uint64) {
	if n == 0 {
		return
	}
	start := rt.Now()
	for rt.Now()-start < n && !rt.Finished() {
		time.Sleep(pollPeriod)
	}
}
