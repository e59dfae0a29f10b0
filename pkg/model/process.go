package model

import (
	"sync"
	"time"
)

// TimestampLayout is the layout used for creation timestamps in
// listings and reports.
const TimestampLayout = "01/02/2006, 03:04:05 PM"

// LogSink receives the output lines a process produces. Implementations
// serialize writes and flush after each append.
type LogSink interface {
	Append(line string) error
	Close() error
}

// ForFrame is the runtime record of an active FOR execution.
type ForFrame struct {
	Body      []Instruction
	Repeat    int
	Iteration int
	InnerIP   int
}

// Process is a synthetic process: an instruction stream plus the
// execution state the interpreter and scheduler mutate.
//
// Processes are shared, non-owning handles. Ownership lives in the
// registry; the ready queue and workers only borrow the pointer. All
// mutable fields are guarded by the per-process mutex, and every
// accessor holds it only for the duration of a single-field operation
// so observers (listing, report, HTTP API) never stall a worker.
type Process struct {
	id           int64
	name         string
	createdAt    time.Time
	instructions []Instruction
	sink         LogSink

	mu       sync.Mutex
	ip       int
	memory   map[string]uint16
	frames   []ForFrame
	status   Status
	core     int
	wakeTick uint64
	asleep   bool
	fault    *FaultError
	logLines int
}

// NewProcess builds a READY process with an empty memory and no core
// assigned. The instruction slice is owned by the process afterwards.
func NewProcess(id int64, name string, instructions []Instruction, sink LogSink) *Process {
	return &Process{
		id:           id,
		name:         name,
		createdAt:    time.Now(),
		instructions: instructions,
		sink:         sink,
		memory:       make(map[string]uint16),
		status:       StatusReady,
		core:         -1,
	}
}

// ID returns the process id.
func (p *Process) ID() int64 { return p.id }

// Name returns the process name.
func (p *Process) Name() string { return p.name }

// CreatedAt returns the creation time.
func (p *Process) CreatedAt() time.Time { return p.createdAt }

// CreatedStamp returns the creation time in listing format.
func (p *Process) CreatedStamp() string {
	return p.createdAt.Format(TimestampLayout)
}

// TotalInstructions returns the length of the top-level instruction list.
func (p *Process) TotalInstructions() int { return len(p.instructions) }

// IP returns the current top-level instruction pointer.
func (p *Process) IP() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ip
}

// Status returns the current status.
func (p *Process) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// SetStatus transitions the process to next, enforcing the transition
// table. Setting the current status again is a no-op.
func (p *Process) SetStatus(next Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transitionLocked(next)
}

// transitionLocked validates and applies a status change. Callers hold p.mu.
func (p *Process) transitionLocked(next Status) error {
	if next == p.status {
		return nil
	}
	if !p.status.CanTransitionTo(next) {
		return &InvalidTransitionError{Name: p.name, From: p.status, To: next}
	}
	p.status = next
	return nil
}

// Core returns the assigned core id, or -1 when not dispatched.
func (p *Process) Core() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.core
}

// SetCore records the core the process is dispatched on.
func (p *Process) SetCore(core int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.core = core
}

// Release clears the core assignment and sets the given status in one
// critical section, so observers never see a READY process holding a
// core. The status change goes through the transition table; on
// rejection the core is still released.
func (p *Process) Release(next Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.core = -1
	return p.transitionLocked(next)
}

// Sleep marks the process SLEEPING until the given tick. The sleep
// stays armed until CompleteSleep, so the interpreter can tell a
// freshly woken process apart from one visiting the SLEEP instruction
// for the first time (ip does not advance while the sleep is armed).
// Only a RUNNING process may sleep.
func (p *Process) Sleep(until uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.transitionLocked(StatusSleeping); err != nil {
		return err
	}
	p.wakeTick = until
	p.asleep = true
	return nil
}

// WakeTick returns the tick at which a SLEEPING process becomes runnable.
func (p *Process) WakeTick() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wakeTick
}

// SleepArmed reports whether the process is inside an uncompleted SLEEP.
func (p *Process) SleepArmed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.asleep
}

// CompleteSleep disarms the current SLEEP once its deadline has passed.
func (p *Process) CompleteSleep() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asleep = false
	p.wakeTick = 0
}

// Fault marks the process terminally failed: error flag set, FINISHED,
// never requeued. It bypasses the transition table — faulting is the
// error path itself and always terminates the process.
func (p *Process) Fault(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fault = &FaultError{Process: p.name, IP: p.ip, Reason: reason}
	p.status = StatusFinished
}

// Errored reports whether the process faulted.
func (p *Process) Errored() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fault != nil
}

// FaultErr returns the recorded fault, or nil.
func (p *Process) FaultErr() *FaultError {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fault
}

// FaultMessage returns the recorded fault rendered as text, empty when
// the process never faulted.
func (p *Process) FaultMessage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fault == nil {
		return ""
	}
	return p.fault.Error()
}

// VarOrZero resolves a variable, declaring it as 0 on first reference.
func (p *Process) VarOrZero(name string) uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.memory[name]
	if !ok {
		p.memory[name] = 0
	}
	return v
}

// SetVar stores a value into the process memory.
func (p *Process) SetVar(name string, value uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.memory[name] = value
}

// MemorySnapshot returns a copy of the process memory.
func (p *Process) MemorySnapshot() map[string]uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := make(map[string]uint16, len(p.memory))
	for k, v := range p.memory {
		snap[k] = v
	}
	return snap
}

// ActiveInstruction returns the instruction the next step executes:
// the top FOR frame's current body element when inside a FOR, the
// top-level instruction at ip otherwise. ok is false when the process
// has run past its instruction list.
func (p *Process) ActiveInstruction() (Instruction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.frames); n > 0 {
		top := p.frames[n-1]
		return top.Body[top.InnerIP], true
	}
	if p.ip >= len(p.instructions) {
		return Instruction{}, false
	}
	return p.instructions[p.ip], true
}

// PushFrame enters a FOR body.
func (p *Process) PushFrame(body []Instruction, repeat int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, ForFrame{Body: body, Repeat: repeat})
}

// FrameDepth returns the number of active FOR frames.
func (p *Process) FrameDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

// Advance moves the execution cursor past the instruction that just
// ran: the inner cursor when inside a FOR (popping completed frames,
// iterating remaining ones), the top-level ip otherwise. It returns
// true when the process has no instruction left to run.
func (p *Process) Advance() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.frames) == 0 {
		p.ip++
		return p.ip >= len(p.instructions)
	}

	top := &p.frames[len(p.frames)-1]
	top.InnerIP++
	for {
		if top.InnerIP < len(top.Body) {
			return false
		}
		top.Iteration++
		if top.Iteration < top.Repeat {
			top.InnerIP = 0
			return false
		}
		// Frame exhausted: pop and move the enclosing cursor past the FOR.
		p.frames = p.frames[:len(p.frames)-1]
		if len(p.frames) == 0 {
			p.ip++
			return p.ip >= len(p.instructions)
		}
		top = &p.frames[len(p.frames)-1]
		top.InnerIP++
	}
}

// AppendLog writes one line to the process log sink.
func (p *Process) AppendLog(line string) error {
	if p.sink == nil {
		return nil
	}
	err := p.sink.Append(line)
	p.mu.Lock()
	p.logLines++
	p.mu.Unlock()
	return err
}

// LogLines returns the number of log lines produced so far.
func (p *Process) LogLines() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logLines
}

// CloseLog closes the log sink. Safe to call once after the process is
// terminal.
func (p *Process) CloseLog() error {
	if p.sink == nil {
		return nil
	}
	return p.sink.Close()
}

// Info is a consistent point-in-time view of a process for listings.
type Info struct {
	ID        int64
	Name      string
	Status    Status
	Core      int
	IP        int
	Total     int
	ErrorFlag bool
	CreatedAt time.Time
	Stamp     string
}

// Info captures the observable fields under one lock acquisition.
func (p *Process) Info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Info{
		ID:        p.id,
		Name:      p.name,
		Status:    p.status,
		Core:      p.core,
		IP:        p.ip,
		Total:     len(p.instructions),
		ErrorFlag: p.fault != nil,
		CreatedAt: p.createdAt,
		Stamp:     p.createdAt.Format(TimestampLayout),
	}
}
