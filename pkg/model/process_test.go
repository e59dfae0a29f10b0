package model

import (
	"errors"
	"strings"
	"testing"
)

func newTestProcess(t *testing.T, instructions ...Instruction) *Process {
	t.Helper()
	return NewProcess(1, "p1", instructions, nil)
}

func TestAdvanceTopLevel(t *testing.T) {
	p := newTestProcess(t, Print("a"), Print("b"))

	if done := p.Advance(); done {
		t.Fatal("Advance after first instruction reported done")
	}
	if p.IP() != 1 {
		t.Fatalf("ip = %d, want 1", p.IP())
	}
	if done := p.Advance(); !done {
		t.Fatal("Advance past last instruction did not report done")
	}
	if p.IP() != 2 {
		t.Fatalf("ip = %d, want 2", p.IP())
	}
}

func TestAdvanceForFrame(t *testing.T) {
	body := []Instruction{Print("x"), Print("y")}
	p := newTestProcess(t, For(body, 2), Print("after"))

	p.PushFrame(body, 2)

	// Iteration 0: x, y. Iteration 1: x, y. Then the frame pops and ip
	// moves past the FOR.
	steps := []struct {
		wantText string
		wantDone bool
	}{
		{"x", false},
		{"y", false},
		{"x", false},
		{"y", false},
	}
	for i, step := range steps {
		in, ok := p.ActiveInstruction()
		if !ok {
			t.Fatalf("step %d: no active instruction", i)
		}
		if in.Text != step.wantText {
			t.Fatalf("step %d: active = %q, want %q", i, in.Text, step.wantText)
		}
		if done := p.Advance(); done != step.wantDone {
			t.Fatalf("step %d: done = %v, want %v", i, done, step.wantDone)
		}
	}

	if p.FrameDepth() != 0 {
		t.Fatalf("frame depth = %d after loop completion, want 0", p.FrameDepth())
	}
	if p.IP() != 1 {
		t.Fatalf("ip = %d after FOR, want 1", p.IP())
	}
	in, _ := p.ActiveInstruction()
	if in.Text != "after" {
		t.Fatalf("active after FOR = %q, want \"after\"", in.Text)
	}
}

func TestAdvanceNestedFrames(t *testing.T) {
	inner := []Instruction{Print("i")}
	outer := []Instruction{For(inner, 2)}
	p := newTestProcess(t, For(outer, 1))

	p.PushFrame(outer, 1)
	p.PushFrame(inner, 2)

	// Two inner iterations, then both frames pop and the process ends.
	if done := p.Advance(); done {
		t.Fatal("first inner iteration reported done")
	}
	if done := p.Advance(); !done {
		t.Fatal("loop completion did not finish a single-instruction process")
	}
	if p.FrameDepth() != 0 {
		t.Fatalf("frame depth = %d, want 0", p.FrameDepth())
	}
}

func TestVarOrZeroAutoDeclares(t *testing.T) {
	p := newTestProcess(t, Print("x"))

	if v := p.VarOrZero("n"); v != 0 {
		t.Fatalf("VarOrZero(new) = %d, want 0", v)
	}
	snap := p.MemorySnapshot()
	if _, ok := snap["n"]; !ok {
		t.Fatal("VarOrZero did not declare the variable")
	}

	p.SetVar("n", 7)
	if v := p.VarOrZero("n"); v != 7 {
		t.Fatalf("VarOrZero(existing) = %d, want 7", v)
	}
}

func TestSleepArming(t *testing.T) {
	p := newTestProcess(t, Sleep(5))
	if err := p.SetStatus(StatusRunning); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	if err := p.Sleep(42); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if !p.SleepArmed() {
		t.Fatal("Sleep did not arm")
	}
	if p.Status() != StatusSleeping {
		t.Fatalf("status = %s, want SLEEPING", p.Status())
	}
	if p.WakeTick() != 42 {
		t.Fatalf("wake tick = %d, want 42", p.WakeTick())
	}

	p.CompleteSleep()
	if p.SleepArmed() {
		t.Fatal("CompleteSleep left the sleep armed")
	}
}

func TestReleaseClearsCoreAndStatusTogether(t *testing.T) {
	p := newTestProcess(t, Print("x"))
	p.SetCore(3)
	if err := p.SetStatus(StatusRunning); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	if err := p.Release(StatusReady); err != nil {
		t.Fatalf("Release: %v", err)
	}

	in := p.Info()
	if in.Core != -1 || in.Status != StatusReady {
		t.Fatalf("after Release: core=%d status=%s, want -1/READY", in.Core, in.Status)
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	p := newTestProcess(t, Print("x"))

	// READY may not sleep: only a dispatched process can.
	err := p.Sleep(10)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("Sleep from READY = %v, want *InvalidTransitionError", err)
	}
	if invalid.From != StatusReady || invalid.To != StatusSleeping {
		t.Fatalf("transition recorded as %s -> %s", invalid.From, invalid.To)
	}
	if p.Status() != StatusReady {
		t.Fatalf("status = %s after rejected transition, want READY", p.Status())
	}
	if p.SleepArmed() {
		t.Fatal("rejected Sleep still armed")
	}

	// Terminal is terminal: FINISHED never goes back to RUNNING.
	p.Fault("boom")
	if err := p.SetStatus(StatusRunning); err == nil {
		t.Fatal("SetStatus out of FINISHED did not fail")
	}
}

func TestSetStatusSameStatusIsNoOp(t *testing.T) {
	p := newTestProcess(t, Print("x"))
	if err := p.SetStatus(StatusReady); err != nil {
		t.Fatalf("self transition = %v, want nil", err)
	}
}

func TestFaultIsTerminal(t *testing.T) {
	p := newTestProcess(t, Print("x"))
	p.Fault("bad literal")

	if !p.Errored() {
		t.Fatal("error flag not set")
	}
	if p.Status() != StatusFinished {
		t.Fatalf("status = %s, want FINISHED", p.Status())
	}

	fault := p.FaultErr()
	if fault == nil {
		t.Fatal("FaultErr = nil")
	}
	if fault.Reason != "bad literal" || fault.Process != "p1" || fault.IP != 0 {
		t.Fatalf("fault = %+v", fault)
	}
	if !strings.Contains(p.FaultMessage(), "bad literal") {
		t.Fatalf("fault message = %q", p.FaultMessage())
	}
}
