// Package interp executes one instruction of a process at a time.
//
// The interpreter never blocks: SLEEP is expressed as a yield outcome
// and the worker decides when the process runs again. All arithmetic is
// 16-bit saturating.
package interp

import (
	"fmt"
	"time"

	"github.com/me/coresim/pkg/model"
)

// Outcome tells the worker what to do with the process after a step.
type Outcome string

const (
	// OutcomeAdvanced means the process is ready for another step.
	OutcomeAdvanced Outcome = "ADVANCED"
	// OutcomeSleep means the process armed a SLEEP and must be requeued
	// (RR) or held (FCFS) until its wake tick.
	OutcomeSleep Outcome = "YIELD_SLEEP"
	// OutcomeDone means the process ran its last instruction.
	OutcomeDone Outcome = "YIELD_DONE"
	// OutcomeFault means the process hit a malformed instruction. It is
	// FINISHED with its error flag set and must not be requeued.
	OutcomeFault Outcome = "FAULT"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// logStamp is the layout of the timestamp prefixing every log line.
const logStamp = "01/02/2006 03:04:05 PM"

// Clamp16 saturates v to the unsigned 16-bit range.
func Clamp16(v int64) uint16 {
	if v < 0 {
		return 0
	}
	if v > 65535 {
		return 65535
	}
	return uint16(v)
}

// Step executes exactly one instruction of p. now is the current CPU
// tick, used to arm SLEEP deadlines.
//
// Preconditions: the worker has dispatched p (status RUNNING, or
// SLEEPING with an expired deadline) and p has an instruction left.
func Step(p *model.Process, now uint64) Outcome {
	// A process re-dispatched after its sleep deadline completes the
	// armed SLEEP: the instruction pointer finally moves past it.
	if p.SleepArmed() {
		p.CompleteSleep()
		if err := p.SetStatus(model.StatusRunning); err != nil {
			return fault(p, err.Error())
		}
		return advance(p)
	}

	in, ok := p.ActiveInstruction()
	if !ok {
		if err := p.SetStatus(model.StatusFinished); err != nil {
			return fault(p, err.Error())
		}
		return OutcomeDone
	}

	// Descend into FOR bodies until a runnable instruction is reached.
	// Each push records one frame; nesting depth is bounded by the
	// generator, not checked here.
	for in.Op == model.OpFor {
		if in.Repeat < 1 {
			return fault(p, fmt.Sprintf("FOR with repeat %d", in.Repeat))
		}
		if len(in.Body) == 0 {
			return advance(p)
		}
		p.PushFrame(in.Body, in.Repeat)
		in, _ = p.ActiveInstruction()
	}

	switch in.Op {
	case model.OpPrint:
		line := fmt.Sprintf("(%s) Core:%d %q", time.Now().Format(logStamp), p.Core(), in.Text)
		if err := p.AppendLog(line); err != nil {
			return fault(p, fmt.Sprintf("log write: %v", err))
		}

	case model.OpDeclare:
		if in.Dest == "" {
			return fault(p, "DECLARE without a variable name")
		}
		p.SetVar(in.Dest, Clamp16(in.Value))

	case model.OpAdd, model.OpSubtract:
		if in.Dest == "" {
			return fault(p, fmt.Sprintf("%s without a destination", in.Op))
		}
		s1 := resolve(p, in.Src1)
		s2 := resolve(p, in.Src2)
		var result int64
		if in.Op == model.OpAdd {
			result = s1 + s2
		} else {
			result = s1 - s2
		}
		p.SetVar(in.Dest, Clamp16(result))

	case model.OpSleep:
		if err := p.Sleep(now + in.Ticks); err != nil {
			return fault(p, err.Error())
		}
		return OutcomeSleep

	default:
		return fault(p, fmt.Sprintf("unknown opcode %q", in.Op))
	}

	return advance(p)
}

// resolve evaluates an ADD/SUBTRACT source: a literal is its value, a
// variable reads the process memory, auto-declaring absent names as 0.
func resolve(p *model.Process, op model.Operand) int64 {
	if op.Literal {
		return op.Value
	}
	return int64(p.VarOrZero(op.Var))
}

// advance moves the execution cursor and reports completion.
func advance(p *model.Process) Outcome {
	if p.Advance() {
		if err := p.SetStatus(model.StatusFinished); err != nil {
			return fault(p, err.Error())
		}
		return OutcomeDone
	}
	return OutcomeAdvanced
}

// fault records the interpreter fault on the process and its log.
func fault(p *model.Process, reason string) Outcome {
	line := fmt.Sprintf("(%s) Core:%d fault: %s", time.Now().Format(logStamp), p.Core(), reason)
	_ = p.AppendLog(line)
	p.Fault(reason)
	return OutcomeFault
}
