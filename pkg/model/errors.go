package model

import (
	"errors"
	"fmt"
)

// ErrDuplicateName is returned by the registry when a process with the
// same name is already registered. The registry is left unchanged.
var ErrDuplicateName = errors.New("duplicate process name")

// ErrQueueShutdown is returned by a blocking queue pop once the
// scheduler has finished and the queue has drained.
var ErrQueueShutdown = errors.New("ready queue shut down")

// InvalidTransitionError is returned by the Process transition methods
// (SetStatus, Release, Sleep) when a status change violates
// ValidTransitions.
type InvalidTransitionError struct {
	Name string
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition for %s: %s -> %s", e.Name, e.From, e.To)
}

// FaultError records an interpreter fault, constructed by
// Process.Fault. A faulted process is terminal: it is marked FINISHED
// with its error flag set and is never requeued.
type FaultError struct {
	Process string
	IP      int
	Reason  string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("process %s faulted at instruction %d: %s", e.Process, e.IP, e.Reason)
}
