package sched

import (
	"sync"

	"github.com/me/coresim/pkg/model"
)

// ReadyQueue is the FIFO of runnable process handles. Push order equals
// pop order; there is no priority. Pop blocks on a condition variable
// until a handle arrives or the queue is shut down and drained.
type ReadyQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []*model.Process
	shutdown bool
}

// NewReadyQueue returns an empty queue.
func NewReadyQueue() *ReadyQueue {
	q := &ReadyQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends a handle and wakes one waiter.
func (q *ReadyQueue) Push(p *model.Process) {
	q.mu.Lock()
	q.items = append(q.items, p)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop blocks until the queue is non-empty or shut down. After shutdown
// remaining items are still drained in order; only an empty, shut-down
// queue returns ErrQueueShutdown.
func (q *ReadyQueue) Pop() (*model.Process, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.shutdown {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, model.ErrQueueShutdown
	}
	p := q.items[0]
	q.items = q.items[1:]
	return p, nil
}

// Shutdown marks the queue finished and wakes every waiter.
func (q *ReadyQueue) Shutdown() {
	q.mu.Lock()
	q.shutdown = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Len returns the number of queued handles.
func (q *ReadyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
