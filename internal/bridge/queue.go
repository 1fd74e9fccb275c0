package bridge

import (
	"context"
	"sync"
)

// Work is a unit of host work. ctx is the owner's context, not the caller's:
// a caller that gives up does not cancel work already queued.
type Work func(ctx context.Context) (any, error)

type outcome struct {
	value any
	err   error
}

// unit is one queued piece of work plus its completion channel.
type unit struct {
	seq  int64
	name string
	fn   Work
	done chan outcome // buffered, size 1: the owner never blocks on delivery
}

// workQueue is a thread-safe FIFO of units.
//
// The queue is unbounded: enqueue never blocks a network goroutine.
// A buffered signal channel of size 1 lets the owner wait with select
// alongside ctx.Done().
type workQueue struct {
	mu     sync.Mutex
	units  []*unit
	closed bool
	signal chan struct{}
}

func newWorkQueue() *workQueue {
	return &workQueue{
		units:  make([]*unit, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue stamps u with the next seq and appends it.
// Returns false if the queue is closed.
func (q *workQueue) Enqueue(u *unit, clock *Clock) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	u.seq = clock.Next()
	q.units = append(q.units, u)

	// Non-blocking: a pending signal already covers this unit.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front unit without blocking.
func (q *workQueue) TryDequeue() (*unit, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.units) == 0 {
		return nil, false
	}

	u := q.units[0]
	q.units[0] = nil
	if len(q.units) == 1 {
		q.units = q.units[:0]
	} else {
		q.units = q.units[1:]
	}
	return u, true
}

// Wait returns a channel that fires when units may be available.
// It is closed by Close.
func (q *workQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued units.
func (q *workQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.units)
}

// Drained reports whether the queue is closed and empty.
func (q *workQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.units) == 0
}

// Close stops accepting units and wakes the owner.
func (q *workQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
