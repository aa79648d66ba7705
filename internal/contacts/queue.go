package contacts

import (
	"context"
	"sync"
)

// operation is one queued store call.
type operation struct {
	name string
	id   string

	// run executes the operation on the Run goroutine and completes its request.
	run func(ctx context.Context)

	// abort completes the request with err without running it.
	abort func(err error)
}

// opQueue is a thread-safe FIFO queue of operations.
//
// The queue is unbounded so callers never block when submitting.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type opQueue struct {
	mu     sync.Mutex
	ops    []operation
	closed bool
	signal chan struct{} // Signals availability (buffered, size 1)
}

// newOpQueue creates an empty queue.
func newOpQueue() *opQueue {
	return &opQueue{
		ops:    make([]operation, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an operation to the back of the queue.
// Returns false if the queue is closed.
func (q *opQueue) Enqueue(op operation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.ops = append(q.ops, op)

	// Non-blocking - buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (operation{}, false) if queue is empty.
func (q *opQueue) TryDequeue() (operation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ops) == 0 {
		return operation{}, false
	}

	op := q.ops[0]

	// Nil out the slot so the closures can be collected.
	q.ops[0] = operation{}

	if len(q.ops) == 1 {
		q.ops = q.ops[:0]
	} else {
		q.ops = q.ops[1:]
	}

	return op, true
}

// Wait returns a channel that signals when operations may be available.
// The channel is closed once the queue is closed.
func (q *opQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *opQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Closed reports whether Close has been called.
func (q *opQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more operations will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *opQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Drain closes the queue and returns everything still in it.
func (q *opQueue) Drain() []operation {
	q.Close()

	q.mu.Lock()
	defer q.mu.Unlock()
	ops := q.ops
	q.ops = nil
	return ops
}
