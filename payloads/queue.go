package payloads

import (
	"sync"

	"github.com/zephyrtronium/dualheap"
)

// Queue is a bounded MPMC queue of int64 values, grounded on
// original_source/examples/mpmc-shattuck.rs's Queue. That original blocks a
// producer/consumer by registering a crossbeam Parker/Unparker pair and
// retrying; here the same bounded-blocking behavior is expressed with a
// sync.Cond, which is the idiomatic Go equivalent of "block until some other
// goroutine changes the condition and wakes me."
//
// Queue manages its own interior synchronization and is meant to live only
// as a Shared payload: once promoted, its pointer identity is handed to
// every worker that holds its Address, and PushBack/PopFront may be called
// concurrently from any of them without going through the heap's own
// borrow-checked accessors.
type Queue struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	items    []int64
	capacity int
	closed   bool
}

// NewQueue creates a Queue that holds at most capacity items.
func NewQueue(capacity int) *Queue {
	q := &Queue{capacity: capacity}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// PushBack blocks until there is room, then appends v. Once the queue is
// closed it no longer waits: v is appended even if that exceeds capacity.
func (q *Queue) PushBack(v int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == q.capacity && !q.closed {
		q.notFull.Wait()
	}
	q.items = append(q.items, v)
	q.notEmpty.Signal()
}

// PopFront blocks until an item is available or the queue is closed, in
// which case ok is false.
func (q *Queue) PopFront() (v int64, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if len(q.items) == 0 {
		return 0, false
	}
	v = q.items[0]
	q.items = q.items[1:]
	q.notFull.Signal()
	return v, true
}

// Close wakes every blocked PushBack/PopFront so waiting workers can notice
// there will be no more work and exit.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

// Holdees is always empty: a Queue holds raw integers, not heap addresses.
func (q *Queue) Holdees() []dualheap.Address { return nil }

// ToSync is idempotent: a Queue is already safe for concurrent use through
// its own mutex, so promotion just hands back the same pointer.
func (q *Queue) ToSync(h *dualheap.Heap) (dualheap.Payload, error) {
	return q, nil
}
