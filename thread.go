package dualheap

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// workerHeapCapacity is the fixed capacity of a spawned worker's heap. It is
// not exposed as a parameter (spec.md §9 open question: "the reference
// implementation uses 1024 and the caller cannot override it without
// extending the API").
const workerHeapCapacity = 1024

// Join is a single-use payload representing a pending worker result.
// Invoking the method produced alongside it (via make_join) blocks until
// the worker finishes and delivers the results to the caller's parent frame.
// A second invocation fails with JoinConsumed.
type Join struct {
	mu       sync.Mutex
	done     chan struct{}
	results  []Payload
	err      error
	consumed bool
}

func newJoin() *Join {
	return &Join{done: make(chan struct{})}
}

func (j *Join) finish(results []Payload, err error) {
	j.results = results
	j.err = err
	close(j.done)
}

// await blocks until the worker completes, then returns its results. A
// second call returns JoinConsumed instead of waiting again.
func (j *Join) await() ([]Payload, error) {
	j.mu.Lock()
	if j.consumed {
		j.mu.Unlock()
		return nil, newError(JoinConsumed, "join already consumed")
	}
	j.consumed = true
	j.mu.Unlock()
	<-j.done
	return j.results, j.err
}

// Holdees reports nothing: Join holds raw (not-yet-inserted) Payload values
// until they're delivered, not heap addresses.
func (j *Join) Holdees() []Address { return nil }

// ToSync refuses promotion: a Join is inherently single-thread, single-use.
func (j *Join) ToSync(h *Heap) (Payload, error) {
	return nil, newError(NotSharable, "a Join is single-use and thread-local")
}

// MakeThread produces a Method whose context is methodAddr and whose
// function, when invoked with the caller's operand stack carrying the
// intended arguments, spawns a worker thread running the bound method on a
// fresh heap and returns a join-method address via push_parent (spec.md
// §4.6).
func MakeThread(methodAddr Address) *Method {
	return NewMethod(threadSpawnFn, methodAddr)
}

func threadSpawnFn(rt *Runtime) error {
	boundAddr, err := rt.Context()
	if err != nil {
		return err
	}
	sharedMethod, err := rt.Heap.Promote(boundAddr)
	if err != nil {
		return err
	}

	n, err := rt.Len()
	if err != nil {
		return err
	}
	// Consume arguments via pop (which yields them top-first, i.e. in
	// reverse), collecting into args by descending index so the eventual
	// order matches what the caller pushed (spec.md §4.6 step 2).
	args := make([]Payload, n)
	for i := n - 1; i >= 0; i-- {
		addr, err := rt.Pop()
		if err != nil {
			return err
		}
		p, err := rt.Heap.Promote(addr)
		if err != nil {
			return err
		}
		args[i] = p
	}

	workerID := uuid.New()
	rt.log.Info("dualheap: spawning worker thread", zap.String("worker_id", workerID.String()), zap.Int("args", n))
	join := spawnWorker(sharedMethod, args, rt.log, workerID)

	joinAddr, err := rt.Heap.InsertLocal(join)
	if err != nil {
		return err
	}
	joinMethod := NewMethod(makeJoinFn(join), joinAddr)
	joinMethodAddr, err := rt.Heap.InsertLocal(joinMethod)
	if err != nil {
		return err
	}
	if err := rt.Push(joinMethodAddr); err != nil {
		return err
	}
	return rt.PushParent(1)
}

// makeJoinFn builds the make_join method body bound to a particular Join:
// it awaits the worker, then re-inserts each result into the invoking
// heap and bubbles it to the caller's parent frame, in the order the
// worker pushed the results (spec.md §4.6's ordering contract).
func makeJoinFn(join *Join) NativeFunc {
	return func(rt *Runtime) error {
		results, err := join.await()
		if err != nil {
			return err
		}
		for _, p := range results {
			addr, err := rt.Heap.InsertShared(p)
			if err != nil {
				return err
			}
			if err := rt.Push(addr); err != nil {
				return err
			}
			if err := rt.PushParent(1); err != nil {
				return err
			}
		}
		return nil
	}
}

// spawnWorker runs method against args on a fresh OS-scheduled goroutine
// with its own Heap and Runtime, returning a Join that resolves once it
// completes. A panic inside the worker is recovered and surfaced as an
// error through the Join, per spec.md §7.
func spawnWorker(method Payload, args []Payload, log *zap.Logger, workerID uuid.UUID) *Join {
	join := newJoin()
	go func() {
		var eg errgroup.Group
		var results []Payload
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("dualheap: worker panic: %v", r)
				}
			}()
			results, err = runWorker(method, args, log)
			return err
		})
		err := eg.Wait()
		if err != nil {
			log.Warn("dualheap: worker finished with error", zap.String("worker_id", workerID.String()), zap.Error(err))
		} else {
			log.Info("dualheap: worker finished", zap.String("worker_id", workerID.String()), zap.Int("results", len(results)))
		}
		join.finish(results, err)
	}()
	return join
}

// runWorker performs spec.md §4.6 step 3's (a)-(e): a fresh heap, the
// shared method and argument slots, a booted Runtime, the call itself, and
// promotion of the values the method returned to the worker's frame via
// PushParent to Shared results. The arguments pushed onto that frame before
// the call are not part of the results.
func runWorker(method Payload, args []Payload, log *zap.Logger) ([]Payload, error) {
	heap := NewHeap(workerHeapCapacity, log)

	methodAddr, err := heap.InsertShared(method)
	if err != nil {
		return nil, err
	}
	argAddrs := make([]Address, len(args))
	for i, p := range args {
		a, err := heap.InsertShared(p)
		if err != nil {
			return nil, err
		}
		argAddrs[i] = a
	}

	rt, err := Boot(heap, methodAddr, log)
	if err != nil {
		return nil, err
	}
	for _, a := range argAddrs {
		if err := rt.Push(a); err != nil {
			return nil, err
		}
	}

	// [1, ..., n], matching spec.md §4.6 step 3.d and the non-thread call
	// convention (Runtime.Call reads arg_indices 1-based from the top of
	// the caller's operand stack exactly as any other call site does).
	n := len(argAddrs)
	argIndices := make([]int, n)
	for i := 0; i < n; i++ {
		argIndices[i] = i + 1
	}
	retN, err := rt.Call(methodAddr, argIndices)
	if err != nil {
		return nil, err
	}
	results := make([]Payload, retN)
	for i := retN - 1; i >= 0; i-- {
		addr, err := rt.Pop()
		if err != nil {
			return nil, err
		}
		p, err := rt.Heap.Promote(addr)
		if err != nil {
			return nil, err
		}
		results[i] = p
	}
	return results, nil
}
