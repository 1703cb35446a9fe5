package dualheap

import "sync"

// Payload is the interface every object stored in a Heap must implement.
// Payload authors (§6 of SPEC_FULL.md) supply holdee enumeration, for GC
// reachability, and a promotion producer, for migrating to a Shared cell.
type Payload interface {
	// Holdees returns the addresses this payload transitively keeps alive
	// through its own fields. It may return nil or an empty slice.
	Holdees() []Address
	// ToSync produces a thread-safe replacement payload for promotion. If
	// the payload cannot be made safe to share, it returns ErrNotSharable.
	// h is the heap the payload currently lives in, so that a payload
	// whose own fields reference other addresses (e.g. Method's bound
	// context) can promote those in turn.
	ToSync(h *Heap) (Payload, error)
}

// As performs a checked downcast of a payload to a concrete payload type T,
// mirroring the teacher's checked Tag-based downcasts (object.go's type
// switches) without runtime type-string bookkeeping, by relying on Go's
// built-in type identity.
func As[T Payload](p Payload) (T, error) {
	t, ok := p.(T)
	if !ok {
		var zero T
		return zero, newError(TypeMismatch, "")
	}
	return t, nil
}

// Ref is a read-only borrow of a slot's payload.
type Ref struct {
	payload Payload
	release func()
	done    bool
}

// Payload returns the borrowed payload.
func (r *Ref) Payload() Payload { return r.payload }

// Release ends the borrow. It is idempotent.
func (r *Ref) Release() {
	if !r.done {
		r.done = true
		if r.release != nil {
			r.release()
		}
	}
}

// Mut is an exclusive borrow of a slot's payload.
type Mut struct {
	payload Payload
	release func()
	done    bool
}

// Payload returns the borrowed payload.
func (m *Mut) Payload() Payload { return m.payload }

// Release ends the borrow. It is idempotent.
func (m *Mut) Release() {
	if !m.done {
		m.done = true
		if m.release != nil {
			m.release()
		}
	}
}

// objectCell is the internal tagged-union realization of spec.md's
// ObjectCell: a Local cell with re-entrancy-checked exclusive ownership, or
// a Shared cell guarded by a readers-writer lock. Both variants implement
// this interface so Heap and Frame code need not switch on the tag
// themselves.
type objectCell interface {
	getRef() (*Ref, error)
	getMut() (*Mut, error)
	syncRef() *Ref
	syncMut() *Mut
	holdees() []Address
	shared() bool
	promote(h *Heap) (Payload, error)
}

// localCell is an exclusively owned payload, accessible only by the thread
// that owns the enclosing Heap (invariant 4). Borrow state is a simple
// reader-count/writer flag, since only one thread ever touches it; this is
// the re-entrancy guard spec.md §4.2 calls for, not a concurrency lock.
type localCell struct {
	payload  Payload
	readers  int
	writing  bool
}

func newLocalCell(p Payload) *localCell {
	return &localCell{payload: p}
}

func (c *localCell) getRef() (*Ref, error) {
	if c.writing {
		return nil, newError(BorrowViolated, "local cell already mutably borrowed")
	}
	c.readers++
	released := false
	return &Ref{payload: c.payload, release: func() {
		if !released {
			released = true
			c.readers--
		}
	}}, nil
}

func (c *localCell) getMut() (*Mut, error) {
	if c.writing || c.readers > 0 {
		return nil, newError(BorrowViolated, "local cell already borrowed")
	}
	c.writing = true
	released := false
	return &Mut{payload: c.payload, release: func() {
		if !released {
			released = true
			c.writing = false
		}
	}}, nil
}

func (c *localCell) syncRef() *Ref {
	panic("dualheap: sync_ref on a Local cell is a programmer error; use get_ref")
}

func (c *localCell) syncMut() *Mut {
	panic("dualheap: sync_mut on a Local cell is a programmer error; use get_mut")
}

func (c *localCell) holdees() []Address {
	return c.payload.Holdees()
}

func (c *localCell) shared() bool { return false }

// promote replaces this cell's role by producing a Shared-safe payload via
// ToSync. The caller (Heap) is responsible for swapping the slot's cell to a
// sharedCell built from the result; promote itself does not mutate c.
func (c *localCell) promote(h *Heap) (Payload, error) {
	if c.writing || c.readers > 0 {
		return nil, newError(BorrowViolated, "cannot promote a borrowed local cell")
	}
	shared, err := c.payload.ToSync(h)
	if err != nil {
		return nil, newError(NotSharable, err.Error())
	}
	return shared, nil
}

// sharedCell is a payload shared across threads under a readers-writer
// lock. A second promotion of a Shared cell is a no-op that returns the same
// payload handle (idempotence, invariant 5).
type sharedCell struct {
	mu      sync.RWMutex
	payload Payload

	// writerSet and writerGID record the goroutine id currently holding
	// the write lock via getMut or syncMut, used solely to let getRef/getMut on the same
	// goroutine fail fast with BorrowViolated instead of deadlocking.
	mark      sync.Mutex
	writerSet bool
	writerGID uint64
}

func newSharedCell(p Payload) *sharedCell {
	return &sharedCell{payload: p}
}

func (c *sharedCell) selfHeld(gid uint64) bool {
	c.mark.Lock()
	defer c.mark.Unlock()
	return c.writerSet && c.writerGID == gid
}

func (c *sharedCell) setWriter(gid uint64, set bool) {
	c.mark.Lock()
	defer c.mark.Unlock()
	c.writerSet = set
	c.writerGID = gid
}

func (c *sharedCell) getRef() (*Ref, error) {
	gid := goroutineID()
	if c.selfHeld(gid) {
		return nil, newError(BorrowViolated, "shared cell already write-locked by this thread")
	}
	c.mu.RLock()
	released := false
	return &Ref{payload: c.payload, release: func() {
		if !released {
			released = true
			c.mu.RUnlock()
		}
	}}, nil
}

func (c *sharedCell) getMut() (*Mut, error) {
	gid := goroutineID()
	if c.selfHeld(gid) {
		return nil, newError(BorrowViolated, "shared cell already write-locked by this thread")
	}
	c.mu.Lock()
	c.setWriter(gid, true)
	released := false
	return &Mut{payload: c.payload, release: func() {
		if !released {
			released = true
			c.setWriter(gid, false)
			c.mu.Unlock()
		}
	}}, nil
}

func (c *sharedCell) syncRef() *Ref {
	c.mu.RLock()
	released := false
	return &Ref{payload: c.payload, release: func() {
		if !released {
			released = true
			c.mu.RUnlock()
		}
	}}
}

func (c *sharedCell) syncMut() *Mut {
	gid := goroutineID()
	c.mu.Lock()
	c.setWriter(gid, true)
	released := false
	return &Mut{payload: c.payload, release: func() {
		if !released {
			released = true
			c.setWriter(gid, false)
			c.mu.Unlock()
		}
	}}
}

// holdees reports nothing: Shared payloads are inter-heap handles whose
// liveness is managed through clones, not through this heap's reachability
// (spec.md §4.1 item 3).
func (c *sharedCell) holdees() []Address { return nil }

func (c *sharedCell) shared() bool { return true }

func (c *sharedCell) promote(h *Heap) (Payload, error) {
	return c.payload, nil
}
