package dualheap

import (
	"go.uber.org/zap"
)

// slot is a single heap cell: a cell (Local or Shared) plus a mark bit and
// the generation counter that Address equality checks against.
type slot struct {
	cell       objectCell
	mark       bool
	generation uint64
	live       bool
}

// Heap owns a set of slots, allocates new ones under a soft capacity bound,
// and reclaims unreachable slots via mark-and-sweep from a declared entry
// address. A Heap is owned by exactly one goroutine at a time (spec.md §5);
// nothing in this type is safe for concurrent use by multiple goroutines.
type Heap struct {
	slots    []slot
	free     []int
	maxSlots int
	hasEntry bool
	entry    Address

	log *zap.Logger
}

// NewHeap creates a Heap with a soft maximum of maxSlots live objects. A nil
// logger disables structured GC-cycle logging.
func NewHeap(maxSlots int, log *zap.Logger) *Heap {
	if log == nil {
		log = zap.NewNop()
	}
	return &Heap{
		maxSlots: maxSlots,
		log:      log,
	}
}

func (h *Heap) liveCount() int {
	return len(h.slots) - len(h.free)
}

// Size returns the number of live slots.
func (h *Heap) Size() int {
	return h.liveCount()
}

// insert allocates a slot for cell, running a collection and retrying once
// if the heap is at capacity (spec.md §4.1's insert policy).
func (h *Heap) insert(cell objectCell) (Address, error) {
	if h.liveCount() >= h.maxSlots {
		h.Collect()
		if h.liveCount() >= h.maxSlots {
			return invalidAddress, newError(OutOfMemory, "heap at capacity after collection")
		}
	}
	return h.allocate(cell), nil
}

func (h *Heap) allocate(cell objectCell) Address {
	if n := len(h.free); n > 0 {
		idx := h.free[n-1]
		h.free = h.free[:n-1]
		s := &h.slots[idx]
		s.cell = cell
		s.mark = false
		s.live = true
		return Address{index: idx, generation: s.generation}
	}
	idx := len(h.slots)
	h.slots = append(h.slots, slot{cell: cell, live: true})
	return Address{index: idx, generation: 0}
}

// InsertLocal allocates a slot holding payload as a Local (exclusively
// owned) cell.
func (h *Heap) InsertLocal(payload Payload) (Address, error) {
	return h.insert(newLocalCell(payload))
}

// InsertShared allocates a slot holding payload as a Shared (lock-guarded)
// cell. payload is assumed to already be in its thread-safe form (i.e. the
// result of a prior ToSync/promotion), matching spec.md's insert_shared.
func (h *Heap) InsertShared(payload Payload) (Address, error) {
	return h.insert(newSharedCell(payload))
}

// SetEntry designates addr as the GC root.
func (h *Heap) SetEntry(addr Address) error {
	if _, err := h.resolve(addr); err != nil {
		return err
	}
	h.entry = addr
	h.hasEntry = true
	return nil
}

// Entry returns the current GC root, if any.
func (h *Heap) Entry() (Address, bool) {
	return h.entry, h.hasEntry
}

func (h *Heap) resolve(addr Address) (*slot, error) {
	if addr.index < 0 || addr.index >= len(h.slots) {
		return nil, newError(InvalidAddress, "address out of range")
	}
	s := &h.slots[addr.index]
	if !s.live || s.generation != addr.generation {
		return nil, newError(InvalidAddress, "address refers to a reclaimed slot")
	}
	return s, nil
}

// GetRef returns a checked read borrow of the payload at addr.
func (h *Heap) GetRef(addr Address) (*Ref, error) {
	s, err := h.resolve(addr)
	if err != nil {
		return nil, err
	}
	return s.cell.getRef()
}

// GetMut returns a checked exclusive borrow of the payload at addr.
func (h *Heap) GetMut(addr Address) (*Mut, error) {
	s, err := h.resolve(addr)
	if err != nil {
		return nil, err
	}
	return s.cell.getMut()
}

// SyncRef returns a blocking read borrow of the payload at addr. Panics if
// the cell is Local.
func (h *Heap) SyncRef(addr Address) (*Ref, error) {
	s, err := h.resolve(addr)
	if err != nil {
		return nil, err
	}
	return s.cell.syncRef(), nil
}

// SyncMut returns a blocking exclusive borrow of the payload at addr.
// Panics if the cell is Local.
func (h *Heap) SyncMut(addr Address) (*Mut, error) {
	s, err := h.resolve(addr)
	if err != nil {
		return nil, err
	}
	return s.cell.syncMut(), nil
}

// Holdees returns the payload's holdee addresses, or nil for a Shared cell
// (spec.md §4.1 item 3).
func (h *Heap) Holdees(addr Address) ([]Address, error) {
	s, err := h.resolve(addr)
	if err != nil {
		return nil, err
	}
	return s.cell.holdees(), nil
}

// IsShared reports whether addr names a Shared cell.
func (h *Heap) IsShared(addr Address) (bool, error) {
	s, err := h.resolve(addr)
	if err != nil {
		return false, err
	}
	return s.cell.shared(), nil
}

// Promote migrates the Local cell at addr to a Shared cell in place,
// preserving its Address identity (spec.md §4.4). Promoting an already
// Shared cell is idempotent and returns the same payload handle unchanged.
func (h *Heap) Promote(addr Address) (Payload, error) {
	s, err := h.resolve(addr)
	if err != nil {
		return nil, err
	}
	shared, err := s.cell.promote(h)
	if err != nil {
		return nil, err
	}
	if !s.cell.shared() {
		s.cell = newSharedCell(shared)
	}
	return shared, nil
}

// Collect runs a mark-and-sweep cycle rooted at the entry address. If no
// entry is set, every slot is unreachable and is reclaimed (spec.md §4.1
// item 1). It returns the number of slots freed.
func (h *Heap) Collect() int {
	if len(h.slots) == 0 {
		return 0
	}
	if h.hasEntry {
		h.markFrom(h.entry)
	}
	freed := h.sweep()
	if freed > 0 || h.log.Core().Enabled(zapDebugLevel) {
		h.log.Debug("dualheap: collection complete",
			zap.Int("freed", freed),
			zap.Int("live", h.liveCount()),
			zap.Int("capacity", h.maxSlots),
		)
	}
	return freed
}

// markFrom does a breadth-first traversal from root, setting the mark bit
// of every visited slot and enumerating its holdees. The heap holds
// exclusive access to itself throughout (no re-entrancy is possible since a
// single goroutine owns the Heap).
func (h *Heap) markFrom(root Address) {
	if root.index < 0 || root.index >= len(h.slots) {
		return
	}
	queue := []int{root.index}
	h.slots[root.index].mark = true
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		s := &h.slots[idx]
		if !s.live {
			continue
		}
		for _, holdee := range s.cell.holdees() {
			if holdee.index < 0 || holdee.index >= len(h.slots) {
				continue
			}
			hs := &h.slots[holdee.index]
			if hs.live && hs.generation == holdee.generation && !hs.mark {
				hs.mark = true
				queue = append(queue, holdee.index)
			}
		}
	}
}

// sweep retains only marked slots, releasing the rest exactly once and
// clearing every retained slot's mark bit.
func (h *Heap) sweep() int {
	freed := 0
	for i := range h.slots {
		s := &h.slots[i]
		if !s.live {
			continue
		}
		if s.mark {
			s.mark = false
			continue
		}
		s.cell = nil
		s.live = false
		s.generation++
		h.free = append(h.free, i)
		freed++
	}
	return freed
}

var zapDebugLevel = zap.DebugLevel
