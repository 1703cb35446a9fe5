package dualheap

import "fmt"

// Address is an opaque handle identifying a slot in a Heap. Two addresses
// compare equal iff they denote the same slot. An Address remains valid for
// the lifetime of the slot it names; once that slot is reclaimed by a
// collection, the Address becomes stale and any further use of it fails with
// InvalidAddress rather than aliasing whatever object later occupies the same
// underlying storage.
//
// This is realized by tagging each slot's storage with a generation counter
// that increments every time the slot is reclaimed and reused. Address
// equality compares both the index and the generation it was issued against.
type Address struct {
	index      int
	generation uint64
}

// String renders the address for debugging and log output.
func (a Address) String() string {
	return fmt.Sprintf("&%d.%d", a.index, a.generation)
}

// invalidAddress never names a live slot (its index is negative, which no
// Heap ever issues). It is not the Address zero value: the zero Address,
// {0, 0}, is an ordinary (if likely stale) slot-0 handle.
var invalidAddress = Address{index: -1}

// IsValid reports whether a has ever been issued by a Heap. It does not
// guarantee the slot is still live; use a Heap method to check that.
func (a Address) IsValid() bool {
	return a.index >= 0
}
