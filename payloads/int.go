// Package payloads provides small illustrative Payload implementations used
// to exercise the Heap/Runtime/thread machinery in tests: a numeric leaf, a
// slot record, and a bounded MPMC queue. None of these are part of the core
// contract; they stand in for the domain objects a real embedder would
// supply.
package payloads

import "github.com/zephyrtronium/dualheap"

// Int is an immutable numeric leaf, modeled on the teacher's Number
// (number.go): a value type with no holdees of its own.
type Int struct {
	Value int64
}

// NewInt wraps value as an Int payload.
func NewInt(value int64) *Int {
	return &Int{Value: value}
}

// Holdees is always empty: an Int holds no other addresses.
func (i *Int) Holdees() []dualheap.Address { return nil }

// ToSync returns a copy of i, since Int carries no internal mutable state
// that needs a fresh lock.
func (i *Int) ToSync(h *dualheap.Heap) (dualheap.Payload, error) {
	return &Int{Value: i.Value}, nil
}
