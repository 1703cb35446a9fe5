// Package env provides Env, a string-keyed slot table modeled on the
// teacher's Map/Object-slots pattern (map.go, slots.go), adapted to hold
// dualheap Addresses rather than interpreter objects directly.
package env

import (
	"sync"

	"github.com/zephyrtronium/dualheap"
)

// Env is an associative array from string keys to heap Addresses. It is a
// dualheap.Payload: its Holdees are its values, so anything reachable
// through an Env survives collection exactly as long as the Env does.
type Env struct {
	mu     sync.RWMutex
	values map[string]dualheap.Address
}

// New creates an empty Env.
func New() *Env {
	return &Env{values: map[string]dualheap.Address{}}
}

// Get returns the Address stored at key, if any.
func (e *Env) Get(key string) (dualheap.Address, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.values[key]
	return a, ok
}

// Set stores addr under key, replacing any previous value.
func (e *Env) Set(key string, addr dualheap.Address) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[key] = addr
}

// Delete removes key, if present.
func (e *Env) Delete(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.values, key)
}

// Keys returns the Env's keys in no particular order.
func (e *Env) Keys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	return keys
}

// Holdees reports every value Address, keeping the whole mapping alive for
// as long as the Env itself is reachable.
func (e *Env) Holdees() []dualheap.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	holdees := make([]dualheap.Address, 0, len(e.values))
	for _, a := range e.values {
		holdees = append(holdees, a)
	}
	return holdees
}

// ToSync copies the map behind a fresh mutex, matching the Shared-cell
// contract that promotion hands back an independently lockable payload
// rather than aliasing the Local original.
func (e *Env) ToSync(h *dualheap.Heap) (dualheap.Payload, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := make(map[string]dualheap.Address, len(e.values))
	for k, v := range e.values {
		cp[k] = v
	}
	return &Env{values: cp}, nil
}
