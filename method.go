package dualheap

// NativeFunc is the function identifier a Method carries (spec.md §3: "a
// plain function identifier"). Following the teacher's CFunction
// (cfunction.go), this is realized directly as a Go function value rather
// than a serializable key, since Go function values are already safe to
// invoke from any goroutine without marshalling.
type NativeFunc func(rt *Runtime) error

// Method is a Local payload combining a function identifier with a bound
// context Address (spec.md §3).
type Method struct {
	Fn      NativeFunc
	Context Address
}

// NewMethod creates a Method bound to context.
func NewMethod(fn NativeFunc, context Address) *Method {
	return &Method{Fn: fn, Context: context}
}

// Holdees reports the bound context as the sole holdee.
func (m *Method) Holdees() []Address {
	return []Address{m.Context}
}

// ToSync produces a SyncMethod with the same function identifier and a
// promoted form of the bound context. Promoting the context through h
// preserves the context's own Address identity in h (invariant 5) while
// handing the SyncMethod a portable payload handle that a destination heap
// can re-insert as a Shared slot (spec.md §4.5 step 2, §4.6 step 1).
func (m *Method) ToSync(h *Heap) (Payload, error) {
	ctx, err := h.Promote(m.Context)
	if err != nil {
		return nil, err
	}
	return &SyncMethod{Fn: m.Fn, Context: ctx}, nil
}

// SyncMethod is the Shared counterpart of Method, produced by promotion.
// Its Context is the already-promoted context payload handle, re-inserted
// as a Shared slot into whichever heap invokes the method (spec.md §4.5
// step 2).
type SyncMethod struct {
	Fn      NativeFunc
	Context Payload
}

// Holdees returns nil: Shared payloads are opaque leaves to the local GC
// (spec.md §4.1 item 3).
func (m *SyncMethod) Holdees() []Address { return nil }

// ToSync is idempotent: promoting an already-Shared payload returns itself
// unchanged (invariant 5).
func (m *SyncMethod) ToSync(h *Heap) (Payload, error) {
	return m, nil
}
