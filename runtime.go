package dualheap

import (
	"go.uber.org/zap"
)

// Runtime composes a Heap and a stack of Frame addresses into a coherent
// evaluation context, exposing method invocation as the sole transfer of
// control (spec.md §4.5).
type Runtime struct {
	Heap   *Heap
	frames []Address
	log    *zap.Logger
}

// Boot allocates the initial Frame (no parent) for heap, sets it as the
// heap's entry, pushes it onto the frame stack, and returns a Runtime handle
// through which every frame service is thereafter accessed (spec.md §4.5
// "Boot").
func Boot(heap *Heap, initialContext Address, log *zap.Logger) (*Runtime, error) {
	if log == nil {
		log = zap.NewNop()
	}
	f := newFrame(initialContext, nil)
	addr, err := heap.InsertLocal(f)
	if err != nil {
		return nil, err
	}
	if err := heap.SetEntry(addr); err != nil {
		return nil, err
	}
	return &Runtime{Heap: heap, frames: []Address{addr}, log: log}, nil
}

// Memory returns direct heap access, for inserting new objects.
func (rt *Runtime) Memory() *Heap {
	return rt.Heap
}

func (rt *Runtime) top() Address {
	return rt.frames[len(rt.frames)-1]
}

func (rt *Runtime) withTop(fn func(f *Frame) error) error {
	mut, err := rt.Heap.GetMut(rt.top())
	if err != nil {
		return err
	}
	defer mut.Release()
	f, err := As[*Frame](mut.Payload())
	if err != nil {
		return err
	}
	return fn(f)
}

// Context returns the current frame's implicit receiver.
func (rt *Runtime) Context() (Address, error) {
	var ctx Address
	err := rt.withTop(func(f *Frame) error {
		ctx = f.Context
		return nil
	})
	return ctx, err
}

// Push appends addr to the current frame's operand stack.
func (rt *Runtime) Push(addr Address) error {
	return rt.withTop(func(f *Frame) error {
		f.push(addr)
		return nil
	})
}

// Pop removes and returns the top of the current frame's operand stack.
func (rt *Runtime) Pop() (Address, error) {
	var addr Address
	err := rt.withTop(func(f *Frame) error {
		var e error
		addr, e = f.pop()
		return e
	})
	return addr, err
}

// Get returns the i-th address from the top of the current frame's operand
// stack, 1-based.
func (rt *Runtime) Get(i int) (Address, error) {
	var addr Address
	err := rt.withTop(func(f *Frame) error {
		var e error
		addr, e = f.get(i)
		return e
	})
	return addr, err
}

// Len returns the current frame's operand stack length.
func (rt *Runtime) Len() (int, error) {
	var n int
	err := rt.withTop(func(f *Frame) error {
		n = len(f.Stack)
		return nil
	})
	return n, err
}

// PushParent copies the i-th top address of the current frame to the
// parent frame's operand stack; it is the sole return-value mechanism
// (spec.md §4.3).
func (rt *Runtime) PushParent(i int) error {
	var (
		srcAddr    Address
		parentAddr Address
	)
	err := rt.withTop(func(f *Frame) error {
		if f.Parent == nil {
			return newError(NoParentFrame, "current frame has no parent")
		}
		a, e := f.get(i)
		if e != nil {
			return e
		}
		srcAddr = a
		parentAddr = *f.Parent
		return nil
	})
	if err != nil {
		return err
	}
	mut, err := rt.Heap.GetMut(parentAddr)
	if err != nil {
		return err
	}
	defer mut.Release()
	pf, err := As[*Frame](mut.Payload())
	if err != nil {
		return err
	}
	pf.push(srcAddr)
	return nil
}

// Call invokes the method at methodAddr, which may be a Local Method or a
// Shared SyncMethod, passing it the addresses named by argIndices read from
// the current frame's operand stack. It returns the number of values the
// callee returned to the caller via PushParent (spec.md §4.5).
func (rt *Runtime) Call(methodAddr Address, argIndices []int) (int, error) {
	ref, err := rt.Heap.GetRef(methodAddr)
	if err != nil {
		return 0, err
	}
	payload := ref.Payload()
	ref.Release()

	var (
		fn      NativeFunc
		ctxAddr Address
	)
	switch p := payload.(type) {
	case *Method:
		fn = p.Fn
		ctxAddr = p.Context
	case *SyncMethod:
		fn = p.Fn
		a, err := rt.Heap.InsertShared(p.Context)
		if err != nil {
			return 0, err
		}
		ctxAddr = a
	default:
		return 0, newError(NotCallable, "address does not name a Method or SyncMethod")
	}

	callerAddr := rt.top()
	args := make([]Address, len(argIndices))
	var l0 int
	err = rt.withTop(func(f *Frame) error {
		l0 = len(f.Stack)
		for i, idx := range argIndices {
			a, e := f.get(idx)
			if e != nil {
				return e
			}
			args[i] = a
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	callee := newFrame(ctxAddr, &callerAddr)
	callee.Stack = args
	frameAddr, err := rt.Heap.InsertLocal(callee)
	if err != nil {
		return 0, err
	}
	rt.frames = append(rt.frames, frameAddr)
	if err := rt.Heap.SetEntry(frameAddr); err != nil {
		return 0, err
	}

	rt.log.Debug("dualheap: call",
		zap.Stringer("method", methodAddr),
		zap.Stringer("frame", frameAddr),
		zap.Int("args", len(args)),
	)

	callErr := fn(rt)

	rt.frames = rt.frames[:len(rt.frames)-1]
	newTop := rt.frames[len(rt.frames)-1]
	if err := rt.Heap.SetEntry(newTop); err != nil && callErr == nil {
		callErr = err
	}

	if callErr != nil {
		return 0, callErr
	}

	n, err := rt.Len()
	if err != nil {
		return 0, err
	}
	return n - l0, nil
}
