package dualheap

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID extracts the calling goroutine's numeric id from its stack
// trace header ("goroutine 123 [running]: ..."). It is used only to detect
// same-thread lock re-entrancy on a Shared cell (so that get_ref/get_mut can
// fail fast with BorrowViolated instead of the caller deadlocking itself);
// it carries no other semantics and is never exposed in the public API.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return 0
	}
	b = b[len(prefix):]
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
