package dualheap

import "errors"

// Code identifies one member of the core error taxonomy (spec §4.7). The
// errors this package's heap, frame and runtime operations raise are
// *RuntimeError values carrying one of these, so callers can use errors.Is
// against the sentinels below. Runtime.Call returns an error from a method
// body unchanged, and a recovered worker panic reaches its join as a plain
// error.
type Code int

const (
	// TypeMismatch is returned by a checked downcast that names the wrong
	// concrete payload type.
	TypeMismatch Code = iota
	// NotCallable is returned when Runtime.Call is asked to invoke an
	// object that is neither a Method nor a SyncMethod.
	NotCallable
	// NotSharable is returned when a payload's ToSync refuses promotion.
	NotSharable
	// ExpectLocal is returned when an operation requires a Local cell but
	// found a Shared one.
	ExpectLocal
	// ExpectShared is returned when an operation requires a Shared cell
	// but found a Local one.
	ExpectShared
	// InvalidAddress is returned when an Address does not name a live
	// slot in the Heap it's presented to.
	InvalidAddress
	// OutOfMemory is returned when an insertion fails because a
	// collect-and-retry could not free a slot.
	OutOfMemory
	// BorrowViolated is returned when a checked borrow overlaps an
	// outstanding borrow within the same thread.
	BorrowViolated
	// ExhaustedFrame is returned when a frame-stack index is out of
	// range.
	ExhaustedFrame
	// NoParentFrame is returned when push_parent is invoked on a frame
	// with no parent.
	NoParentFrame
	// JoinConsumed is returned by a second invocation of the same Join.
	JoinConsumed
)

func (c Code) String() string {
	switch c {
	case TypeMismatch:
		return "TypeMismatch"
	case NotCallable:
		return "NotCallable"
	case NotSharable:
		return "NotSharable"
	case ExpectLocal:
		return "ExpectLocal"
	case ExpectShared:
		return "ExpectShared"
	case InvalidAddress:
		return "InvalidAddress"
	case OutOfMemory:
		return "OutOfMemory"
	case BorrowViolated:
		return "BorrowViolated"
	case ExhaustedFrame:
		return "ExhaustedFrame"
	case NoParentFrame:
		return "NoParentFrame"
	case JoinConsumed:
		return "JoinConsumed"
	default:
		return "Unknown"
	}
}

// RuntimeError is the error type this package's own operations raise. It
// carries a Code for programmatic dispatch and an optional
// human-readable detail.
type RuntimeError struct {
	Code   Code
	Detail string
}

func (e *RuntimeError) Error() string {
	if e.Detail == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Detail
}

// Is allows errors.Is(err, ErrOutOfMemory) and similar sentinel comparisons:
// two *RuntimeError values are equivalent for errors.Is purposes iff they
// carry the same Code.
func (e *RuntimeError) Is(target error) bool {
	var re *RuntimeError
	if errors.As(target, &re) {
		return re.Code == e.Code
	}
	return false
}

func newError(code Code, detail string) *RuntimeError {
	return &RuntimeError{Code: code, Detail: detail}
}

// Sentinel errors for use with errors.Is, one per Code.
var (
	ErrTypeMismatch   = &RuntimeError{Code: TypeMismatch}
	ErrNotCallable    = &RuntimeError{Code: NotCallable}
	ErrNotSharable    = &RuntimeError{Code: NotSharable}
	ErrExpectLocal    = &RuntimeError{Code: ExpectLocal}
	ErrExpectShared   = &RuntimeError{Code: ExpectShared}
	ErrInvalidAddress = &RuntimeError{Code: InvalidAddress}
	ErrOutOfMemory    = &RuntimeError{Code: OutOfMemory}
	ErrBorrowViolated = &RuntimeError{Code: BorrowViolated}
	ErrExhaustedFrame = &RuntimeError{Code: ExhaustedFrame}
	ErrNoParentFrame  = &RuntimeError{Code: NoParentFrame}
	ErrJoinConsumed   = &RuntimeError{Code: JoinConsumed}
)
