package dualheap

import (
	"errors"
	"testing"
)

func TestFramePushPopGet(t *testing.T) {
	f := newFrame(Address{index: 0}, nil)
	a1 := Address{index: 1}
	a2 := Address{index: 2}
	f.push(a1)
	f.push(a2)

	if got, err := f.get(1); err != nil || got != a2 {
		t.Fatalf("get(1) = %v, %v; want %v, nil", got, err, a2)
	}
	if got, err := f.get(2); err != nil || got != a1 {
		t.Fatalf("get(2) = %v, %v; want %v, nil", got, err, a1)
	}

	popped, err := f.pop()
	if err != nil || popped != a2 {
		t.Fatalf("pop() = %v, %v; want %v, nil", popped, err, a2)
	}
	popped, err = f.pop()
	if err != nil || popped != a1 {
		t.Fatalf("pop() = %v, %v; want %v, nil", popped, err, a1)
	}
	if _, err := f.pop(); !errors.Is(err, ErrExhaustedFrame) {
		t.Fatalf("pop on empty frame: want ExhaustedFrame, got %v", err)
	}
}

func TestFrameGetOutOfRange(t *testing.T) {
	f := newFrame(Address{index: 0}, nil)
	f.push(Address{index: 1})
	if _, err := f.get(2); !errors.Is(err, ErrExhaustedFrame) {
		t.Fatalf("want ExhaustedFrame for out-of-range get, got %v", err)
	}
	if _, err := f.get(0); !errors.Is(err, ErrExhaustedFrame) {
		t.Fatalf("want ExhaustedFrame for get(0), got %v", err)
	}
}

func TestFrameHoldeesIncludesParentAndStack(t *testing.T) {
	parent := Address{index: 9}
	f := newFrame(Address{index: 0}, &parent)
	f.push(Address{index: 1})
	f.push(Address{index: 2})

	holdees := f.Holdees()
	want := map[Address]bool{
		{index: 0}: true,
		{index: 1}: true,
		{index: 2}: true,
		{index: 9}: true,
	}
	if len(holdees) != len(want) {
		t.Fatalf("want %d holdees, got %d: %v", len(want), len(holdees), holdees)
	}
	for _, h := range holdees {
		if !want[h] {
			t.Fatalf("unexpected holdee %v", h)
		}
	}
}
