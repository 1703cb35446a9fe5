package payloads_test

import (
	"testing"

	"github.com/zephyrtronium/dualheap"
	"github.com/zephyrtronium/dualheap/payloads"
)

func TestRecordHoldeesAndIndependentCopy(t *testing.T) {
	a := dualheap.Address{}
	r := payloads.NewRecord(map[string]dualheap.Address{"x": a})
	if len(r.Holdees()) != 1 {
		t.Fatalf("want 1 holdee, got %d", len(r.Holdees()))
	}

	synced, err := r.ToSync(nil)
	if err != nil {
		t.Fatal(err)
	}
	sr, ok := synced.(*payloads.Record)
	if !ok {
		t.Fatalf("want *payloads.Record, got %T", synced)
	}
	sr.Fields["y"] = a
	if _, ok := r.Fields["y"]; ok {
		t.Fatal("mutating the synced copy must not affect the original's field map")
	}
}

func TestNewRecordNilFields(t *testing.T) {
	r := payloads.NewRecord(nil)
	if r.Fields == nil {
		t.Fatal("want NewRecord(nil) to allocate an empty map")
	}
}
