package payloads

import "github.com/zephyrtronium/dualheap"

// Record is a fixed set of named fields holding Addresses, modeled on the
// teacher's Object.Slots (object.go, slots.go) stripped of protos and
// message dispatch: a plain slot table.
type Record struct {
	Fields map[string]dualheap.Address
}

// NewRecord creates a Record from fields; a nil map becomes empty.
func NewRecord(fields map[string]dualheap.Address) *Record {
	if fields == nil {
		fields = map[string]dualheap.Address{}
	}
	return &Record{Fields: fields}
}

// Holdees reports every field value, keeping a Record's whole field set
// alive for as long as the Record is reachable.
func (r *Record) Holdees() []dualheap.Address {
	holdees := make([]dualheap.Address, 0, len(r.Fields))
	for _, a := range r.Fields {
		holdees = append(holdees, a)
	}
	return holdees
}

// ToSync copies the field map so the Shared form doesn't alias the Local
// original's map header.
func (r *Record) ToSync(h *dualheap.Heap) (dualheap.Payload, error) {
	cp := make(map[string]dualheap.Address, len(r.Fields))
	for k, v := range r.Fields {
		cp[k] = v
	}
	return &Record{Fields: cp}, nil
}
