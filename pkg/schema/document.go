package schema

import "sort"

// Document maps field ids to their ordered values. The zero value is empty
// and ready to use.
type Document struct {
	values map[uint32][]Value
}

func NewDocument() *Document {
	return &Document{values: make(map[uint32][]Value)}
}

// Add appends v to the values of field.
func (d *Document) Add(field uint32, v Value) {
	if d.values == nil {
		d.values = make(map[uint32][]Value)
	}
	d.values[field] = append(d.values[field], v)
}

// Get returns the values of field in insertion order.
func (d *Document) Get(field uint32) []Value {
	return d.values[field]
}

// FieldIDs returns the ids that carry at least one value, ascending.
func (d *Document) FieldIDs() []uint32 {
	ids := make([]uint32, 0, len(d.values))
	for id, vals := range d.values {
		if len(vals) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len is the total number of values across every field.
func (d *Document) Len() int {
	n := 0
	for _, vals := range d.values {
		n += len(vals)
	}
	return n
}

// Project returns a copy containing only the fields keep accepts.
func (d *Document) Project(keep func(id uint32) bool) *Document {
	out := NewDocument()
	for id, vals := range d.values {
		if len(vals) == 0 || !keep(id) {
			continue
		}
		out.values[id] = append([]Value(nil), vals...)
	}
	return out
}
