// Package schema defines the typed field catalog shared by an index, its
// writers and its searchers. A Schema is produced once by a Builder and is
// immutable afterwards.
package schema

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

// FieldType is the value type of a field. It is fixed at creation.
type FieldType uint8

const (
	Text FieldType = iota + 1
	Integer64
	Float64
	Bytes
)

func (t FieldType) String() string {
	switch t {
	case Text:
		return "text"
	case Integer64:
		return "i64"
	case Float64:
		return "f64"
	case Bytes:
		return "bytes"
	default:
		return fmt.Sprintf("FieldType(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the supported field types.
func (t FieldType) Valid() bool {
	return t >= Text && t <= Bytes
}

// ParseFieldType converts the transport name of a type back to a FieldType.
func ParseFieldType(s string) (FieldType, error) {
	switch s {
	case "text":
		return Text, nil
	case "i64":
		return Integer64, nil
	case "f64":
		return Float64, nil
	case "bytes":
		return Bytes, nil
	}
	return 0, fmt.Errorf("%w: unsupported field type %q", apperrors.ErrInvalidConfiguration, s)
}

// FieldOptions are independent flags controlling how a field is handled.
type FieldOptions struct {
	// Stored fields are returned verbatim in search results.
	Stored bool `json:"stored"`
	// Indexed fields are searchable and matchable by deletion terms.
	Indexed bool `json:"indexed"`
	// Fast fields keep a per-document column readable without decoding the
	// stored document.
	Fast bool `json:"fast"`
}

// Field is a single entry of a Schema.
type Field struct {
	ID      uint32
	Name    string
	Type    FieldType
	Options FieldOptions
}

// Schema is an ordered, immutable field catalog. It is safe for concurrent use.
type Schema struct {
	fields []Field
	byName map[string]uint32
}

func newSchema(fields []Field) *Schema {
	s := &Schema{
		fields: fields,
		byName: make(map[string]uint32, len(fields)),
	}
	for _, f := range fields {
		s.byName[f.Name] = f.ID
	}
	return s
}

// Field resolves name to its field id.
func (s *Schema) Field(name string) (uint32, error) {
	id, ok := s.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", apperrors.ErrUnknownField, name)
	}
	return id, nil
}

// Lookup returns the field declared under name.
func (s *Schema) Lookup(name string) (Field, bool) {
	id, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[id], true
}

// FieldByID returns the field with the given id.
func (s *Schema) FieldByID(id uint32) (Field, bool) {
	if int(id) >= len(s.fields) {
		return Field{}, false
	}
	return s.fields[id], true
}

// Fields returns a copy of the fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *Schema) FieldCount() int {
	return len(s.fields)
}

// Compatible checks that other declares the same fields, in the same order,
// with the same types. Option differences are tolerated; see OptionDiff.
func (s *Schema) Compatible(other *Schema) error {
	if len(s.fields) != len(other.fields) {
		return fmt.Errorf("%w: existing schema has %d fields, supplied schema has %d",
			apperrors.ErrSchemaMismatch, len(s.fields), len(other.fields))
	}
	for i, f := range s.fields {
		o := other.fields[i]
		if f.Name != o.Name {
			return fmt.Errorf("%w: field %d is %q, supplied %q", apperrors.ErrSchemaMismatch, i, f.Name, o.Name)
		}
		if f.Type != o.Type {
			return fmt.Errorf("%w: field %q has type %s, supplied %s", apperrors.ErrSchemaMismatch, f.Name, f.Type, o.Type)
		}
	}
	return nil
}

// OptionDiff lists the names of fields whose options differ between s and
// other. Both schemas are assumed Compatible.
func (s *Schema) OptionDiff(other *Schema) []string {
	var names []string
	for i, f := range s.fields {
		if i < len(other.fields) && f.Options != other.fields[i].Options {
			names = append(names, f.Name)
		}
	}
	return names
}
