package schema

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Value is a single typed field value. The zero Value is invalid.
type Value struct {
	typ FieldType
	s   string
	i   int64
	f   float64
	b   []byte
}

func Str(s string) Value  { return Value{typ: Text, s: s} }
func I64(i int64) Value   { return Value{typ: Integer64, i: i} }
func F64(f float64) Value { return Value{typ: Float64, f: f} }

func BytesValue(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{typ: Bytes, b: cp}
}

// Type returns the field type the value belongs to.
func (v Value) Type() FieldType { return v.typ }

func (v Value) Str() (string, bool)   { return v.s, v.typ == Text }
func (v Value) I64() (int64, bool)    { return v.i, v.typ == Integer64 }
func (v Value) F64() (float64, bool)  { return v.f, v.typ == Float64 }
func (v Value) Bytes() ([]byte, bool) { return v.b, v.typ == Bytes }

// Representable reports whether the value can be carried by a JSON-like
// transport. Only non-finite floats are not.
func (v Value) Representable() bool {
	if v.typ == Float64 {
		return !math.IsNaN(v.f) && !math.IsInf(v.f, 0)
	}
	return v.typ.Valid()
}

// Equal compares type and payload. NaN floats compare equal to each other.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case Text:
		return v.s == o.s
	case Integer64:
		return v.i == o.i
	case Float64:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case Bytes:
		return bytes.Equal(v.b, o.b)
	}
	return false
}

// Interface returns the payload as a plain Go value.
func (v Value) Interface() any {
	switch v.typ {
	case Text:
		return v.s
	case Integer64:
		return v.i
	case Float64:
		return v.f
	case Bytes:
		return v.b
	}
	return nil
}

func (v Value) String() string {
	switch v.typ {
	case Text:
		return v.s
	case Integer64:
		return strconv.FormatInt(v.i, 10)
	case Float64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Bytes:
		return base64.StdEncoding.EncodeToString(v.b)
	}
	return "<invalid>"
}

// MarshalJSON renders text as a string, numbers as numbers and bytes as
// base64. Non-finite floats fail to marshal.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.typ {
	case Text:
		return json.Marshal(v.s)
	case Integer64:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case Float64:
		if !v.Representable() {
			return nil, fmt.Errorf("value %v is not representable", v.f)
		}
		return json.Marshal(v.f)
	case Bytes:
		return json.Marshal(v.b)
	}
	return nil, fmt.Errorf("marshaling invalid value")
}
