package textindex

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
)

// SkippedField reports one payload entry, or one value of a multi-valued
// entry, that was dropped during ingestion.
type SkippedField struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// AddReport describes how a payload was turned into a document.
type AddReport struct {
	Skipped []SkippedField `json:"skipped,omitempty"`
}

const reasonUnknownField = "unknown field"

// BuildDocument validates payload against s. Unknown names and values that
// do not fit the declared field type are dropped and reported; everything
// else is kept in payload order for multi-valued entries. Keys are visited
// in sorted order so reports are deterministic.
func BuildDocument(s *schema.Schema, payload map[string]any) (*schema.Document, AddReport) {
	names := make([]string, 0, len(payload))
	for name := range payload {
		names = append(names, name)
	}
	sort.Strings(names)

	doc := schema.NewDocument()
	var report AddReport
	for _, name := range names {
		f, ok := s.Lookup(name)
		if !ok {
			report.Skipped = append(report.Skipped, SkippedField{Field: name, Reason: reasonUnknownField})
			continue
		}
		for _, raw := range flatten(payload[name]) {
			if raw == nil {
				continue
			}
			v, err := convertValue(f.Type, raw)
			if err != nil {
				report.Skipped = append(report.Skipped, SkippedField{Field: name, Reason: err.Error()})
				continue
			}
			doc.Add(f.ID, v)
		}
	}
	return doc, report
}

func flatten(raw any) []any {
	switch v := raw.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	}
	return []any{raw}
}

func convertValue(t schema.FieldType, raw any) (schema.Value, error) {
	switch t {
	case schema.Text:
		if s, ok := raw.(string); ok {
			return schema.Str(s), nil
		}
	case schema.Integer64:
		if i, ok := toInt64(raw); ok {
			return schema.I64(i), nil
		}
	case schema.Float64:
		if f, ok := toFloat64(raw); ok {
			return schema.F64(f), nil
		}
	case schema.Bytes:
		switch v := raw.(type) {
		case []byte:
			return schema.BytesValue(v), nil
		case string:
			b, err := base64.StdEncoding.DecodeString(v)
			if err != nil {
				return schema.Value{}, fmt.Errorf("expected base64 for %s field", t)
			}
			return schema.BytesValue(b), nil
		}
	}
	return schema.Value{}, fmt.Errorf("expected %s, got %T", t, raw)
}

func toInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return uintToInt64(uint64(v))
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return uintToInt64(v)
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(v.String(), 64); err == nil {
			return floatToInt64(f)
		}
	}
	return 0, false
}

func uintToInt64(v uint64) (int64, bool) {
	if v > math.MaxInt64 {
		return 0, false
	}
	return int64(v), true
}

// floatToInt64 accepts integral floats in range, which is how JSON decoders
// without UseNumber deliver integers.
func floatToInt64(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func toFloat64(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	if i, ok := toInt64(raw); ok {
		return float64(i), true
	}
	return 0, false
}
