package schema

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

// FieldDescription is the transport form of one field.
type FieldDescription struct {
	Name    string       `json:"name"`
	Type    string       `json:"type"`
	Options FieldOptions `json:"options"`
}

// Describe returns the structural description of the schema, one entry per
// field in declaration order.
func (s *Schema) Describe() []FieldDescription {
	out := make([]FieldDescription, 0, len(s.fields))
	for _, f := range s.fields {
		out = append(out, FieldDescription{
			Name:    f.Name,
			Type:    f.Type.String(),
			Options: f.Options,
		})
	}
	return out
}

func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Describe())
}

// FromDescription rebuilds a Schema from its transport form.
func FromDescription(desc []FieldDescription) (*Schema, error) {
	b := NewBuilder()
	for _, d := range desc {
		t, err := ParseFieldType(d.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", d.Name, err)
		}
		if _, err := b.AddField(d.Name, t, d.Options); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// ParseJSON decodes a schema description produced by MarshalJSON.
func ParseJSON(data []byte) (*Schema, error) {
	var desc []FieldDescription
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("%w: decoding schema: %v", apperrors.ErrInvalidConfiguration, err)
	}
	return FromDescription(desc)
}
