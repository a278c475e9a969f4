package textindex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/analysis"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
)

// Term is a field-scoped deletion selector. A document matches when any of
// its indexed keys equals one of the term's keys.
type Term struct {
	Field uint32
	Type  schema.FieldType
	keys  []string
}

// NewTerm resolves field against s and encodes value for it. Text values
// match documents whose whole normalised value equals the value, or, when
// the value analyses to a single token, documents containing that token.
func NewTerm(s *schema.Schema, a analysis.Analyzer, field, value string) (Term, error) {
	f, ok := s.Lookup(field)
	if !ok {
		return Term{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownField, field)
	}
	t := Term{Field: f.ID, Type: f.Type}
	switch f.Type {
	case schema.Text:
		t.keys = append(t.keys, index.Key(f.ID, index.KindExact, []byte(analysis.NormalizeExact(value))))
		if tokens := a.Analyze(value); len(tokens) == 1 {
			t.keys = append(t.keys, index.TokenKey(f.ID, tokens[0].Term))
		}
	case schema.Integer64:
		i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return Term{}, fmt.Errorf("%w: %q is not an i64 value for field %q", apperrors.ErrInvalidTerm, value, field)
		}
		t.keys = append(t.keys, index.Key(f.ID, index.KindNumeric, index.EncodeI64(i)))
	case schema.Float64:
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return Term{}, fmt.Errorf("%w: %q is not an f64 value for field %q", apperrors.ErrInvalidTerm, value, field)
		}
		t.keys = append(t.keys, index.Key(f.ID, index.KindNumeric, index.EncodeF64(v)))
	case schema.Bytes:
		t.keys = append(t.keys, index.Key(f.ID, index.KindBytes, []byte(value)))
	}
	return t, nil
}

// Keys returns the encoded index keys the term matches.
func (t Term) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}
