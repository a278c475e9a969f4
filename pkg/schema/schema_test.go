package schema

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

func buildSample(t *testing.T) *Schema {
	t.Helper()
	b := NewBuilder()
	_, err := b.AddTextField("title", true, true)
	require.NoError(t, err)
	_, err = b.AddI64Field("year", true, false, true)
	require.NoError(t, err)
	_, err = b.AddF64Field("rating", false, true, false)
	require.NoError(t, err)
	_, err = b.AddBytesField("blob", true, false, false)
	require.NoError(t, err)
	s, err := b.Build()
	require.NoError(t, err)
	return s
}

func TestBuilderAssignsIDsInOrder(t *testing.T) {
	b := NewBuilder()
	for i, name := range []string{"a", "b", "c"} {
		id, err := b.AddField(name, Text, FieldOptions{Indexed: true})
		require.NoError(t, err)
		assert.Equal(t, uint32(i), id)
	}
	s, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 3, s.FieldCount())
	for i, f := range s.Fields() {
		assert.Equal(t, uint32(i), f.ID)
	}
}

func TestBuilderDuplicateField(t *testing.T) {
	b := NewBuilder()
	_, err := b.AddTextField("title", true, true)
	require.NoError(t, err)
	_, err = b.AddI64Field("title", true, true, false)
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateField))
}

func TestBuilderRejectsInvalidDeclarations(t *testing.T) {
	b := NewBuilder()
	_, err := b.AddField("  ", Text, FieldOptions{})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidConfiguration))
	_, err = b.AddField("x", FieldType(42), FieldOptions{})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidConfiguration))
}

func TestBuilderConsumed(t *testing.T) {
	b := NewBuilder()
	_, err := b.AddTextField("title", true, true)
	require.NoError(t, err)
	_, err = b.Build()
	require.NoError(t, err)

	_, err = b.Build()
	assert.True(t, errors.Is(err, apperrors.ErrBuilderConsumed))
	_, err = b.AddTextField("body", false, true)
	assert.True(t, errors.Is(err, apperrors.ErrBuilderConsumed))
}

func TestFieldResolutionIsDeterministic(t *testing.T) {
	s := buildSample(t)
	for i := 0; i < 3; i++ {
		id, err := s.Field("year")
		require.NoError(t, err)
		assert.Equal(t, uint32(1), id)
	}
	_, err1 := s.Field("missing")
	_, err2 := s.Field("missing")
	assert.True(t, errors.Is(err1, apperrors.ErrUnknownField))
	assert.Equal(t, err1.Error(), err2.Error())

	f, ok := s.FieldByID(2)
	require.True(t, ok)
	assert.Equal(t, "rating", f.Name)
	_, ok = s.FieldByID(99)
	assert.False(t, ok)
}

func TestFieldsReturnsCopy(t *testing.T) {
	s := buildSample(t)
	fields := s.Fields()
	fields[0].Name = "mutated"
	f, _ := s.Lookup("title")
	assert.Equal(t, "title", f.Name)
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	s := buildSample(t)
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"name":"title","type":"text","options":{"stored":true,"indexed":true,"fast":false}},
		{"name":"year","type":"i64","options":{"stored":true,"indexed":false,"fast":true}},
		{"name":"rating","type":"f64","options":{"stored":false,"indexed":true,"fast":false}},
		{"name":"blob","type":"bytes","options":{"stored":true,"indexed":false,"fast":false}}
	]`, string(data))

	parsed, err := ParseJSON(data)
	require.NoError(t, err)
	assert.NoError(t, s.Compatible(parsed))
	assert.Empty(t, s.OptionDiff(parsed))
}

func TestParseJSONRejectsUnknownType(t *testing.T) {
	_, err := ParseJSON([]byte(`[{"name":"x","type":"date"}]`))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidConfiguration))
	_, err = ParseJSON([]byte(`{`))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidConfiguration))
}

func TestCompatible(t *testing.T) {
	s := buildSample(t)

	b := NewBuilder()
	_, _ = b.AddTextField("title", false, true)
	_, _ = b.AddF64Field("year", true, false, true)
	_, _ = b.AddF64Field("rating", false, true, false)
	_, _ = b.AddBytesField("blob", true, false, false)
	other, err := b.Build()
	require.NoError(t, err)
	assert.True(t, errors.Is(s.Compatible(other), apperrors.ErrSchemaMismatch))

	b = NewBuilder()
	_, _ = b.AddTextField("title", false, true)
	short, err := b.Build()
	require.NoError(t, err)
	assert.True(t, errors.Is(s.Compatible(short), apperrors.ErrSchemaMismatch))

	b = NewBuilder()
	_, _ = b.AddTextField("title", false, true)
	_, _ = b.AddI64Field("year", true, false, true)
	_, _ = b.AddF64Field("rating", false, true, false)
	_, _ = b.AddBytesField("blob", true, false, false)
	optsOnly, err := b.Build()
	require.NoError(t, err)
	assert.NoError(t, s.Compatible(optsOnly))
	assert.Equal(t, []string{"title"}, s.OptionDiff(optsOnly))
}

func TestValueAccessors(t *testing.T) {
	v := I64(2021)
	i, ok := v.I64()
	assert.True(t, ok)
	assert.Equal(t, int64(2021), i)
	_, ok = v.Str()
	assert.False(t, ok)

	raw := []byte{1, 2, 3}
	bv := BytesValue(raw)
	raw[0] = 9
	got, _ := bv.Bytes()
	assert.Equal(t, []byte{1, 2, 3}, got)

	assert.True(t, F64(1.5).Representable())
	assert.False(t, F64(math.NaN()).Representable())
	assert.False(t, F64(math.Inf(1)).Representable())
	assert.True(t, F64(math.NaN()).Equal(F64(math.NaN())))
	assert.False(t, Str("a").Equal(BytesValue([]byte("a"))))
}

func TestValueMarshalJSON(t *testing.T) {
	data, err := json.Marshal([]Value{Str("go"), I64(-3), F64(0.25), BytesValue([]byte("hi"))})
	require.NoError(t, err)
	assert.JSONEq(t, `["go",-3,0.25,"aGk="]`, string(data))

	_, err = json.Marshal(F64(math.Inf(-1)))
	assert.Error(t, err)
}
