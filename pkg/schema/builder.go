package schema

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

type builderState uint8

const (
	builderActive builderState = iota
	builderConsumed
)

// Builder accumulates field declarations. Build consumes it; any later call
// fails with ErrBuilderConsumed. A Builder is not safe for concurrent use.
type Builder struct {
	state  builderState
	fields []Field
	names  map[string]struct{}
}

func NewBuilder() *Builder {
	return &Builder{names: make(map[string]struct{})}
}

// AddField declares a field and returns its id. Ids follow declaration order
// starting at 0.
func (b *Builder) AddField(name string, t FieldType, opts FieldOptions) (uint32, error) {
	if b.state == builderConsumed {
		return 0, apperrors.ErrBuilderConsumed
	}
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("%w: field name must not be empty", apperrors.ErrInvalidConfiguration)
	}
	if !t.Valid() {
		return 0, fmt.Errorf("%w: field %q has unsupported type %s", apperrors.ErrInvalidConfiguration, name, t)
	}
	if _, dup := b.names[name]; dup {
		return 0, fmt.Errorf("%w: %s", apperrors.ErrDuplicateField, name)
	}
	id := uint32(len(b.fields))
	b.fields = append(b.fields, Field{ID: id, Name: name, Type: t, Options: opts})
	b.names[name] = struct{}{}
	return id, nil
}

func (b *Builder) AddTextField(name string, stored, indexed bool) (uint32, error) {
	return b.AddField(name, Text, FieldOptions{Stored: stored, Indexed: indexed})
}

func (b *Builder) AddI64Field(name string, stored, indexed, fast bool) (uint32, error) {
	return b.AddField(name, Integer64, FieldOptions{Stored: stored, Indexed: indexed, Fast: fast})
}

func (b *Builder) AddF64Field(name string, stored, indexed, fast bool) (uint32, error) {
	return b.AddField(name, Float64, FieldOptions{Stored: stored, Indexed: indexed, Fast: fast})
}

func (b *Builder) AddBytesField(name string, stored, indexed, fast bool) (uint32, error) {
	return b.AddField(name, Bytes, FieldOptions{Stored: stored, Indexed: indexed, Fast: fast})
}

// Build produces the immutable Schema and consumes the builder.
func (b *Builder) Build() (*Schema, error) {
	if b.state == builderConsumed {
		return nil, apperrors.ErrBuilderConsumed
	}
	b.state = builderConsumed
	fields := b.fields
	b.fields = nil
	b.names = nil
	return newSchema(fields), nil
}
