package parser

import (
	"fmt"
	"strings"
)

// Node is a parsed query expression.
type Node interface {
	isNode()
	String() string
}

// Term is a single word. An empty Field means the default search fields.
type Term struct {
	Field string
	Text  string
}

func (Term) isNode() {}

func (t Term) String() string {
	if t.Field == "" {
		return t.Text
	}
	return t.Field + ":" + t.Text
}

// Phrase is a quoted word sequence matched positionally.
type Phrase struct {
	Field string
	Text  string
}

func (Phrase) isNode() {}

func (p Phrase) String() string {
	q := fmt.Sprintf("%q", p.Text)
	if p.Field == "" {
		return q
	}
	return p.Field + ":" + q
}

// Occur is how a clause participates in its Bool.
type Occur int

const (
	Should Occur = iota
	Must
	MustNot
)

func (o Occur) prefix() string {
	switch o {
	case Must:
		return "+"
	case MustNot:
		return "-"
	}
	return ""
}

type Clause struct {
	Occur Occur
	Node  Node
}

// Bool combines clauses. A document matches when it matches every Must
// clause, no MustNot clause, and at least one Should clause if there are no
// Must clauses. A Bool without positive clauses matches nothing.
type Bool struct {
	Clauses []Clause
}

func (Bool) isNode() {}

func (b Bool) String() string {
	parts := make([]string, len(b.Clauses))
	for i, c := range b.Clauses {
		parts[i] = c.Occur.prefix() + c.Node.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}
