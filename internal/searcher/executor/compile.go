package executor

import (
	"fmt"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
)

// Compile resolves node against the schema. Unqualified terms expand over
// defaults, which must be field ids of the schema. Explicit field references
// must name an indexed field. The result is never nil.
func (e *Executor) Compile(node parser.Node, defaults []uint32) (Query, error) {
	fields := make([]schema.Field, 0, len(defaults))
	for _, id := range defaults {
		if f, ok := e.schema.FieldByID(id); ok && f.Options.Indexed {
			fields = append(fields, f)
		}
	}
	q, err := e.compile(node, fields)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return matchNone{}, nil
	}
	return q, nil
}

// compile returns nil for clauses that analyse to nothing.
func (e *Executor) compile(node parser.Node, defaults []schema.Field) (Query, error) {
	switch n := node.(type) {
	case parser.Term:
		return e.compileText(n.Field, n.Text, defaults)
	case parser.Phrase:
		return e.compileText(n.Field, n.Text, defaults)
	case parser.Bool:
		var q boolQuery
		for _, c := range n.Clauses {
			sub, err := e.compile(c.Node, defaults)
			if err != nil {
				return nil, err
			}
			if sub == nil {
				continue
			}
			switch c.Occur {
			case parser.Must:
				q.must = append(q.must, sub)
			case parser.MustNot:
				q.mustNot = append(q.mustNot, sub)
			default:
				q.should = append(q.should, sub)
			}
		}
		if len(q.must) == 0 && len(q.should) == 0 {
			if len(q.mustNot) > 0 {
				return matchNone{}, nil
			}
			return nil, nil
		}
		if len(q.must)+len(q.should) == 1 && len(q.mustNot) == 0 {
			return append(q.must, q.should...)[0], nil
		}
		return q, nil
	}
	return nil, fmt.Errorf("%w: unsupported node %T", apperrors.ErrQueryParse, node)
}

func (e *Executor) compileText(fieldName, text string, defaults []schema.Field) (Query, error) {
	if fieldName != "" {
		f, ok := e.schema.Lookup(fieldName)
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", apperrors.ErrQueryParse, fieldName)
		}
		if !f.Options.Indexed {
			return nil, fmt.Errorf("%w: field %q is not indexed", apperrors.ErrQueryParse, fieldName)
		}
		q, ok := e.fieldQuery(f, text)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a valid %s value for field %q",
				apperrors.ErrQueryParse, text, f.Type, fieldName)
		}
		return q, nil
	}

	var subs []Query
	for _, f := range defaults {
		if q, _ := e.fieldQuery(f, text); q != nil {
			subs = append(subs, q)
		}
	}
	switch len(subs) {
	case 0:
		return nil, nil
	case 1:
		return subs[0], nil
	}
	return boolQuery{should: subs}, nil
}

// fieldQuery builds the query of text against one field. Text analysing to
// several tokens becomes a phrase, whether quoted or not. ok is false when
// text cannot be a value of the field type; a nil query with ok true means
// the text analysed to no tokens.
func (e *Executor) fieldQuery(f schema.Field, text string) (Query, bool) {
	switch f.Type {
	case schema.Text:
		tokens := e.analyzer.Analyze(text)
		switch len(tokens) {
		case 0:
			return nil, true
		case 1:
			return termQuery{field: f.ID, key: index.TokenKey(f.ID, tokens[0].Term)}, true
		}
		pq := phraseQuery{field: f.ID}
		for _, tok := range tokens {
			pq.keys = append(pq.keys, index.TokenKey(f.ID, tok.Term))
			pq.offsets = append(pq.offsets, uint32(tok.Position-tokens[0].Position))
		}
		return pq, true
	case schema.Integer64:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, false
		}
		return termQuery{field: f.ID, key: index.Key(f.ID, index.KindNumeric, index.EncodeI64(v))}, true
	case schema.Float64:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, false
		}
		return termQuery{field: f.ID, key: index.Key(f.ID, index.KindNumeric, index.EncodeF64(v))}, true
	case schema.Bytes:
		return termQuery{field: f.ID, key: index.Key(f.ID, index.KindBytes, []byte(text))}, true
	}
	return nil, false
}
