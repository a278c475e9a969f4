// Package parser turns query text into a syntax tree. The grammar, loosest
// binding first:
//
//	query   := orExpr EOF
//	orExpr  := andExpr ( [OR] andExpr )*
//	andExpr := unary ( AND unary )*
//	unary   := NOT unary | '+' primary | '-' primary | primary
//	primary := '(' orExpr ')' | WORD ':' value | value
//	value   := WORD | PHRASE | '(' orExpr ')'
//
// Adjacent clauses without an operator are OR'ed.
package parser

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

// Parse parses a query string into a syntax tree. Errors wrap
// apperrors.ErrQueryParse. Empty input yields an empty Bool.
func Parse(input string) (Node, error) {
	tokens, err := Lex(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrQueryParse, err)
	}
	p := &parser{tokens: tokens}
	if p.match(TokEOF) {
		return Bool{}, nil
	}
	node, err := p.parseOr("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrQueryParse, err)
	}
	if !p.match(TokEOF) {
		return nil, fmt.Errorf("%w: unexpected %v at offset %d", apperrors.ErrQueryParse, p.current(), p.current().Pos)
	}
	return node, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) current() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Kind: TokEOF}
}

func (p *parser) peek(offset int) Token {
	if pos := p.pos + offset; pos < len(p.tokens) {
		return p.tokens[pos]
	}
	return Token{Kind: TokEOF}
}

func (p *parser) match(kind TokenKind) bool {
	return p.current().Kind == kind
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *parser) parseOr(field string) (Node, error) {
	var clauses []Clause
	for {
		c, err := p.parseAnd(field)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)

		if p.match(TokOr) {
			p.advance()
			continue
		}
		if p.match(TokEOF) || p.match(TokRParen) {
			break
		}
	}
	if len(clauses) == 1 && clauses[0].Occur == Should {
		return clauses[0].Node, nil
	}
	return Bool{Clauses: clauses}, nil
}

func (p *parser) parseAnd(field string) (Clause, error) {
	left, err := p.parseUnary(field)
	if err != nil {
		return Clause{}, err
	}
	if !p.match(TokAnd) {
		return left, nil
	}

	clauses := []Clause{required(left)}
	for p.match(TokAnd) {
		p.advance()
		right, err := p.parseUnary(field)
		if err != nil {
			return Clause{}, err
		}
		clauses = append(clauses, required(right))
	}
	return Clause{Occur: Should, Node: Bool{Clauses: clauses}}, nil
}

func required(c Clause) Clause {
	if c.Occur == Should {
		c.Occur = Must
	}
	return c
}

func (p *parser) parseUnary(field string) (Clause, error) {
	switch p.current().Kind {
	case TokNot:
		p.advance()
		inner, err := p.parseUnary(field)
		if err != nil {
			return Clause{}, err
		}
		return Clause{Occur: MustNot, Node: inner.Node}, nil
	case TokPlus, TokMinus:
		occur := Must
		if p.match(TokMinus) {
			occur = MustNot
		}
		p.advance()
		node, err := p.parsePrimary(field)
		if err != nil {
			return Clause{}, err
		}
		return Clause{Occur: occur, Node: node}, nil
	}
	node, err := p.parsePrimary(field)
	if err != nil {
		return Clause{}, err
	}
	return Clause{Occur: Should, Node: node}, nil
}

func (p *parser) parsePrimary(field string) (Node, error) {
	tok := p.current()
	switch tok.Kind {
	case TokWord:
		if p.peek(1).Kind == TokColon {
			if field != "" {
				return nil, fmt.Errorf("nested field %q inside %q at offset %d", tok.Value, field, tok.Pos)
			}
			p.advance()
			p.advance()
			return p.parseValue(tok.Value)
		}
		return p.parseValue(field)
	case TokPhrase, TokLParen:
		return p.parseValue(field)
	case TokEOF:
		return nil, fmt.Errorf("unexpected end of query")
	default:
		return nil, fmt.Errorf("expected term, got %v at offset %d", tok, tok.Pos)
	}
}

func (p *parser) parseValue(field string) (Node, error) {
	tok := p.current()
	switch tok.Kind {
	case TokWord:
		p.advance()
		return Term{Field: field, Text: tok.Value}, nil
	case TokPhrase:
		p.advance()
		return Phrase{Field: field, Text: tok.Value}, nil
	case TokLParen:
		p.advance()
		if p.match(TokRParen) {
			p.advance()
			return Bool{}, nil
		}
		node, err := p.parseOr(field)
		if err != nil {
			return nil, err
		}
		if !p.match(TokRParen) {
			return nil, fmt.Errorf("expected ')', got %v", p.current())
		}
		p.advance()
		return node, nil
	case TokEOF:
		return nil, fmt.Errorf("missing value for field %q", field)
	default:
		return nil, fmt.Errorf("expected value for field %q, got %v at offset %d", field, tok, tok.Pos)
	}
}
