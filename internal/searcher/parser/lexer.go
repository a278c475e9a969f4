package parser

import (
	"fmt"
	"strings"
	"unicode"
)

// Token represents a lexical token
type Token struct {
	Kind  TokenKind
	Value string
	Pos   int
}

// TokenKind is the type of token
type TokenKind int

const (
	TokWord TokenKind = iota
	TokPhrase
	TokColon
	TokAnd
	TokOr
	TokNot
	TokPlus
	TokMinus
	TokLParen
	TokRParen
	TokEOF
)

func (k TokenKind) String() string {
	switch k {
	case TokWord:
		return "Word"
	case TokPhrase:
		return "Phrase"
	case TokColon:
		return "Colon"
	case TokAnd:
		return "And"
	case TokOr:
		return "Or"
	case TokNot:
		return "Not"
	case TokPlus:
		return "Plus"
	case TokMinus:
		return "Minus"
	case TokLParen:
		return "LParen"
	case TokRParen:
		return "RParen"
	case TokEOF:
		return "EOF"
	default:
		return "Unknown"
	}
}

func (t Token) String() string {
	if t.Value == "" {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s(%q)", t.Kind, t.Value)
}

// Lexer tokenizes a query string
type Lexer struct {
	input []rune
	pos   int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input)}
}

// Lex tokenizes the entire input
func Lex(input string) ([]Token, error) {
	lexer := NewLexer(input)
	var tokens []Token
	for {
		tok, err := lexer.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			return tokens, nil
		}
	}
}

// Next returns the next token
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.input) {
		return Token{Kind: TokEOF, Pos: l.pos}, nil
	}

	start := l.pos
	ch := l.input[l.pos]
	switch ch {
	case ':':
		l.pos++
		return Token{Kind: TokColon, Pos: start}, nil
	case '(':
		l.pos++
		return Token{Kind: TokLParen, Pos: start}, nil
	case ')':
		l.pos++
		return Token{Kind: TokRParen, Pos: start}, nil
	case '"':
		return l.scanPhrase()
	case '+', '-':
		// A sign right after a field colon starts a number: year:-5.
		if ch == '-' && start > 0 && l.input[start-1] == ':' && unicode.IsDigit(l.peek(1)) {
			break
		}
		// Prefix operators bind only when directly followed by an operand.
		if next := l.peek(1); next != 0 && !unicode.IsSpace(next) && next != ')' {
			l.pos++
			if ch == '+' {
				return Token{Kind: TokPlus, Pos: start}, nil
			}
			return Token{Kind: TokMinus, Pos: start}, nil
		}
	}
	return l.scanWord(), nil
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) peek(offset int) rune {
	pos := l.pos + offset
	if pos < len(l.input) {
		return l.input[pos]
	}
	return 0
}

func (l *Lexer) scanPhrase() (Token, error) {
	start := l.pos
	l.pos++ // consume opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '"' {
			l.pos++
			return Token{Kind: TokPhrase, Value: sb.String(), Pos: start}, nil
		}
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.pos++
			sb.WriteRune(l.input[l.pos])
			l.pos++
			continue
		}
		sb.WriteRune(ch)
		l.pos++
	}
	return Token{}, fmt.Errorf("unterminated phrase starting at offset %d", start)
}

func (l *Lexer) scanWord() Token {
	start := l.pos
	for l.pos < len(l.input) && isWordChar(l.input[l.pos]) {
		l.pos++
	}
	if l.pos == start {
		// A lone operator character is kept as a word.
		l.pos++
	}
	value := string(l.input[start:l.pos])
	switch value {
	case "AND", "&&":
		return Token{Kind: TokAnd, Pos: start}
	case "OR", "||":
		return Token{Kind: TokOr, Pos: start}
	case "NOT":
		return Token{Kind: TokNot, Pos: start}
	}
	return Token{Kind: TokWord, Value: value, Pos: start}
}

func isWordChar(ch rune) bool {
	return !unicode.IsSpace(ch) && ch != ':' && ch != '(' && ch != ')' && ch != '"'
}
