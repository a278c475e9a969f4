// Package analysis provides the text analysis chain used at indexing and
// query time. The core only depends on the Analyzer interface; NewEnglish and
// NewSimple are the bundled implementations.
package analysis

import "strings"

// Token is a single normalised term and its position in the analysed text.
type Token struct {
	Term     string
	Position int
}

// Analyzer turns text into a token sequence. Implementations must be
// deterministic and safe for concurrent use.
type Analyzer interface {
	Analyze(text string) []Token
}

// Func adapts a plain function to the Analyzer interface.
type Func func(text string) []Token

func (f Func) Analyze(text string) []Token { return f(text) }

// NormalizeExact folds a whole text value into its exact-match form:
// lower-cased with runs of whitespace collapsed to a single space.
func NormalizeExact(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Terms returns only the term strings of tokens.
func Terms(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Term
	}
	return out
}
