package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

func TestParseSingleTerm(t *testing.T) {
	node, err := Parse("rust")
	require.NoError(t, err)
	assert.Equal(t, Term{Text: "rust"}, node)
}

func TestParseEmptyQuery(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		node, err := Parse(q)
		require.NoError(t, err)
		assert.Equal(t, Bool{}, node)
	}
}

func TestParseImplicitOr(t *testing.T) {
	node, err := Parse("rust go")
	require.NoError(t, err)
	assert.Equal(t, Bool{Clauses: []Clause{
		{Occur: Should, Node: Term{Text: "rust"}},
		{Occur: Should, Node: Term{Text: "go"}},
	}}, node)

	explicit, err := Parse("rust OR go")
	require.NoError(t, err)
	assert.Equal(t, node, explicit)
}

func TestParseAndBindsTighterThanOr(t *testing.T) {
	node, err := Parse("a AND b OR c")
	require.NoError(t, err)
	assert.Equal(t, "((+a +b) c)", node.String())

	node, err = Parse("a && NOT b")
	require.NoError(t, err)
	assert.Equal(t, "(+a -b)", node.String())
}

func TestParsePrefixes(t *testing.T) {
	node, err := Parse("+rust -go patterns")
	require.NoError(t, err)
	assert.Equal(t, Bool{Clauses: []Clause{
		{Occur: Must, Node: Term{Text: "rust"}},
		{Occur: MustNot, Node: Term{Text: "go"}},
		{Occur: Should, Node: Term{Text: "patterns"}},
	}}, node)

	node, err = Parse("state-of-the-art")
	require.NoError(t, err)
	assert.Equal(t, Term{Text: "state-of-the-art"}, node)
}

func TestParseFieldsAndPhrases(t *testing.T) {
	node, err := Parse(`title:rust body:"zero cost" "exact words"`)
	require.NoError(t, err)
	assert.Equal(t, Bool{Clauses: []Clause{
		{Occur: Should, Node: Term{Field: "title", Text: "rust"}},
		{Occur: Should, Node: Phrase{Field: "body", Text: "zero cost"}},
		{Occur: Should, Node: Phrase{Text: "exact words"}},
	}}, node)
}

func TestParseNegativeFieldValue(t *testing.T) {
	node, err := Parse("year:-5")
	require.NoError(t, err)
	assert.Equal(t, Term{Field: "year", Text: "-5"}, node)

	node, err = Parse("-year:-5 year:2021")
	require.NoError(t, err)
	assert.Equal(t, Bool{Clauses: []Clause{
		{Occur: MustNot, Node: Term{Field: "year", Text: "-5"}},
		{Occur: Should, Node: Term{Field: "year", Text: "2021"}},
	}}, node)

	// Away from a colon a minus before a digit still excludes.
	node, err = Parse("rust -5")
	require.NoError(t, err)
	assert.Equal(t, Bool{Clauses: []Clause{
		{Occur: Should, Node: Term{Text: "rust"}},
		{Occur: MustNot, Node: Term{Text: "5"}},
	}}, node)
}

func TestParseFieldGroup(t *testing.T) {
	node, err := Parse("title:(rust OR -go)")
	require.NoError(t, err)
	assert.Equal(t, Bool{Clauses: []Clause{
		{Occur: Should, Node: Term{Field: "title", Text: "rust"}},
		{Occur: MustNot, Node: Term{Field: "title", Text: "go"}},
	}}, node)
}

func TestParseGroups(t *testing.T) {
	node, err := Parse("(a b) AND c")
	require.NoError(t, err)
	assert.Equal(t, "(+(a b) +c)", node.String())

	node, err = Parse("()")
	require.NoError(t, err)
	assert.Equal(t, Bool{}, node)
}

func TestParseEscapedPhrase(t *testing.T) {
	node, err := Parse(`"say \"hi\""`)
	require.NoError(t, err)
	assert.Equal(t, Phrase{Text: `say "hi"`}, node)
}

func TestParseErrors(t *testing.T) {
	for _, q := range []string{
		`"unterminated`,
		"(rust",
		"rust)",
		"title:",
		"AND rust",
		"rust AND",
		"a:b:c",
		"title:(body:x)",
		": rust",
	} {
		t.Run(q, func(t *testing.T) {
			_, err := Parse(q)
			assert.ErrorIs(t, err, apperrors.ErrQueryParse)
		})
	}
}

func TestLexKeywordsAreCaseSensitive(t *testing.T) {
	tokens, err := Lex("and AND or OR not NOT")
	require.NoError(t, err)
	kinds := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []TokenKind{TokWord, TokAnd, TokWord, TokOr, TokWord, TokNot, TokEOF}, kinds)
}
