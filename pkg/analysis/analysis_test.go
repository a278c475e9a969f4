package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnglishAnalyzer(t *testing.T) {
	a := NewEnglish()
	tokens := a.Analyze("The Running of the Distributed Searches!")
	assert.Equal(t, []string{"runn", "distribut", "search"}, Terms(tokens))
	for i, tok := range tokens {
		assert.Equal(t, i, tok.Position)
	}
}

func TestEnglishAnalyzerDropsShortWords(t *testing.T) {
	tokens := NewEnglish().Analyze("a b go x")
	assert.Equal(t, []string{"go"}, Terms(tokens))
}

func TestSimpleAnalyzer(t *testing.T) {
	tokens := NewSimple().Analyze("Rust patterns, the GO way")
	assert.Equal(t, []string{"rust", "patterns", "the", "go", "way"}, Terms(tokens))
}

func TestNormalizeExact(t *testing.T) {
	assert.Equal(t, "rust patterns", NormalizeExact("  Rust \t Patterns "))
	assert.Equal(t, "", NormalizeExact("   "))
}

func TestFuncAdapter(t *testing.T) {
	var a Analyzer = Func(func(text string) []Token {
		return []Token{{Term: strings.ToUpper(text)}}
	})
	assert.Equal(t, []string{"X"}, Terms(a.Analyze("x")))
}

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Distributed search engines process queries across multiple shards to achieve
        horizontal scalability. Each shard maintains its own inverted index and responds
        to queries independently.`,
	"long": strings.Repeat(`Information retrieval systems form the backbone of modern search
        infrastructure. These systems combine tokenization, stemming, and stop word
        removal to normalize text into searchable terms. `, 20),
}

func BenchmarkAnalyze(b *testing.B) {
	a := NewEnglish()
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := a.Analyze(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkAnalyzeVaryingSize(b *testing.B) {
	a := NewEnglish()
	sizes := []int{10, 100, 500, 1000, 5000}
	baseWord := "distributed search analytics platform indexing "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := a.Analyze(text)
				_ = tokens
			}
		})
	}
}
