// Package scoring holds the pluggable relevance capability. The executor sums
// Scorer contributions over every query term a document matches.
package scoring

// CorpusStats describes the searched field over the whole snapshot.
type CorpusStats struct {
	TotalDocs      int64
	AvgFieldLength float64
}

// TermStats describes one query term over the whole snapshot.
type TermStats struct {
	DocFreq int64
}

// Match describes one query term inside one document.
type Match struct {
	TermFreq    int
	FieldLength int
}

// Scorer returns the contribution of a single matched term to a document's
// score. Implementations must be deterministic and safe for concurrent use.
type Scorer interface {
	Score(corpus CorpusStats, term TermStats, m Match) float64
}

// Func adapts a plain function to the Scorer interface.
type Func func(corpus CorpusStats, term TermStats, m Match) float64

func (f Func) Score(corpus CorpusStats, term TermStats, m Match) float64 {
	return f(corpus, term, m)
}

// Constant scores every matched term as 1, so a document's score is the
// number of query terms it matches.
type Constant struct{}

func (Constant) Score(CorpusStats, TermStats, Match) float64 { return 1 }
