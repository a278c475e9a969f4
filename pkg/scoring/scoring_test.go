package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBM25RareTermsScoreHigher(t *testing.T) {
	s := NewBM25()
	corpus := CorpusStats{TotalDocs: 100, AvgFieldLength: 10}
	m := Match{TermFreq: 1, FieldLength: 10}

	rare := s.Score(corpus, TermStats{DocFreq: 1}, m)
	common := s.Score(corpus, TermStats{DocFreq: 90}, m)
	assert.Greater(t, rare, common)
	assert.Greater(t, common, 0.0)
}

func TestBM25ShorterFieldsScoreHigher(t *testing.T) {
	s := NewBM25()
	corpus := CorpusStats{TotalDocs: 10, AvgFieldLength: 10}
	term := TermStats{DocFreq: 2}

	short := s.Score(corpus, term, Match{TermFreq: 1, FieldLength: 2})
	long := s.Score(corpus, term, Match{TermFreq: 1, FieldLength: 40})
	assert.Greater(t, short, long)
}

func TestBM25TermFrequencySaturates(t *testing.T) {
	s := NewBM25()
	corpus := CorpusStats{TotalDocs: 10, AvgFieldLength: 10}
	term := TermStats{DocFreq: 2}

	one := s.Score(corpus, term, Match{TermFreq: 1, FieldLength: 10})
	two := s.Score(corpus, term, Match{TermFreq: 2, FieldLength: 10})
	many := s.Score(corpus, term, Match{TermFreq: 100, FieldLength: 10})
	assert.Greater(t, two, one)
	assert.Less(t, many, one*(s.K1+1))
}

func TestBM25ZeroAverageLength(t *testing.T) {
	s := NewBM25()
	assert.Equal(t, 0.0, s.Score(CorpusStats{TotalDocs: 1}, TermStats{DocFreq: 1}, Match{TermFreq: 1}))
}

func TestConstantAndFunc(t *testing.T) {
	assert.Equal(t, 1.0, Constant{}.Score(CorpusStats{}, TermStats{}, Match{}))

	var s Scorer = Func(func(_ CorpusStats, _ TermStats, m Match) float64 {
		return float64(m.TermFreq)
	})
	assert.Equal(t, 3.0, s.Score(CorpusStats{}, TermStats{}, Match{TermFreq: 3}))
}
