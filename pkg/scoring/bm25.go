package scoring

import "math"

const (
	defaultK1 = 1.2
	defaultB  = 0.75
)

// BM25 is the Okapi BM25 relevance function.
type BM25 struct {
	K1 float64
	B  float64
}

func NewBM25() *BM25 {
	return &BM25{K1: defaultK1, B: defaultB}
}

func (s *BM25) Score(corpus CorpusStats, term TermStats, m Match) float64 {
	idf := computeIDF(corpus.TotalDocs, term.DocFreq)
	return idf * s.computeTFNorm(float64(m.TermFreq), float64(m.FieldLength), corpus.AvgFieldLength)
}

func computeIDF(totalDocs int64, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq)
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func (s *BM25) computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + s.K1*(1-s.B+s.B*lengthRatio)
	return (termFreq * (s.K1 + 1)) / denominator
}
