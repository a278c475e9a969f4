package merger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeKeepsTopByScore(t *testing.T) {
	got := Merge([][]ScoredDoc{
		{{Segment: 0, Doc: 0, Score: 1}, {Segment: 0, Doc: 1, Score: 5}},
		{{Segment: 1, Doc: 0, Score: 3}, {Segment: 1, Doc: 1, Score: 4}},
	}, 3)
	assert.Equal(t, []ScoredDoc{
		{Segment: 0, Doc: 1, Score: 5},
		{Segment: 1, Doc: 1, Score: 4},
		{Segment: 1, Doc: 0, Score: 3},
	}, got)
}

func TestMergeBreaksTiesByAddress(t *testing.T) {
	got := Merge([][]ScoredDoc{
		{{Segment: 1, Doc: 2, Score: 2}, {Segment: 1, Doc: 0, Score: 2}},
		{{Segment: 0, Doc: 9, Score: 2}, {Segment: 0, Doc: 3, Score: 2}},
	}, 3)
	assert.Equal(t, []ScoredDoc{
		{Segment: 0, Doc: 3, Score: 2},
		{Segment: 0, Doc: 9, Score: 2},
		{Segment: 1, Doc: 0, Score: 2},
	}, got)
}

func TestMergeLimits(t *testing.T) {
	docs := [][]ScoredDoc{{{Doc: 0, Score: 1}, {Doc: 1, Score: 2}}}
	assert.Empty(t, Merge(docs, 0))
	assert.Empty(t, Merge(docs, -1))
	assert.Len(t, Merge(docs, 10), 2)
}

func BenchmarkCollector(b *testing.B) {
	for i := 0; i < b.N; i++ {
		c := NewCollector(10)
		for d := 0; d < 10000; d++ {
			c.Push(ScoredDoc{Doc: uint32(d), Score: float64(d % 97)})
		}
		_ = c.Results()
	}
}
