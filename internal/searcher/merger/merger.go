// Package merger keeps the best scored documents across segments.
package merger

import "container/heap"

// ScoredDoc is a matched document addressed by segment ordinal and document
// ordinal inside that segment.
type ScoredDoc struct {
	Segment int
	Doc     uint32
	Score   float64
}

// Before reports whether a ranks ahead of b: higher score first, then lower
// segment ordinal, then lower document ordinal.
func Before(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Segment != b.Segment {
		return a.Segment < b.Segment
	}
	return a.Doc < b.Doc
}

// Merge returns the top limit documents of all segment results in rank
// order. A non-positive limit yields no documents.
func Merge(segmentResults [][]ScoredDoc, limit int) []ScoredDoc {
	if limit <= 0 {
		return []ScoredDoc{}
	}
	c := NewCollector(limit)
	for _, results := range segmentResults {
		for _, doc := range results {
			c.Push(doc)
		}
	}
	return c.Results()
}

// Collector is a bounded min-heap; the worst kept document sits at the root.
type Collector struct {
	limit int
	h     scoredDocHeap
}

func NewCollector(limit int) *Collector {
	c := &Collector{limit: limit}
	heap.Init(&c.h)
	return c
}

func (c *Collector) Push(doc ScoredDoc) {
	if c.limit <= 0 {
		return
	}
	if c.h.Len() < c.limit {
		heap.Push(&c.h, doc)
		return
	}
	if Before(doc, c.h[0]) {
		c.h[0] = doc
		heap.Fix(&c.h, 0)
	}
}

func (c *Collector) Len() int { return c.h.Len() }

// Results drains the collector in rank order.
func (c *Collector) Results() []ScoredDoc {
	result := make([]ScoredDoc, c.h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&c.h).(ScoredDoc)
	}
	return result
}

type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return Before(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
