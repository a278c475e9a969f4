// Package executor evaluates compiled queries over the segments of one
// snapshot and ranks the matches.
package executor

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/analysis"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/scoring"
)

// Segment is one searchable segment. Ordinal is its position in the
// snapshot and orders tied scores.
type Segment struct {
	Ordinal    int
	Reader     *segment.Reader
	Tombstones *segment.Tombstones
}

type SearchResult struct {
	Hits      []merger.ScoredDoc
	TotalHits int
}

// Executor is stateless apart from its collaborators and safe for
// concurrent use.
type Executor struct {
	schema   *schema.Schema
	analyzer analysis.Analyzer
	scorer   scoring.Scorer
	logger   *slog.Logger
}

func New(s *schema.Schema, a analysis.Analyzer, sc scoring.Scorer) *Executor {
	return &Executor{
		schema:   s,
		analyzer: a,
		scorer:   sc,
		logger:   slog.Default().With("component", "query-executor"),
	}
}

// Execute ranks the live matches of q across segs and keeps the best limit.
func (e *Executor) Execute(q Query, segs []Segment, limit int) (*SearchResult, error) {
	ctx := newEvalContext(e.scorer, segs)
	collector := merger.NewCollector(limit)
	total := 0
	for _, seg := range segs {
		docs, err := q.eval(ctx, seg)
		if err != nil {
			return nil, err
		}
		total += len(docs)
		for doc, score := range docs {
			collector.Push(merger.ScoredDoc{Segment: seg.Ordinal, Doc: doc, Score: score})
		}
	}
	hits := collector.Results()
	e.logger.Debug("query executed",
		"query", q.String(),
		"segments", len(segs),
		"candidates", total,
		"results", len(hits),
	)
	return &SearchResult{Hits: hits, TotalHits: total}, nil
}

// Count returns the number of live matches of q across segs.
func (e *Executor) Count(q Query, segs []Segment) (int, error) {
	ctx := newEvalContext(e.scorer, segs)
	total := 0
	for _, seg := range segs {
		docs, err := q.eval(ctx, seg)
		if err != nil {
			return 0, err
		}
		total += len(docs)
	}
	return total, nil
}

// evalContext memoises snapshot-wide statistics during one evaluation.
type evalContext struct {
	scorer    scoring.Scorer
	segs      []Segment
	totalDocs int64
	corpora   map[uint32]scoring.CorpusStats
	docFreqs  map[string]int64
}

func newEvalContext(sc scoring.Scorer, segs []Segment) *evalContext {
	ctx := &evalContext{
		scorer:   sc,
		segs:     segs,
		corpora:  make(map[uint32]scoring.CorpusStats),
		docFreqs: make(map[string]int64),
	}
	for _, s := range segs {
		ctx.totalDocs += int64(s.Reader.DocCount())
	}
	return ctx
}

func (c *evalContext) corpus(field uint32) scoring.CorpusStats {
	if cs, ok := c.corpora[field]; ok {
		return cs
	}
	var total uint64
	for _, s := range c.segs {
		total += s.Reader.TotalFieldLength(field)
	}
	cs := scoring.CorpusStats{TotalDocs: c.totalDocs}
	if c.totalDocs > 0 {
		cs.AvgFieldLength = float64(total) / float64(c.totalDocs)
	}
	c.corpora[field] = cs
	return cs
}

func (c *evalContext) docFreq(key string) int64 {
	if df, ok := c.docFreqs[key]; ok {
		return df
	}
	var df int64
	for _, s := range c.segs {
		df += int64(s.Reader.DocFreq(key))
	}
	c.docFreqs[key] = df
	return df
}
