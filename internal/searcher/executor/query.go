package executor

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/scoring"
)

// Query is a compiled, field-resolved query.
type Query interface {
	// eval returns the live matching documents of seg with their scores.
	eval(ctx *evalContext, seg Segment) (map[uint32]float64, error)
	String() string
}

type termQuery struct {
	field uint32
	key   string
}

func (q termQuery) eval(ctx *evalContext, seg Segment) (map[uint32]float64, error) {
	postings, err := seg.Reader.Search(q.key)
	if err != nil {
		return nil, err
	}
	out := make(map[uint32]float64, len(postings))
	if len(postings) == 0 {
		return out, nil
	}
	corpus := ctx.corpus(q.field)
	term := scoring.TermStats{DocFreq: ctx.docFreq(q.key)}
	for _, p := range postings {
		if seg.Tombstones.Contains(p.Doc) {
			continue
		}
		out[p.Doc] = ctx.scorer.Score(corpus, term, scoring.Match{
			TermFreq:    int(p.Frequency),
			FieldLength: int(seg.Reader.FieldLength(q.field, p.Doc)),
		})
	}
	return out, nil
}

func (q termQuery) String() string {
	return fmt.Sprintf("term(%d:%s)", q.field, displayKey(q.key))
}

// phraseQuery matches documents where keys occur at positions matching
// offsets relative to the first key.
type phraseQuery struct {
	field   uint32
	keys    []string
	offsets []uint32
}

func (q phraseQuery) eval(ctx *evalContext, seg Segment) (map[uint32]float64, error) {
	lists := make([]index.PostingList, len(q.keys))
	for i, key := range q.keys {
		postings, err := seg.Reader.Search(key)
		if err != nil {
			return nil, err
		}
		if len(postings) == 0 {
			return map[uint32]float64{}, nil
		}
		lists[i] = postings
	}

	byDoc := make([]map[uint32]index.Posting, len(lists))
	for i := 1; i < len(lists); i++ {
		byDoc[i] = make(map[uint32]index.Posting, len(lists[i]))
		for _, p := range lists[i] {
			byDoc[i][p.Doc] = p
		}
	}

	corpus := ctx.corpus(q.field)
	out := make(map[uint32]float64)
	for _, first := range lists[0] {
		if seg.Tombstones.Contains(first.Doc) {
			continue
		}
		others := make([]index.Posting, len(lists))
		ok := true
		for i := 1; i < len(lists); i++ {
			p, found := byDoc[i][first.Doc]
			if !found {
				ok = false
				break
			}
			others[i] = p
		}
		if !ok {
			continue
		}
		freq := q.phraseFrequency(first, others)
		if freq == 0 {
			continue
		}
		m := scoring.Match{TermFreq: freq, FieldLength: int(seg.Reader.FieldLength(q.field, first.Doc))}
		var score float64
		for _, key := range q.keys {
			score += ctx.scorer.Score(corpus, scoring.TermStats{DocFreq: ctx.docFreq(key)}, m)
		}
		out[first.Doc] = score
	}
	return out, nil
}

func (q phraseQuery) phraseFrequency(first index.Posting, others []index.Posting) int {
	sets := make([]map[uint32]struct{}, len(others))
	for i := 1; i < len(others); i++ {
		sets[i] = make(map[uint32]struct{}, len(others[i].Positions))
		for _, pos := range others[i].Positions {
			sets[i][pos] = struct{}{}
		}
	}
	freq := 0
	for _, start := range first.Positions {
		if start < q.offsets[0] {
			continue
		}
		base := start - q.offsets[0]
		matched := true
		for i := 1; i < len(others); i++ {
			if _, ok := sets[i][base+q.offsets[i]]; !ok {
				matched = false
				break
			}
		}
		if matched {
			freq++
		}
	}
	return freq
}

func (q phraseQuery) String() string {
	parts := make([]string, len(q.keys))
	for i, key := range q.keys {
		parts[i] = displayKey(key)
	}
	return fmt.Sprintf("phrase(%d:%q)", q.field, strings.Join(parts, " "))
}

type boolQuery struct {
	must    []Query
	should  []Query
	mustNot []Query
}

func (q boolQuery) eval(ctx *evalContext, seg Segment) (map[uint32]float64, error) {
	var result map[uint32]float64
	switch {
	case len(q.must) > 0:
		for i, sub := range q.must {
			docs, err := sub.eval(ctx, seg)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				result = docs
				continue
			}
			for doc, score := range result {
				if s, ok := docs[doc]; ok {
					result[doc] = score + s
				} else {
					delete(result, doc)
				}
			}
		}
		for _, sub := range q.should {
			docs, err := sub.eval(ctx, seg)
			if err != nil {
				return nil, err
			}
			for doc, s := range docs {
				if score, ok := result[doc]; ok {
					result[doc] = score + s
				}
			}
		}
	case len(q.should) > 0:
		result = make(map[uint32]float64)
		for _, sub := range q.should {
			docs, err := sub.eval(ctx, seg)
			if err != nil {
				return nil, err
			}
			for doc, s := range docs {
				result[doc] += s
			}
		}
	default:
		return map[uint32]float64{}, nil
	}

	for _, sub := range q.mustNot {
		if len(result) == 0 {
			break
		}
		docs, err := sub.eval(ctx, seg)
		if err != nil {
			return nil, err
		}
		for doc := range docs {
			delete(result, doc)
		}
	}
	return result, nil
}

func (q boolQuery) String() string {
	var parts []string
	for _, sub := range q.must {
		parts = append(parts, "+"+sub.String())
	}
	for _, sub := range q.should {
		parts = append(parts, sub.String())
	}
	for _, sub := range q.mustNot {
		parts = append(parts, "-"+sub.String())
	}
	return "bool(" + strings.Join(parts, " ") + ")"
}

// matchNone is the compiled form of a query that cannot match anything.
type matchNone struct{}

func (matchNone) eval(*evalContext, Segment) (map[uint32]float64, error) {
	return map[uint32]float64{}, nil
}

func (matchNone) String() string { return "none" }

func displayKey(key string) string {
	if len(key) < 5 {
		return hex.EncodeToString([]byte(key))
	}
	switch key[4] {
	case index.KindToken, index.KindExact:
		return key[5:]
	}
	return hex.EncodeToString([]byte(key[5:]))
}
