package textindex

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
)

// DocAddress locates a document inside one searcher snapshot: the segment
// ordinal in commit order and the document ordinal inside the segment.
// Addresses are not stable across commits.
type DocAddress struct {
	Segment int    `json:"segment"`
	Doc     uint32 `json:"doc"`
}

// Result is one ranked document with its stored fields. Values that cannot
// be transported, such as non-finite floats, are omitted.
type Result struct {
	Address DocAddress
	Score   float64
	Fields  map[string][]schema.Value
}

// First returns the first value of field name.
func (r Result) First(name string) (schema.Value, bool) {
	values := r.Fields[name]
	if len(values) == 0 {
		return schema.Value{}, false
	}
	return values[0], true
}

// FieldMap renders single-valued fields as scalars and multi-valued fields
// as arrays.
func (r Result) FieldMap() map[string]any {
	out := make(map[string]any, len(r.Fields))
	for name, values := range r.Fields {
		if len(values) == 1 {
			out[name] = values[0]
			continue
		}
		out[name] = values
	}
	return out
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Address DocAddress     `json:"address"`
		Score   float64        `json:"score"`
		Fields  map[string]any `json:"fields"`
	}{r.Address, r.Score, r.FieldMap()})
}

// Searcher reads one immutable snapshot. Later commits are only observed by
// a new Searcher. It is safe for concurrent use.
type Searcher struct {
	idx  *Index
	gen  *generation
	segs []executor.Segment
}

func newSearcher(idx *Index, g *generation) *Searcher {
	return &Searcher{idx: idx, gen: g, segs: g.executorSegments()}
}

// Opstamp returns the commit the searcher observes.
func (s *Searcher) Opstamp() uint64 {
	return s.gen.opstamp
}

// NumDocs returns the number of live documents in the snapshot.
func (s *Searcher) NumDocs() int {
	return s.gen.liveDocs()
}

// Search ranks the documents matching query over the named default fields
// and returns at most limit of them with their stored fields.
func (s *Searcher) Search(query string, limit int, fields []string) ([]Result, error) {
	results, _, err := s.SearchWithTotal(query, limit, fields)
	return results, err
}

// SearchWithTotal is Search that also reports the number of live matches.
func (s *Searcher) SearchWithTotal(query string, limit int, fields []string) ([]Result, int, error) {
	start := time.Now()
	results, total, err := s.search(query, limit, fields)
	s.idx.opts.metrics.ObserveSearch(len(results), err, time.Since(start))
	return results, total, err
}

func (s *Searcher) search(query string, limit int, fields []string) ([]Result, int, error) {
	if limit < 0 {
		return nil, 0, fmt.Errorf("%w: limit must not be negative, got %d", apperrors.ErrInvalidConfiguration, limit)
	}
	q, err := s.compile(query, fields)
	if err != nil {
		return nil, 0, err
	}
	res, err := s.idx.exec.Execute(q, s.segs, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: executing query: %w", apperrors.ErrStorage, err)
	}
	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r, err := s.load(DocAddress{Segment: hit.Segment, Doc: hit.Doc})
		if err != nil {
			return nil, 0, err
		}
		r.Score = hit.Score
		results = append(results, r)
	}
	return results, res.TotalHits, nil
}

// Count returns the number of live documents matching query.
func (s *Searcher) Count(query string, fields []string) (int, error) {
	q, err := s.compile(query, fields)
	if err != nil {
		return 0, err
	}
	n, err := s.idx.exec.Count(q, s.segs)
	if err != nil {
		return 0, fmt.Errorf("%w: executing query: %w", apperrors.ErrStorage, err)
	}
	return n, nil
}

// Doc returns the stored fields of the live document at addr.
func (s *Searcher) Doc(addr DocAddress) (Result, error) {
	if addr.Segment < 0 || addr.Segment >= len(s.segs) {
		return Result{}, fmt.Errorf("%w: no segment %d", apperrors.ErrDocumentNotFound, addr.Segment)
	}
	seg := s.segs[addr.Segment]
	if addr.Doc >= seg.Reader.DocCount() || seg.Tombstones.Contains(addr.Doc) {
		return Result{}, fmt.Errorf("%w: no document %d in segment %d",
			apperrors.ErrDocumentNotFound, addr.Doc, addr.Segment)
	}
	return s.load(addr)
}

func (s *Searcher) compile(query string, fields []string) (executor.Query, error) {
	ids, err := s.resolveFields(fields)
	if err != nil {
		return nil, err
	}
	node, err := parser.Parse(query)
	if err != nil {
		return nil, err
	}
	return s.idx.exec.Compile(node, ids)
}

// resolveFields keeps the indexed fields among names, skipping unknown or
// non-indexed names.
func (s *Searcher) resolveFields(names []string) ([]uint32, error) {
	seen := make(map[uint32]struct{}, len(names))
	var ids []uint32
	for _, name := range names {
		f, ok := s.idx.schema.Lookup(name)
		if !ok || !f.Options.Indexed {
			s.idx.logger.Debug("skipping search field", "field", name, "known", ok)
			continue
		}
		if _, dup := seen[f.ID]; dup {
			continue
		}
		seen[f.ID] = struct{}{}
		ids = append(ids, f.ID)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrNoSearchableFields, names)
	}
	return ids, nil
}

func (s *Searcher) load(addr DocAddress) (Result, error) {
	seg := s.segs[addr.Segment]
	doc, err := seg.Reader.Document(addr.Doc)
	if err != nil {
		return Result{}, fmt.Errorf("%w: loading document %d of segment %d: %w",
			apperrors.ErrStorage, addr.Doc, addr.Segment, err)
	}
	r := Result{Address: addr, Fields: make(map[string][]schema.Value)}
	for _, id := range doc.FieldIDs() {
		f, ok := s.idx.schema.FieldByID(id)
		if !ok || !f.Options.Stored {
			continue
		}
		for _, v := range doc.Get(id) {
			if v.Representable() {
				r.Fields[f.Name] = append(r.Fields[f.Name], v)
			}
		}
	}
	return r, nil
}
