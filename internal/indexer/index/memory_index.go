// Package index buffers documents in memory as an inverted index until the
// writer encodes them into an immutable segment.
package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/analysis"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
)

// positionGap separates the positions of consecutive values of one field so
// that phrases never match across value boundaries.
const positionGap = 2

const postingOverhead = 32

// MemoryIndex is not safe for concurrent use; the owning writer serialises
// access.
type MemoryIndex struct {
	schema   *schema.Schema
	analyzer analysis.Analyzer

	index   map[string]PostingList
	lengths map[uint32][]uint32
	stored  []*schema.Document
	fast    []*schema.Document
	size    int64
}

func NewMemoryIndex(s *schema.Schema, a analysis.Analyzer) *MemoryIndex {
	m := &MemoryIndex{schema: s, analyzer: a}
	m.Reset()
	return m
}

// AddDocument indexes doc and returns its ordinal inside the buffer.
func (m *MemoryIndex) AddDocument(doc *schema.Document) uint32 {
	ord := uint32(len(m.stored))
	termData := make(map[string]*Posting)

	for _, f := range m.schema.Fields() {
		if !f.Options.Indexed {
			continue
		}
		var fieldLen uint32
		lastPos := -positionGap
		for _, v := range doc.Get(f.ID) {
			switch f.Type {
			case schema.Text:
				s, _ := v.Str()
				base := lastPos + positionGap
				for _, tok := range m.analyzer.Analyze(s) {
					pos := base + tok.Position
					addOccurrence(termData, TokenKey(f.ID, tok.Term), ord, uint32(pos), true)
					if pos > lastPos {
						lastPos = pos
					}
					fieldLen++
				}
				if exact := analysis.NormalizeExact(s); exact != "" {
					addOccurrence(termData, Key(f.ID, KindExact, []byte(exact)), ord, 0, false)
				}
			case schema.Integer64:
				i, _ := v.I64()
				addOccurrence(termData, Key(f.ID, KindNumeric, EncodeI64(i)), ord, 0, false)
				fieldLen++
			case schema.Float64:
				fl, _ := v.F64()
				addOccurrence(termData, Key(f.ID, KindNumeric, EncodeF64(fl)), ord, 0, false)
				fieldLen++
			case schema.Bytes:
				b, _ := v.Bytes()
				addOccurrence(termData, Key(f.ID, KindBytes, b), ord, 0, false)
				fieldLen++
			}
		}
		m.lengths[f.ID] = append(m.lengths[f.ID], fieldLen)
	}

	for key, posting := range termData {
		m.index[key] = append(m.index[key], *posting)
		m.size += int64(len(key) + len(posting.Positions)*4 + postingOverhead)
	}

	stored := doc.Project(func(id uint32) bool {
		f, ok := m.schema.FieldByID(id)
		return ok && f.Options.Stored
	})
	fast := doc.Project(func(id uint32) bool {
		f, ok := m.schema.FieldByID(id)
		return ok && f.Options.Fast
	})
	m.stored = append(m.stored, stored)
	m.fast = append(m.fast, fast)
	m.size += documentSize(stored) + documentSize(fast) + postingOverhead
	return ord
}

func addOccurrence(termData map[string]*Posting, key string, doc, pos uint32, positional bool) {
	p, exists := termData[key]
	if !exists {
		p = &Posting{Doc: doc}
		termData[key] = p
	}
	p.Frequency++
	if positional {
		p.Positions = append(p.Positions, pos)
	}
}

func documentSize(doc *schema.Document) int64 {
	var n int64
	for _, id := range doc.FieldIDs() {
		for _, v := range doc.Get(id) {
			switch v.Type() {
			case schema.Text:
				s, _ := v.Str()
				n += int64(len(s))
			case schema.Bytes:
				b, _ := v.Bytes()
				n += int64(len(b))
			default:
				n += 8
			}
			n += 8
		}
	}
	return n
}

// Search returns the postings of key.
func (m *MemoryIndex) Search(key string) PostingList {
	return m.index[key]
}

// Match returns the ordinals below limit whose postings contain any of keys,
// ascending and without duplicates.
func (m *MemoryIndex) Match(keys []string, limit uint32) []uint32 {
	seen := make(map[uint32]struct{})
	var out []uint32
	for _, key := range keys {
		for _, p := range m.index[key] {
			if p.Doc >= limit {
				break
			}
			if _, dup := seen[p.Doc]; dup {
				continue
			}
			seen[p.Doc] = struct{}{}
			out = append(out, p.Doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Snapshot returns every term entry sorted by key.
func (m *MemoryIndex) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(m.index))
	for key, postings := range m.index {
		entries = append(entries, TermEntry{Key: key, Postings: postings})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// FieldLengths returns the per-document lengths of every indexed field.
func (m *MemoryIndex) FieldLengths() map[uint32][]uint32 {
	return m.lengths
}

// StoredDocuments returns the stored projection of each buffered document.
func (m *MemoryIndex) StoredDocuments() []*schema.Document {
	return m.stored
}

// FastDocuments returns the fast-field projection of each buffered document.
func (m *MemoryIndex) FastDocuments() []*schema.Document {
	return m.fast
}

func (m *MemoryIndex) Schema() *schema.Schema {
	return m.schema
}

// Size estimates the buffered bytes.
func (m *MemoryIndex) Size() int64 {
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	return len(m.stored)
}

func (m *MemoryIndex) Reset() {
	m.index = make(map[string]PostingList)
	m.lengths = make(map[uint32][]uint32)
	for _, f := range m.schema.Fields() {
		if f.Options.Indexed {
			m.lengths[f.ID] = nil
		}
	}
	m.stored = nil
	m.fast = nil
	m.size = 0
}
