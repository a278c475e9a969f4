package segment

import (
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
)

// MergeSource is one input of Merge. Deleted may be nil.
type MergeSource struct {
	Reader  *Reader
	Deleted *Tombstones
}

// Merge encodes the live documents of sources into one segment. Documents
// keep their relative order: those of sources[0] first, then sources[1],
// and so on. It returns the encoded bytes and the number of documents.
func (w *Writer) Merge(sources []MergeSource) ([]byte, uint32, error) {
	var (
		docCount uint32
		stored   []*schema.Document
		fast     []*schema.Document
		sizeHint int
		// remaps[i][doc] is the new ordinal of doc in sources[i], or -1.
		remaps = make([][]int64, len(sources))
		fields = make(map[uint32]struct{})
	)
	for i, src := range sources {
		r := src.Reader
		remap := make([]int64, r.DocCount())
		for doc := uint32(0); doc < r.DocCount(); doc++ {
			if src.Deleted.Contains(doc) {
				remap[doc] = -1
				continue
			}
			sd, err := r.Document(doc)
			if err != nil {
				return nil, 0, err
			}
			fd, err := r.fast.document(doc)
			if err != nil {
				return nil, 0, corrupt("fast document %d: %v", doc, err)
			}
			remap[doc] = int64(docCount)
			stored = append(stored, sd)
			fast = append(fast, fd)
			docCount++
		}
		remaps[i] = remap
		for field := range r.lengths {
			fields[field] = struct{}{}
		}
		sizeHint += r.Size()
	}
	if docCount == 0 {
		return nil, 0, fmt.Errorf("cannot merge segments without live documents")
	}

	lengths := make(map[uint32][]uint32, len(fields))
	for field := range fields {
		out := make([]uint32, 0, docCount)
		for i, src := range sources {
			for doc, ord := range remaps[i] {
				if ord >= 0 {
					out = append(out, src.Reader.FieldLength(field, uint32(doc)))
				}
			}
		}
		lengths[field] = out
	}

	terms := make(map[string]index.PostingList)
	for i, src := range sources {
		for _, key := range src.Reader.keys {
			postings, err := src.Reader.Search(key)
			if err != nil {
				return nil, 0, err
			}
			for _, p := range postings {
				if int(p.Doc) >= len(remaps[i]) {
					return nil, 0, corrupt("posting of doc %d beyond %d docs", p.Doc, len(remaps[i]))
				}
				ord := remaps[i][p.Doc]
				if ord < 0 {
					continue
				}
				p.Doc = uint32(ord)
				terms[key] = append(terms[key], p)
			}
		}
	}
	entries := make([]index.TermEntry, 0, len(terms))
	for key, postings := range terms {
		entries = append(entries, index.TermEntry{Key: key, Postings: postings})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	data, err := w.encode(contents{
		entries:  entries,
		docCount: docCount,
		lengths:  lengths,
		stored:   stored,
		fast:     fast,
		sizeHint: sizeHint,
	})
	if err != nil {
		return nil, 0, err
	}
	return data, docCount, nil
}
