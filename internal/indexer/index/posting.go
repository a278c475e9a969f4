package index

// Posting records one document's occurrences of a term. Doc is the document
// ordinal inside its segment.
type Posting struct {
	Doc       uint32
	Frequency uint32
	Positions []uint32
}

type PostingList []Posting

// TermEntry is a dictionary key with its postings in ascending Doc order.
type TermEntry struct {
	Key      string
	Postings PostingList
}

// Docs returns the document ordinals of the list.
func (pl PostingList) Docs() []uint32 {
	out := make([]uint32, len(pl))
	for i, p := range pl {
		out[i] = p.Doc
	}
	return out
}
