package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/storage"
)

// Reader gives read-only access to one decoded segment. It is immutable and
// safe for concurrent use.
type Reader struct {
	header   SegmentHeader
	dict     []DictEntry
	keys     []string
	postings []byte
	lengths  map[uint32][]uint32
	totals   map[uint32]uint64
	store    docBlock
	fast     docBlock
	size     int
}

// OpenReader loads FileName(id) from dir.
func OpenReader(dir storage.Directory, id string) (*Reader, error) {
	data, err := dir.ReadFile(FileName(id))
	if err != nil {
		return nil, fmt.Errorf("opening segment %s: %w", id, err)
	}
	r, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", id, err)
	}
	return r, nil
}

// Decode validates and parses segment bytes. Corruption is reported as
// apperrors.ErrCorrupt.
func Decode(data []byte) (*Reader, error) {
	if len(data) < HeaderSize+FooterSize {
		return nil, corrupt("file too small: %d bytes", len(data))
	}
	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != MagicBytes {
		return nil, corrupt("bad magic bytes %x", magic)
	}
	header := SegmentHeader{
		Magic:       magic,
		Version:     binary.LittleEndian.Uint32(data[4:8]),
		TermCount:   binary.LittleEndian.Uint32(data[8:12]),
		DocCount:    binary.LittleEndian.Uint32(data[12:16]),
		CreatedAt:   int64(binary.LittleEndian.Uint64(data[16:24])),
		Compression: Compression(data[24]),
	}
	if header.Version != FormatVersion {
		return nil, corrupt("unsupported format version %d", header.Version)
	}

	footer := data[len(data)-FooterSize:]
	if tail := binary.LittleEndian.Uint32(footer[FooterSize-4:]); tail != MagicBytes {
		return nil, corrupt("bad footer magic %x", tail)
	}
	want := binary.LittleEndian.Uint32(footer[FooterSize-8:])
	if got := crc32.ChecksumIEEE(data[:len(data)-8]); got != want {
		return nil, corrupt("checksum mismatch: got %08x, want %08x", got, want)
	}

	var sections [numSections][]byte
	limit := uint64(len(data) - FooterSize)
	for i := range sections {
		off := binary.LittleEndian.Uint64(footer[i*16:])
		size := binary.LittleEndian.Uint64(footer[i*16+8:])
		if off < uint64(HeaderSize) || off+size > limit || off+size < off {
			return nil, corrupt("section %d out of bounds", i)
		}
		sections[i] = data[off : off+size]
	}

	var dict []DictEntry
	if err := json.Unmarshal(sections[sectionDict], &dict); err != nil {
		return nil, corrupt("parsing dictionary: %v", err)
	}
	keys := make([]string, len(dict))
	for i, e := range dict {
		keys[i] = string(e.Key)
	}

	lengths, totals, err := decodeLengths(sections[sectionLengths], header.DocCount)
	if err != nil {
		return nil, corrupt("decoding field lengths: %v", err)
	}

	raw, err := decompressBlock(sections[sectionStore], header.Compression)
	if err != nil {
		return nil, corrupt("decompressing stored documents: %v", err)
	}
	store, err := decodeDocBlock(raw, header.DocCount)
	if err != nil {
		return nil, corrupt("decoding stored documents: %v", err)
	}
	fast, err := decodeDocBlock(sections[sectionFast], header.DocCount)
	if err != nil {
		return nil, corrupt("decoding fast fields: %v", err)
	}

	return &Reader{
		header:   header,
		dict:     dict,
		keys:     keys,
		postings: sections[sectionPostings],
		lengths:  lengths,
		totals:   totals,
		store:    store,
		fast:     fast,
		size:     len(data),
	}, nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrCorrupt, fmt.Sprintf(format, args...))
}

func (r *Reader) lookup(key string) (DictEntry, bool) {
	idx := sort.SearchStrings(r.keys, key)
	if idx >= len(r.keys) || r.keys[idx] != key {
		return DictEntry{}, false
	}
	return r.dict[idx], true
}

// Search returns the postings of key, or nil if the segment lacks it.
func (r *Reader) Search(key string) (index.PostingList, error) {
	entry, ok := r.lookup(key)
	if !ok {
		return nil, nil
	}
	end := entry.PostOffset + int64(entry.PostLen)
	if entry.PostOffset < 0 || end > int64(len(r.postings)) {
		return nil, corrupt("postings of term out of bounds")
	}
	postings, err := decodePostings(r.postings[entry.PostOffset:end])
	if err != nil {
		return nil, corrupt("decoding postings: %v", err)
	}
	return postings, nil
}

// DocFreq is the number of documents containing key, deleted ones included.
func (r *Reader) DocFreq(key string) int {
	entry, ok := r.lookup(key)
	if !ok {
		return 0
	}
	return entry.DocFreq
}

// FieldLength is the number of indexed occurrences of field in doc.
func (r *Reader) FieldLength(field, doc uint32) uint32 {
	l := r.lengths[field]
	if int(doc) >= len(l) {
		return 0
	}
	return l[doc]
}

// TotalFieldLength sums FieldLength over every document.
func (r *Reader) TotalFieldLength(field uint32) uint64 {
	return r.totals[field]
}

// Document returns the stored fields of doc.
func (r *Reader) Document(doc uint32) (*schema.Document, error) {
	d, err := r.store.document(doc)
	if err != nil {
		return nil, corrupt("stored document %d: %v", doc, err)
	}
	return d, nil
}

// FastValues returns the fast-field column values of field for doc.
func (r *Reader) FastValues(field, doc uint32) ([]schema.Value, error) {
	d, err := r.fast.document(doc)
	if err != nil {
		return nil, corrupt("fast document %d: %v", doc, err)
	}
	return d.Get(field), nil
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Header() SegmentHeader {
	return r.header
}

// Size is the encoded size in bytes.
func (r *Reader) Size() int {
	return r.size
}

func decodePostings(data []byte) (index.PostingList, error) {
	br := byteReader{buf: data}
	count, err := br.uvarint()
	if err != nil {
		return nil, err
	}
	if count > uint64(len(data)) {
		return nil, errTruncated
	}
	out := make(index.PostingList, 0, count)
	var doc uint32
	for i := uint64(0); i < count; i++ {
		delta, err := br.uvarint()
		if err != nil {
			return nil, err
		}
		doc += uint32(delta)
		freq, err := br.uvarint()
		if err != nil {
			return nil, err
		}
		npos, err := br.uvarint()
		if err != nil {
			return nil, err
		}
		if npos > uint64(len(data)) {
			return nil, errTruncated
		}
		var positions []uint32
		if npos > 0 {
			positions = make([]uint32, npos)
			var pos uint32
			for j := range positions {
				d, err := br.uvarint()
				if err != nil {
					return nil, err
				}
				pos += uint32(d)
				positions[j] = pos
			}
		}
		out = append(out, index.Posting{Doc: doc, Frequency: uint32(freq), Positions: positions})
	}
	return out, nil
}

func decodeLengths(data []byte, docCount uint32) (map[uint32][]uint32, map[uint32]uint64, error) {
	br := byteReader{buf: data}
	nfields, err := br.uvarint()
	if err != nil {
		return nil, nil, err
	}
	lengths := make(map[uint32][]uint32)
	totals := make(map[uint32]uint64)
	for i := uint64(0); i < nfields; i++ {
		id, err := br.uvarint()
		if err != nil {
			return nil, nil, err
		}
		n, err := br.uvarint()
		if err != nil {
			return nil, nil, err
		}
		if n != uint64(docCount) {
			return nil, nil, fmt.Errorf("field %d has %d lengths, want %d", id, n, docCount)
		}
		vals := make([]uint32, n)
		var total uint64
		for j := range vals {
			l, err := br.uvarint()
			if err != nil {
				return nil, nil, err
			}
			vals[j] = uint32(l)
			total += l
		}
		lengths[uint32(id)] = vals
		totals[uint32(id)] = total
	}
	return lengths, totals, nil
}

func sortUint32(ids []uint32) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
