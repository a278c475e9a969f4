// Package segment encodes buffered documents into immutable segment files
// and reads them back. A segment file is laid out as
//
//	header | postings | dictionary | field lengths | stored docs | fast docs | footer
//
// The footer carries the section table and a CRC32 of everything before it.
package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/storage"
)

// MagicBytes identifies a valid .spdx segment file.
const (
	MagicBytes    uint32 = 0x53504458
	FormatVersion uint32 = 2
	HeaderSize    int    = 32
	FooterSize    int    = numSections*16 + 8
)

const (
	sectionPostings = iota
	sectionDict
	sectionLengths
	sectionStore
	sectionFast
	numSections
)

// SegmentHeader is the fixed header written at the start of every segment.
type SegmentHeader struct {
	Magic       uint32
	Version     uint32
	TermCount   uint32
	DocCount    uint32
	CreatedAt   int64
	Compression Compression
}

// DictEntry maps a term key to its postings offset, length, and document
// frequency in the segment file.
type DictEntry struct {
	Key        []byte `json:"k"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

type section struct {
	offset uint64
	size   uint64
}

// FileName is the directory entry of segment id.
func FileName(id string) string {
	return "seg_" + id + ".spdx"
}

// Writer serialises a MemoryIndex into segment files.
type Writer struct {
	compression Compression
}

func NewWriter(c Compression) *Writer {
	return &Writer{compression: c}
}

// Write encodes m and stores it in dir under FileName(id). It returns the
// encoded size.
func (w *Writer) Write(dir storage.Directory, id string, m *index.MemoryIndex) (int, error) {
	data, err := w.Encode(m)
	if err != nil {
		return 0, err
	}
	if err := dir.WriteFile(FileName(id), data); err != nil {
		return 0, fmt.Errorf("writing segment %s: %w", id, err)
	}
	return len(data), nil
}

// Encode returns the segment bytes for m.
func (w *Writer) Encode(m *index.MemoryIndex) ([]byte, error) {
	if m.DocCount() == 0 {
		return nil, fmt.Errorf("cannot write empty segment")
	}
	return w.encode(contents{
		entries:  m.Snapshot(),
		docCount: uint32(m.DocCount()),
		lengths:  m.FieldLengths(),
		stored:   m.StoredDocuments(),
		fast:     m.FastDocuments(),
		sizeHint: int(m.Size()),
	})
}

// contents is everything a segment file carries, in document order.
type contents struct {
	entries  []index.TermEntry
	docCount uint32
	lengths  map[uint32][]uint32
	stored   []*schema.Document
	fast     []*schema.Document
	sizeHint int
}

func (w *Writer) encode(c contents) ([]byte, error) {
	header := SegmentHeader{
		Magic:       MagicBytes,
		Version:     FormatVersion,
		TermCount:   uint32(len(c.entries)),
		DocCount:    c.docCount,
		CreatedAt:   time.Now().Unix(),
		Compression: w.compression,
	}

	buf := make([]byte, HeaderSize, HeaderSize+c.sizeHint)
	binary.LittleEndian.PutUint32(buf[0:4], header.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], header.Version)
	binary.LittleEndian.PutUint32(buf[8:12], header.TermCount)
	binary.LittleEndian.PutUint32(buf[12:16], header.DocCount)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(header.CreatedAt))
	buf[24] = byte(header.Compression)

	var sections [numSections]section

	postingsStart := len(buf)
	dict := make([]DictEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		offset := len(buf) - postingsStart
		buf = appendPostings(buf, entry.Postings)
		dict = append(dict, DictEntry{
			Key:        []byte(entry.Key),
			PostOffset: int64(offset),
			PostLen:    len(buf) - postingsStart - offset,
			DocFreq:    len(entry.Postings),
		})
	}
	sections[sectionPostings] = section{uint64(postingsStart), uint64(len(buf) - postingsStart)}

	dictData, err := json.Marshal(dict)
	if err != nil {
		return nil, fmt.Errorf("marshaling dictionary: %w", err)
	}
	sections[sectionDict] = section{uint64(len(buf)), uint64(len(dictData))}
	buf = append(buf, dictData...)

	lengths := encodeLengths(c.lengths)
	sections[sectionLengths] = section{uint64(len(buf)), uint64(len(lengths))}
	buf = append(buf, lengths...)

	store, err := compressBlock(encodeDocBlock(c.stored), w.compression)
	if err != nil {
		return nil, fmt.Errorf("compressing stored documents: %w", err)
	}
	sections[sectionStore] = section{uint64(len(buf)), uint64(len(store))}
	buf = append(buf, store...)

	fast := encodeDocBlock(c.fast)
	sections[sectionFast] = section{uint64(len(buf)), uint64(len(fast))}
	buf = append(buf, fast...)

	for _, s := range sections {
		buf = binary.LittleEndian.AppendUint64(buf, s.offset)
		buf = binary.LittleEndian.AppendUint64(buf, s.size)
	}
	checksum := crc32.ChecksumIEEE(buf)
	buf = binary.LittleEndian.AppendUint32(buf, checksum)
	buf = binary.LittleEndian.AppendUint32(buf, MagicBytes)
	return buf, nil
}

// Postings layout: uvarint count, then per posting uvarint doc delta,
// frequency, position count and delta-coded positions.
func appendPostings(buf []byte, postings index.PostingList) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(postings)))
	var prevDoc uint32
	for _, p := range postings {
		buf = binary.AppendUvarint(buf, uint64(p.Doc-prevDoc))
		prevDoc = p.Doc
		buf = binary.AppendUvarint(buf, uint64(p.Frequency))
		buf = binary.AppendUvarint(buf, uint64(len(p.Positions)))
		var prevPos uint32
		for _, pos := range p.Positions {
			buf = binary.AppendUvarint(buf, uint64(pos-prevPos))
			prevPos = pos
		}
	}
	return buf
}

// Lengths layout: uvarint field count, then per field uvarint id, uvarint
// doc count and one uvarint length per document.
func encodeLengths(lengths map[uint32][]uint32) []byte {
	ids := make([]uint32, 0, len(lengths))
	for id := range lengths {
		ids = append(ids, id)
	}
	sortUint32(ids)

	buf := binary.AppendUvarint(nil, uint64(len(ids)))
	for _, id := range ids {
		buf = binary.AppendUvarint(buf, uint64(id))
		buf = binary.AppendUvarint(buf, uint64(len(lengths[id])))
		for _, l := range lengths[id] {
			buf = binary.AppendUvarint(buf, uint64(l))
		}
	}
	return buf
}
