package segment

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
)

var errTruncated = errors.New("truncated data")

// docBlock is a sequence of documents addressable by ordinal. Layout:
// uvarint count, count uvarint lengths, then the encoded documents.
type docBlock struct {
	data   []byte
	bounds []int
}

func encodeDocBlock(docs []*schema.Document) []byte {
	encoded := make([][]byte, len(docs))
	total := 0
	for i, d := range docs {
		encoded[i] = appendDocument(nil, d)
		total += len(encoded[i])
	}
	buf := make([]byte, 0, total+binary.MaxVarintLen64*(len(docs)+1))
	buf = binary.AppendUvarint(buf, uint64(len(docs)))
	for _, e := range encoded {
		buf = binary.AppendUvarint(buf, uint64(len(e)))
	}
	for _, e := range encoded {
		buf = append(buf, e...)
	}
	return buf
}

func decodeDocBlock(data []byte, expected uint32) (docBlock, error) {
	r := byteReader{buf: data}
	count, err := r.uvarint()
	if err != nil {
		return docBlock{}, err
	}
	if count != uint64(expected) {
		return docBlock{}, fmt.Errorf("document block holds %d docs, want %d", count, expected)
	}
	lengths := make([]uint64, count)
	for i := range lengths {
		if lengths[i], err = r.uvarint(); err != nil {
			return docBlock{}, err
		}
	}
	bounds := make([]int, count+1)
	bounds[0] = r.pos
	for i, l := range lengths {
		bounds[i+1] = bounds[i] + int(l)
	}
	if bounds[count] > len(data) {
		return docBlock{}, errTruncated
	}
	return docBlock{data: data, bounds: bounds}, nil
}

func (b docBlock) document(ord uint32) (*schema.Document, error) {
	if int(ord)+1 >= len(b.bounds) {
		return nil, fmt.Errorf("document %d out of range", ord)
	}
	return decodeDocument(b.data[b.bounds[ord]:b.bounds[ord+1]])
}

func appendDocument(buf []byte, d *schema.Document) []byte {
	ids := d.FieldIDs()
	buf = binary.AppendUvarint(buf, uint64(len(ids)))
	for _, id := range ids {
		vals := d.Get(id)
		buf = binary.AppendUvarint(buf, uint64(id))
		buf = binary.AppendUvarint(buf, uint64(len(vals)))
		for _, v := range vals {
			buf = appendValue(buf, v)
		}
	}
	return buf
}

func appendValue(buf []byte, v schema.Value) []byte {
	buf = append(buf, byte(v.Type()))
	switch v.Type() {
	case schema.Text:
		s, _ := v.Str()
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	case schema.Integer64:
		i, _ := v.I64()
		buf = binary.AppendVarint(buf, i)
	case schema.Float64:
		f, _ := v.F64()
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
	case schema.Bytes:
		b, _ := v.Bytes()
		buf = binary.AppendUvarint(buf, uint64(len(b)))
		buf = append(buf, b...)
	}
	return buf
}

func decodeDocument(data []byte) (*schema.Document, error) {
	r := byteReader{buf: data}
	d := schema.NewDocument()
	nfields, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < nfields; i++ {
		id, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		nvals, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		for j := uint64(0); j < nvals; j++ {
			v, err := r.value()
			if err != nil {
				return nil, err
			}
			d.Add(uint32(id), v)
		}
	}
	return d, nil
}

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, errTruncated
	}
	r.pos += n
	return v, nil
}

func (r *byteReader) varint() (int64, error) {
	v, n := binary.Varint(r.buf[r.pos:])
	if n <= 0 {
		return 0, errTruncated
	}
	r.pos += n
	return v, nil
}

func (r *byteReader) bytes(n uint64) ([]byte, error) {
	if uint64(len(r.buf)-r.pos) < n {
		return nil, errTruncated
	}
	out := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return out, nil
}

func (r *byteReader) value() (schema.Value, error) {
	tag, err := r.bytes(1)
	if err != nil {
		return schema.Value{}, err
	}
	switch schema.FieldType(tag[0]) {
	case schema.Text:
		n, err := r.uvarint()
		if err != nil {
			return schema.Value{}, err
		}
		b, err := r.bytes(n)
		if err != nil {
			return schema.Value{}, err
		}
		return schema.Str(string(b)), nil
	case schema.Integer64:
		i, err := r.varint()
		if err != nil {
			return schema.Value{}, err
		}
		return schema.I64(i), nil
	case schema.Float64:
		b, err := r.bytes(8)
		if err != nil {
			return schema.Value{}, err
		}
		return schema.F64(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case schema.Bytes:
		n, err := r.uvarint()
		if err != nil {
			return schema.Value{}, err
		}
		b, err := r.bytes(n)
		if err != nil {
			return schema.Value{}, err
		}
		return schema.BytesValue(b), nil
	}
	return schema.Value{}, fmt.Errorf("unknown value tag %d", tag[0])
}
