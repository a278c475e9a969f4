package segment

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/analysis"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/storage"
)

func buildIndex(t *testing.T) *index.MemoryIndex {
	t.Helper()
	b := schema.NewBuilder()
	_, err := b.AddTextField("title", true, true)
	require.NoError(t, err)
	_, err = b.AddI64Field("year", true, false, true)
	require.NoError(t, err)
	_, err = b.AddF64Field("score", true, false, false)
	require.NoError(t, err)
	_, err = b.AddBytesField("blob", true, false, false)
	require.NoError(t, err)
	s, err := b.Build()
	require.NoError(t, err)

	m := index.NewMemoryIndex(s, analysis.NewEnglish())
	d1 := schema.NewDocument()
	d1.Add(0, schema.Str("Rust patterns"))
	d1.Add(1, schema.I64(2021))
	d1.Add(2, schema.F64(math.NaN()))
	d1.Add(3, schema.BytesValue([]byte{0, 1, 2}))
	m.AddDocument(d1)

	d2 := schema.NewDocument()
	d2.Add(0, schema.Str("Go concurrency"))
	d2.Add(0, schema.Str("rust interop"))
	d2.Add(1, schema.I64(-7))
	d2.Add(2, schema.F64(0.5))
	m.AddDocument(d2)
	return m
}

func TestSegmentRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			m := buildIndex(t)
			data, err := NewWriter(c).Encode(m)
			require.NoError(t, err)

			r, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, uint32(2), r.DocCount())
			assert.Equal(t, c, r.Header().Compression)
			assert.Equal(t, len(m.Snapshot()), r.Terms())

			rust, err := r.Search(index.TokenKey(0, "rust"))
			require.NoError(t, err)
			require.Len(t, rust, 2)
			assert.Equal(t, uint32(0), rust[0].Doc)
			assert.Equal(t, uint32(1), rust[1].Doc)
			assert.Equal(t, []uint32{3}, rust[1].Positions)
			assert.Equal(t, 2, r.DocFreq(index.TokenKey(0, "rust")))

			missing, err := r.Search(index.TokenKey(0, "python"))
			require.NoError(t, err)
			assert.Nil(t, missing)
			assert.Zero(t, r.DocFreq(index.TokenKey(0, "python")))

			assert.Equal(t, uint32(2), r.FieldLength(0, 0))
			assert.Equal(t, uint32(4), r.FieldLength(0, 1))
			assert.Equal(t, uint64(6), r.TotalFieldLength(0))

			doc, err := r.Document(0)
			require.NoError(t, err)
			title := doc.Get(0)
			require.Len(t, title, 1)
			assert.True(t, title[0].Equal(schema.Str("Rust patterns")))
			assert.True(t, doc.Get(2)[0].Equal(schema.F64(math.NaN())))
			assert.True(t, doc.Get(3)[0].Equal(schema.BytesValue([]byte{0, 1, 2})))

			doc, err = r.Document(1)
			require.NoError(t, err)
			assert.Len(t, doc.Get(0), 2)
			assert.True(t, doc.Get(1)[0].Equal(schema.I64(-7)))

			fast, err := r.FastValues(1, 1)
			require.NoError(t, err)
			require.Len(t, fast, 1)
			assert.True(t, fast[0].Equal(schema.I64(-7)))

			_, err = r.Document(2)
			assert.ErrorIs(t, err, apperrors.ErrCorrupt)
		})
	}
}

func TestDecodeDetectsCorruption(t *testing.T) {
	data, err := NewWriter(CompressionZSTD).Encode(buildIndex(t))
	require.NoError(t, err)

	flipped := append([]byte(nil), data...)
	flipped[HeaderSize+1] ^= 0xff
	_, err = Decode(flipped)
	assert.ErrorIs(t, err, apperrors.ErrCorrupt)

	badMagic := append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(badMagic[0:4], 0xdeadbeef)
	_, err = Decode(badMagic)
	assert.ErrorIs(t, err, apperrors.ErrCorrupt)

	_, err = Decode(data[:10])
	assert.ErrorIs(t, err, apperrors.ErrCorrupt)
}

func TestEncodeRejectsEmptyIndex(t *testing.T) {
	s, err := schema.NewBuilder().Build()
	require.NoError(t, err)
	_, err = NewWriter(CompressionZSTD).Encode(index.NewMemoryIndex(s, analysis.NewSimple()))
	assert.Error(t, err)
}

func TestWriterStoresIntoDirectory(t *testing.T) {
	dir := storage.NewMemory()
	n, err := NewWriter(CompressionZSTD).Write(dir, "00ab", buildIndex(t))
	require.NoError(t, err)

	r, err := OpenReader(dir, "00ab")
	require.NoError(t, err)
	assert.Equal(t, n, r.Size())

	_, err = OpenReader(dir, "ffff")
	assert.True(t, storage.IsNotExist(err))
}

func TestTombstonesRoundTrip(t *testing.T) {
	var none *Tombstones
	assert.False(t, none.Contains(3))
	assert.Zero(t, none.Cardinality())

	ts := none.Clone()
	assert.Equal(t, 2, ts.Add(1, 5, 5))
	assert.True(t, ts.Contains(5))

	dir := storage.NewMemory()
	require.NoError(t, WriteTombstones(dir, "00ab", 3, ts))
	ok, err := dir.Exists("seg_00ab.3.del")
	require.NoError(t, err)
	assert.True(t, ok)

	loaded, err := ReadTombstones(dir, "00ab", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Cardinality())
	assert.True(t, loaded.Contains(1))
	assert.False(t, loaded.Contains(2))

	clone := loaded.Clone()
	clone.Add(2)
	assert.False(t, loaded.Contains(2))
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("")
	require.NoError(t, err)
	assert.Equal(t, CompressionZSTD, c)
	c, err = ParseCompression("LZ4")
	require.NoError(t, err)
	assert.Equal(t, CompressionLZ4, c)
	_, err = ParseCompression("snappy")
	assert.Error(t, err)
}

func TestMergeDropsDeletedAndRenumbers(t *testing.T) {
	w := NewWriter(CompressionLZ4)
	decode := func() *Reader {
		data, err := w.Encode(buildIndex(t))
		require.NoError(t, err)
		r, err := Decode(data)
		require.NoError(t, err)
		return r
	}
	first, second := decode(), decode()
	deleted := NewTombstones()
	deleted.Add(0)

	data, n, err := w.Merge([]MergeSource{{Reader: first, Deleted: deleted}, {Reader: second}})
	require.NoError(t, err)
	assert.Equal(t, uint32(3), n)

	r, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), r.DocCount())
	assert.Equal(t, first.Terms(), r.Terms())

	rust, err := r.Search(index.TokenKey(0, "rust"))
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, rust.Docs())
	assert.Equal(t, []uint32{3}, rust[0].Positions)
	assert.Equal(t, 3, r.DocFreq(index.TokenKey(0, "rust")))

	assert.Equal(t, uint32(4), r.FieldLength(0, 0))
	assert.Equal(t, uint32(2), r.FieldLength(0, 1))
	assert.Equal(t, uint32(4), r.FieldLength(0, 2))
	assert.Equal(t, uint64(10), r.TotalFieldLength(0))

	doc, err := r.Document(1)
	require.NoError(t, err)
	assert.True(t, doc.Get(0)[0].Equal(schema.Str("Rust patterns")))
	fast, err := r.FastValues(1, 2)
	require.NoError(t, err)
	require.Len(t, fast, 1)
	assert.True(t, fast[0].Equal(schema.I64(-7)))
}

func TestMergeRejectsFullyDeletedInput(t *testing.T) {
	w := NewWriter(CompressionNone)
	data, err := w.Encode(buildIndex(t))
	require.NoError(t, err)
	r, err := Decode(data)
	require.NoError(t, err)
	deleted := NewTombstones()
	deleted.Add(0, 1)

	_, _, err = w.Merge([]MergeSource{{Reader: r, Deleted: deleted}})
	assert.Error(t, err)
}
