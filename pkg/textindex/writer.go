package textindex

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/storage"
)

type writerState uint8

const (
	writerActive writerState = iota
	writerCommitted
	writerDiscarded
)

func (s writerState) String() string {
	switch s {
	case writerActive:
		return "active"
	case writerCommitted:
		return "committed"
	case writerDiscarded:
		return "discarded"
	}
	return "unknown"
}

// pendingSegment is a flushed segment not yet referenced by meta.json.
type pendingSegment struct {
	id         string
	reader     *segment.Reader
	tombstones *segment.Tombstones
}

// Writer is a single ingestion session. Nothing it does is visible to
// searchers until Commit succeeds. After Commit or Discard every mutation
// fails with ErrWriterConsumed. Writer is safe for concurrent use.
type Writer struct {
	idx        *Index
	logger     *slog.Logger
	base       *generation
	heapBudget int64

	mu         sync.Mutex
	state      writerState
	mem        *index.MemoryIndex
	memDeleted *segment.Tombstones
	flushed    []*pendingSegment
	// deletes holds the updated tombstones of committed segments touched in
	// this session, keyed by segment id.
	deletes map[string]*segment.Tombstones
	ops     int
	added   int
}

func newWriter(idx *Index, heapBudget int64, base *generation) *Writer {
	return &Writer{
		idx:        idx,
		logger:     idx.logger.With("writer_base_opstamp", base.opstamp),
		base:       base,
		heapBudget: heapBudget,
		mem:        index.NewMemoryIndex(idx.schema, idx.opts.analyzer),
		deletes:    make(map[string]*segment.Tombstones),
	}
}

// AddDocument validates fields against the schema and buffers the result.
// Dropped fields are listed in the report; they never fail the call.
func (w *Writer) AddDocument(fields map[string]any) (AddReport, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != writerActive {
		return AddReport{}, fmt.Errorf("%w: writer is %s", apperrors.ErrWriterConsumed, w.state)
	}

	doc, report := BuildDocument(w.idx.schema, fields)
	w.mem.AddDocument(doc)
	w.ops++
	w.added++
	w.idx.opts.metrics.AddDocument(len(report.Skipped))
	if len(report.Skipped) > 0 {
		w.logger.Debug("fields skipped during ingestion", "skipped", report.Skipped)
	}

	if w.mem.Size() > w.heapBudget {
		if err := w.flush(); err != nil {
			return report, err
		}
	}
	return report, nil
}

// DeleteByTerm marks every committed document, and every document added
// earlier in this session, that matches the term. Documents added after the
// call are not affected.
func (w *Writer) DeleteByTerm(field, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != writerActive {
		return fmt.Errorf("%w: writer is %s", apperrors.ErrWriterConsumed, w.state)
	}

	term, err := NewTerm(w.idx.schema, w.idx.opts.analyzer, field, value)
	if err != nil {
		return err
	}
	keys := term.keys

	matched := 0
	for _, seg := range w.base.segments {
		docs, err := matchReader(seg.reader, keys)
		if err != nil {
			return fmt.Errorf("%w: matching segment %s: %w", apperrors.ErrStorage, seg.meta.ID, err)
		}
		if len(docs) == 0 {
			continue
		}
		ts, ok := w.deletes[seg.meta.ID]
		if !ok {
			ts = seg.tombstones.Clone()
			w.deletes[seg.meta.ID] = ts
		}
		matched += ts.Add(docs...)
	}
	for _, p := range w.flushed {
		docs, err := matchReader(p.reader, keys)
		if err != nil {
			return fmt.Errorf("%w: matching segment %s: %w", apperrors.ErrStorage, p.id, err)
		}
		if len(docs) == 0 {
			continue
		}
		if p.tombstones == nil {
			p.tombstones = segment.NewTombstones()
		}
		matched += p.tombstones.Add(docs...)
	}
	if docs := w.mem.Match(keys, uint32(w.mem.DocCount())); len(docs) > 0 {
		if w.memDeleted == nil {
			w.memDeleted = segment.NewTombstones()
		}
		matched += w.memDeleted.Add(docs...)
	}

	w.ops++
	w.idx.opts.metrics.Delete()
	w.logger.Debug("delete by term", "field", field, "value", value, "matched", matched)
	return nil
}

func matchReader(r *segment.Reader, keys []string) ([]uint32, error) {
	var docs []uint32
	for _, key := range keys {
		postings, err := r.Search(key)
		if err != nil {
			return nil, err
		}
		docs = append(docs, postings.Docs()...)
	}
	return docs, nil
}

// flush encodes the buffered documents into a segment file that stays
// invisible until commit. The buffer is kept when writing fails.
func (w *Writer) flush() error {
	if w.mem.DocCount() == 0 {
		return nil
	}
	id, err := newSegmentID()
	if err != nil {
		return err
	}
	data, err := segment.NewWriter(w.idx.opts.compression).Encode(w.mem)
	if err != nil {
		w.idx.opts.metrics.Flush(err)
		return fmt.Errorf("encoding segment %s: %w", id, err)
	}
	if err := w.idx.dir.WriteFile(segment.FileName(id), data); err != nil {
		w.idx.opts.metrics.Flush(err)
		w.removeFile(segment.FileName(id))
		return fmt.Errorf("%w: flushing segment %s: %w", apperrors.ErrStorage, id, err)
	}
	reader, err := segment.Decode(data)
	if err != nil {
		w.idx.opts.metrics.Flush(err)
		w.removeFile(segment.FileName(id))
		return fmt.Errorf("decoding flushed segment %s: %w", id, err)
	}
	w.idx.opts.metrics.Flush(nil)

	w.flushed = append(w.flushed, &pendingSegment{id: id, reader: reader, tombstones: w.memDeleted})
	w.logger.Info("segment flushed",
		"segment", id,
		"docs", reader.DocCount(),
		"terms", reader.Terms(),
		"bytes", len(data),
	)
	w.mem.Reset()
	w.memDeleted = nil
	return nil
}

// Commit makes every buffered operation visible atomically and returns the
// new opstamp. A commit without operations still advances the opstamp. On
// failure the previous commit stays in force and the writer is discarded.
func (w *Writer) Commit() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != writerActive {
		return 0, fmt.Errorf("%w: writer is %s", apperrors.ErrWriterConsumed, w.state)
	}

	start := time.Now()
	opstamp, err := w.commit()
	w.idx.opts.metrics.ObserveCommit(err, time.Since(start))
	if err != nil {
		w.logger.Error("commit failed", "error", err)
		w.abort()
		return 0, fmt.Errorf("%w: %w", apperrors.ErrCommitFailed, err)
	}
	w.state = writerCommitted
	w.idx.writerBusy.Store(false)
	return opstamp, nil
}

func (w *Writer) commit() (uint64, error) {
	if w.idx.closed.Load() {
		return 0, apperrors.ErrIndexClosed
	}
	if err := w.flush(); err != nil {
		return 0, err
	}

	opstamp := max(w.base.opstamp, w.idx.uncertain.Load()) + 1
	next := &generation{opstamp: opstamp}
	var written []string
	fail := func(err error) (uint64, error) {
		for _, name := range written {
			w.removeFile(name)
		}
		return 0, err
	}

	for _, seg := range w.base.segments {
		st := seg
		if ts, ok := w.deletes[seg.meta.ID]; ok && ts.Cardinality() != seg.tombstones.Cardinality() {
			if err := segment.WriteTombstones(w.idx.dir, seg.meta.ID, opstamp, ts); err != nil {
				return fail(fmt.Errorf("%w: %w", apperrors.ErrStorage, err))
			}
			written = append(written, segment.TombstoneFileName(seg.meta.ID, opstamp))
			meta := seg.meta
			meta.DelGen = opstamp
			meta.NumDeleted = ts.Cardinality()
			st = &segmentState{meta: meta, reader: seg.reader, tombstones: ts}
		}
		if st.meta.live() > 0 {
			next.segments = append(next.segments, st)
		}
	}

	for _, p := range w.flushed {
		st := &segmentState{
			meta:   SegmentMeta{ID: p.id, NumDocs: p.reader.DocCount()},
			reader: p.reader,
		}
		if n := p.tombstones.Cardinality(); n > 0 {
			if err := segment.WriteTombstones(w.idx.dir, p.id, opstamp, p.tombstones); err != nil {
				return fail(fmt.Errorf("%w: %w", apperrors.ErrStorage, err))
			}
			written = append(written, segment.TombstoneFileName(p.id, opstamp))
			st.meta.DelGen = opstamp
			st.meta.NumDeleted = n
			st.tombstones = p.tombstones
		}
		if st.meta.live() > 0 {
			next.segments = append(next.segments, st)
		}
	}

	merged, err := w.mergeSegments(next.segments, &written)
	if err != nil {
		return fail(err)
	}
	next.segments = merged

	m := next.manifest(w.idx.schema)
	if err := saveManifest(w.idx.dir, m); err != nil {
		if !storage.IsIndeterminate(err) {
			return fail(err)
		}
		// meta.json may be live on disk, so every file it names has to
		// survive. Collection after the next commit or open reclaims them.
		w.idx.uncertain.Store(opstamp)
		w.flushed = nil
		w.logger.Warn("manifest write outcome unknown, keeping session files",
			"opstamp", opstamp, "error", err)
		return 0, err
	}

	w.idx.publish(next)
	w.idx.collectGarbage(m)

	w.logger.Info("commit complete",
		"opstamp", opstamp,
		"ops", w.ops,
		"added", w.added,
		"new_segments", len(w.flushed),
		"segments", len(next.segments),
		"docs", next.liveDocs(),
	)
	w.flushed = nil
	return opstamp, nil
}

// Discard drops every buffered operation, removes flushed segment files and
// releases the writer slot. It is a no-op once the writer is consumed.
func (w *Writer) Discard() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != writerActive {
		return
	}
	w.logger.Info("writer discarded", "ops", w.ops)
	w.abort()
}

func (w *Writer) abort() {
	for _, p := range w.flushed {
		w.removeFile(segment.FileName(p.id))
	}
	w.flushed = nil
	w.mem.Reset()
	w.memDeleted = nil
	w.deletes = nil
	w.state = writerDiscarded
	w.idx.writerBusy.Store(false)
}

func (w *Writer) removeFile(name string) {
	if err := w.idx.dir.Remove(name); err != nil {
		w.logger.Warn("removing file failed", "file", name, "error", err)
	}
}

// Pending returns the number of buffered operations.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ops
}

// BaseOpstamp returns the opstamp the session started from.
func (w *Writer) BaseOpstamp() uint64 {
	return w.base.opstamp
}
