// Package textindex is an embeddable full-text search core. An Index holds
// documents validated against a Schema; a single Writer buffers additions
// and deletions and commits them atomically; Searchers rank documents over
// an immutable snapshot of the committed state.
//
// Committed state is described by meta.json in the index Directory. Segment
// and tombstone files that meta.json does not reference are never read and
// are removed by garbage collection after each commit and on open.
package textindex

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/storage"
)

// Index is safe for concurrent use.
type Index struct {
	dir    storage.Directory
	schema *schema.Schema
	opts   options
	logger *slog.Logger
	exec   *executor.Executor

	mu      sync.RWMutex
	current *generation

	// uncertain is the opstamp of the last commit whose manifest write
	// failed without a known outcome; later commits stamp above it.
	uncertain  atomic.Uint64
	writerBusy atomic.Bool
	closed     atomic.Bool
}

// generation is the immutable in-memory form of one committed manifest.
type generation struct {
	opstamp  uint64
	segments []*segmentState
}

type segmentState struct {
	meta       SegmentMeta
	reader     *segment.Reader
	tombstones *segment.Tombstones
}

func (g *generation) manifest(s *schema.Schema) *Manifest {
	m := &Manifest{Opstamp: g.opstamp, Schema: s, Segments: make([]SegmentMeta, len(g.segments))}
	for i, seg := range g.segments {
		m.Segments[i] = seg.meta
	}
	return m
}

func (g *generation) executorSegments() []executor.Segment {
	out := make([]executor.Segment, len(g.segments))
	for i, seg := range g.segments {
		out[i] = executor.Segment{Ordinal: i, Reader: seg.reader, Tombstones: seg.tombstones}
	}
	return out
}

func (g *generation) liveDocs() int {
	n := 0
	for _, seg := range g.segments {
		n += seg.meta.live()
	}
	return n
}

// Create builds a fresh index held entirely in memory.
func Create(s *schema.Schema, opts ...Option) (*Index, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: a schema is required", apperrors.ErrInvalidConfiguration)
	}
	return Open(storage.NewMemory(), s, opts...)
}

// OpenPath opens or creates an index in the filesystem directory path.
func OpenPath(path string, s *schema.Schema, opts ...Option) (*Index, error) {
	dir, err := storage.OpenFS(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", apperrors.ErrStorage, path, err)
	}
	return Open(dir, s, opts...)
}

// Open loads the index stored in dir, or initialises one with s when dir
// holds no index. When an index exists its stored schema governs; s may be
// nil, and otherwise must be Compatible with it.
func Open(dir storage.Directory, s *schema.Schema, opts ...Option) (*Index, error) {
	if dir == nil {
		return nil, fmt.Errorf("%w: a directory is required", apperrors.ErrInvalidConfiguration)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	idx := &Index{dir: dir, opts: o, logger: o.logger}

	exists, err := dir.Exists(MetaFileName)
	if err != nil {
		return nil, fmt.Errorf("%w: checking %s: %w", apperrors.ErrStorage, MetaFileName, err)
	}

	var m *Manifest
	if exists {
		m, err = loadManifest(dir)
		if err != nil {
			return nil, err
		}
		if s != nil {
			if err := m.Schema.Compatible(s); err != nil {
				return nil, err
			}
			if diff := m.Schema.OptionDiff(s); len(diff) > 0 {
				idx.logger.Warn("supplied schema options differ from stored schema, using stored",
					"fields", diff,
				)
			}
		}
		idx.current, err = loadGeneration(dir, m)
		if err != nil {
			return nil, err
		}
	} else {
		if s == nil {
			return nil, fmt.Errorf("%w: no index found and no schema supplied", apperrors.ErrInvalidConfiguration)
		}
		m = &Manifest{Schema: s, Segments: []SegmentMeta{}}
		if err := saveManifest(dir, m); err != nil {
			return nil, err
		}
		idx.current = &generation{}
	}

	idx.schema = m.Schema
	idx.exec = executor.New(idx.schema, o.analyzer, o.scorer)
	idx.collectGarbage(m)
	idx.publishStats()

	idx.logger.Info("index opened",
		"opstamp", idx.current.opstamp,
		"segments", len(idx.current.segments),
		"docs", idx.current.liveDocs(),
		"created", !exists,
	)
	return idx, nil
}

func loadGeneration(dir storage.Directory, m *Manifest) (*generation, error) {
	g := &generation{opstamp: m.Opstamp, segments: make([]*segmentState, 0, len(m.Segments))}
	for _, meta := range m.Segments {
		reader, err := segment.OpenReader(dir, meta.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: opening segment %s: %w", apperrors.ErrStorage, meta.ID, err)
		}
		if reader.DocCount() != meta.NumDocs {
			return nil, fmt.Errorf("%w: segment %s holds %d docs, manifest records %d",
				apperrors.ErrCorrupt, meta.ID, reader.DocCount(), meta.NumDocs)
		}
		st := &segmentState{meta: meta, reader: reader}
		if meta.DelGen > 0 {
			st.tombstones, err = segment.ReadTombstones(dir, meta.ID, meta.DelGen)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", apperrors.ErrStorage, err)
			}
		}
		g.segments = append(g.segments, st)
	}
	return g, nil
}

// collectGarbage removes segment and tombstone files m does not reference.
// Failures are logged; a leftover file is harmless.
func (idx *Index) collectGarbage(m *Manifest) {
	names, err := idx.dir.List()
	if err != nil {
		idx.logger.Warn("listing index files failed", "error", err)
		return
	}
	keep := m.referencedFiles()
	for _, name := range names {
		if _, ok := keep[name]; ok || !isIndexFile(name) {
			continue
		}
		if err := idx.dir.Remove(name); err != nil {
			idx.logger.Warn("removing unreferenced file failed", "file", name, "error", err)
			continue
		}
		idx.logger.Debug("removed unreferenced file", "file", name)
	}
}

func (idx *Index) snapshot() *generation {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.current
}

func (idx *Index) publish(g *generation) {
	idx.mu.Lock()
	idx.current = g
	idx.mu.Unlock()
	idx.publishStats()
}

func (idx *Index) publishStats() {
	st := idx.Stats()
	idx.opts.metrics.SetIndexStats(len(st.Segments), st.NumDocs, st.NumDeleted)
}

// NewWriter claims the single writer slot. heapBudget bounds the bytes
// buffered before a segment is flushed; 0 selects DefaultHeapBudget.
func (idx *Index) NewWriter(heapBudget int) (*Writer, error) {
	if idx.closed.Load() {
		return nil, apperrors.ErrIndexClosed
	}
	if heapBudget == 0 {
		heapBudget = DefaultHeapBudget
	}
	if heapBudget < MinHeapBudget {
		return nil, fmt.Errorf("%w: heap budget %d is below the minimum of %d",
			apperrors.ErrInvalidConfiguration, heapBudget, MinHeapBudget)
	}
	if !idx.writerBusy.CompareAndSwap(false, true) {
		return nil, apperrors.ErrWriterUnavailable
	}
	return newWriter(idx, int64(heapBudget), idx.snapshot()), nil
}

// NewSearcher returns a searcher over the most recent commit. It never
// blocks on a writer.
func (idx *Index) NewSearcher() *Searcher {
	return newSearcher(idx, idx.snapshot())
}

func (idx *Index) Schema() *schema.Schema {
	return idx.schema
}

// SchemaJSON returns the transportable description of the schema.
func (idx *Index) SchemaJSON() ([]byte, error) {
	return json.Marshal(idx.schema)
}

// Opstamp returns the opstamp of the most recent commit.
func (idx *Index) Opstamp() uint64 {
	return idx.snapshot().opstamp
}

func (idx *Index) Directory() storage.Directory {
	return idx.dir
}

type SegmentStats struct {
	ID         string `json:"id"`
	NumDocs    uint32 `json:"num_docs"`
	NumDeleted int    `json:"num_deleted"`
	DelGen     uint64 `json:"del_gen"`
	Terms      int    `json:"terms"`
	SizeBytes  int    `json:"size_bytes"`
}

type Stats struct {
	Opstamp    uint64         `json:"opstamp"`
	NumDocs    int            `json:"num_docs"`
	NumDeleted int            `json:"num_deleted"`
	SizeBytes  int            `json:"size_bytes"`
	Segments   []SegmentStats `json:"segments"`
}

// Stats describes the most recent commit.
func (idx *Index) Stats() Stats {
	g := idx.snapshot()
	st := Stats{Opstamp: g.opstamp, Segments: make([]SegmentStats, 0, len(g.segments))}
	for _, seg := range g.segments {
		st.Segments = append(st.Segments, SegmentStats{
			ID:         seg.meta.ID,
			NumDocs:    seg.meta.NumDocs,
			NumDeleted: seg.meta.NumDeleted,
			DelGen:     seg.meta.DelGen,
			Terms:      seg.reader.Terms(),
			SizeBytes:  seg.reader.Size(),
		})
		st.NumDocs += seg.meta.live()
		st.NumDeleted += seg.meta.NumDeleted
		st.SizeBytes += seg.reader.Size()
	}
	return st
}

// Closed reports whether Close has been called.
func (idx *Index) Closed() bool {
	return idx.closed.Load()
}

// Close stops the index from handing out new writers. Searchers already
// created stay usable; an outstanding writer can no longer commit.
func (idx *Index) Close() error {
	if idx.closed.Swap(true) {
		return nil
	}
	idx.logger.Info("index closed", "opstamp", idx.Opstamp())
	return nil
}
