package textindex

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

// tier buckets a segment by live document count: tier k holds segments with
// factor^k to factor^(k+1)-1 live documents.
func tier(live, factor int) int {
	t := 0
	for live >= factor {
		live /= factor
		t++
	}
	return t
}

// pickMerge returns the start of the newest run of factor adjacent segments
// sharing a tier, or -1. Merging only adjacent runs keeps document order.
func pickMerge(segs []*segmentState, factor int) int {
	if factor < 2 || len(segs) < factor {
		return -1
	}
	for end := len(segs); end >= factor; end-- {
		start := end - factor
		t := tier(segs[start].meta.live(), factor)
		same := true
		for _, s := range segs[start+1 : end] {
			if tier(s.meta.live(), factor) != t {
				same = false
				break
			}
		}
		if same {
			return start
		}
	}
	return -1
}

// mergeSegments repeatedly merges runs chosen by pickMerge and returns the
// new segment list. Files it writes are appended to written.
func (w *Writer) mergeSegments(segs []*segmentState, written *[]string) ([]*segmentState, error) {
	factor := w.idx.opts.mergeFactor
	for {
		start := pickMerge(segs, factor)
		if start < 0 {
			return segs, nil
		}
		run := segs[start : start+factor]
		merged, err := w.mergeRun(run, written)
		if err != nil {
			return nil, err
		}
		next := make([]*segmentState, 0, len(segs)-factor+1)
		next = append(next, segs[:start]...)
		next = append(next, merged)
		next = append(next, segs[start+factor:]...)
		segs = next
	}
}

func (w *Writer) mergeRun(run []*segmentState, written *[]string) (*segmentState, error) {
	id, err := newSegmentID()
	if err != nil {
		return nil, err
	}
	sources := make([]segment.MergeSource, len(run))
	ids := make([]string, len(run))
	for i, s := range run {
		sources[i] = segment.MergeSource{Reader: s.reader, Deleted: s.tombstones}
		ids[i] = s.meta.ID
	}
	data, n, err := segment.NewWriter(w.idx.opts.compression).Merge(sources)
	if err != nil {
		return nil, fmt.Errorf("merging into segment %s: %w", id, err)
	}
	if err := w.idx.dir.WriteFile(segment.FileName(id), data); err != nil {
		w.removeFile(segment.FileName(id))
		return nil, fmt.Errorf("%w: writing merged segment %s: %w", apperrors.ErrStorage, id, err)
	}
	*written = append(*written, segment.FileName(id))
	reader, err := segment.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding merged segment %s: %w", id, err)
	}
	w.logger.Info("segments merged",
		"segment", id,
		"sources", ids,
		"docs", n,
		"bytes", len(data),
	)
	return &segmentState{
		meta:   SegmentMeta{ID: id, NumDocs: n},
		reader: reader,
	}, nil
}
