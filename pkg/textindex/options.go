package textindex

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/analysis"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/scoring"
)

const (
	// DefaultHeapBudget is the writer memory budget used when NewWriter is
	// given 0.
	DefaultHeapBudget = 50_000_000
	// MinHeapBudget is the smallest budget NewWriter accepts.
	MinHeapBudget = 1_000_000
)

// Compression selects the codec of stored documents in new segments.
type Compression = segment.Compression

const (
	CompressionNone = segment.CompressionNone
	CompressionLZ4  = segment.CompressionLZ4
	CompressionZSTD = segment.CompressionZSTD
)

// ParseCompression accepts "none", "lz4" or "zstd"; empty selects zstd.
func ParseCompression(s string) (Compression, error) {
	return segment.ParseCompression(s)
}

type options struct {
	analyzer    analysis.Analyzer
	scorer      scoring.Scorer
	logger      *slog.Logger
	metrics     *metrics.Metrics
	compression Compression
	mergeFactor int
}

// DefaultMergeFactor is how many same-tier segments a commit merges into one.
const DefaultMergeFactor = 10

func defaultOptions() options {
	return options{
		analyzer:    analysis.NewEnglish(),
		scorer:      scoring.NewBM25(),
		logger:      slog.Default().With("component", "textindex"),
		compression: CompressionZSTD,
		mergeFactor: DefaultMergeFactor,
	}
}

// Option configures an Index.
type Option func(*options)

// WithAnalyzer sets the analyzer used for indexing, querying and deletion
// terms. It must not change across the life of a stored index.
func WithAnalyzer(a analysis.Analyzer) Option {
	return func(o *options) {
		if a != nil {
			o.analyzer = a
		}
	}
}

func WithScorer(s scoring.Scorer) Option {
	return func(o *options) {
		if s != nil {
			o.scorer = s
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records writer and searcher activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMergeFactor sets how many adjacent segments of the same size tier a
// commit merges. Values below 2 disable merging.
func WithMergeFactor(n int) Option {
	return func(o *options) {
		o.mergeFactor = n
	}
}
