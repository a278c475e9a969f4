// Package handler serves the read side of the HTTP API over the latest
// commit of an index.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/textindex"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/tracing"
)

// Options bound what a search request may ask for. Searches slower than
// SlowQuery have their span tree logged at Info.
type Options struct {
	DefaultLimit  int
	MaxResults    int
	DefaultFields []string
	SlowQuery     time.Duration
}

type Handler struct {
	idx    *textindex.Index
	cache  *cache.QueryCache
	opts   Options
	logger *slog.Logger
}

// New creates a Handler. queryCache may be nil. Without DefaultFields every
// indexed text field is searched.
func New(idx *textindex.Index, queryCache *cache.QueryCache, opts Options) *Handler {
	if len(opts.DefaultFields) == 0 {
		opts.DefaultFields = indexedTextFields(idx.Schema())
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	return &Handler{
		idx:    idx,
		cache:  queryCache,
		opts:   opts,
		logger: slog.Default().With("component", "search-handler"),
	}
}

func indexedTextFields(s *schema.Schema) []string {
	var names []string
	for _, f := range s.Fields() {
		if f.Type == schema.Text && f.Options.Indexed {
			names = append(names, f.Name)
		}
	}
	return names
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.Start(r.Context(), "search", middleware.GetRequestID(r.Context()))
	log := logger.FromContext(ctx)
	defer func() {
		span.End()
		span.Report(log, h.opts.SlowQuery)
	}()

	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.opts.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if h.opts.MaxResults > 0 && parsed > h.opts.MaxResults {
			parsed = h.opts.MaxResults
		}
		limit = parsed
	}

	fields := h.opts.DefaultFields
	if raw := r.URL.Query().Get("fields"); raw != "" {
		fields = splitFields(raw)
	}

	searcher := h.idx.NewSearcher()
	span.SetAttr("query", query)
	span.SetAttr("opstamp", searcher.Opstamp())
	compute := func() (*cache.SearchResult, error) {
		_, exec := tracing.Start(ctx, "execute", "")
		defer exec.End()
		results, total, err := searcher.SearchWithTotal(query, limit, fields)
		if err != nil {
			exec.SetAttr("error", err.Error())
			return nil, err
		}
		exec.SetAttr("total_hits", total)
		return cache.FromResults(searcher.Opstamp(), total, results), nil
	}

	var (
		result   *cache.SearchResult
		err      error
		cacheHit bool
	)
	if h.cache != nil {
		req := cache.Request{Opstamp: searcher.Opstamp(), Query: query, Fields: fields, Limit: limit}
		result, cacheHit, err = h.cache.GetOrCompute(ctx, req, compute)
		span.SetAttr("cache_hit", cacheHit)
	} else {
		result, err = compute()
	}
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("search execution failed", "query", query, "error", err, "status_code", status)
		if status >= http.StatusInternalServerError {
			h.writeError(w, status, "search failed")
			return
		}
		h.writeError(w, status, err.Error())
		return
	}

	log.Info("search completed",
		"query", query,
		"opstamp", result.Opstamp,
		"total_hits", result.TotalHits,
		"returned", len(result.Hits),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
		"request_id", middleware.GetRequestID(ctx),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func splitFields(raw string) []string {
	var out []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Document serves GET /api/v1/documents/{segment}/{doc} against the latest
// commit. Addresses are only stable within one opstamp.
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	seg, err1 := strconv.Atoi(r.PathValue("segment"))
	doc, err2 := strconv.ParseUint(r.PathValue("doc"), 10, 32)
	if err1 != nil || err2 != nil {
		h.writeError(w, http.StatusBadRequest, "segment and doc must be non-negative integers")
		return
	}
	searcher := h.idx.NewSearcher()
	res, err := searcher.Doc(textindex.DocAddress{Segment: seg, Doc: uint32(doc)})
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"opstamp":  searcher.Opstamp(),
		"document": res,
	})
}

func (h *Handler) Schema(w http.ResponseWriter, r *http.Request) {
	data, err := h.idx.SchemaJSON()
	if err != nil {
		h.logger.Error("encoding schema failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "encoding schema failed")
		return
	}
	h.writeJSON(w, http.StatusOK, json.RawMessage(data))
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.idx.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"store":    h.cache.StoreState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
