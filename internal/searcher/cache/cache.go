// Package cache memoises rendered search results in Redis. Keys are scoped
// by index name and embed the snapshot opstamp, so a commit makes older
// entries unreachable without an explicit invalidation.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/textindex"
)

const keyPrefix = "search:"

// Store is the key-value backend; *redis.Client implements it.
type Store interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Request identifies one cacheable search.
type Request struct {
	Opstamp uint64
	Query   string
	Fields  []string
	Limit   int
}

type Hit struct {
	Address textindex.DocAddress `json:"address"`
	Score   float64              `json:"score"`
	Fields  map[string]any       `json:"fields"`
}

// SearchResult is the transport form of one search response.
type SearchResult struct {
	Opstamp   uint64 `json:"opstamp"`
	TotalHits int    `json:"total_hits"`
	Hits      []Hit  `json:"hits"`
}

// FromResults renders searcher results for caching and transport.
func FromResults(opstamp uint64, total int, results []textindex.Result) *SearchResult {
	sr := &SearchResult{Opstamp: opstamp, TotalHits: total, Hits: make([]Hit, 0, len(results))}
	for _, r := range results {
		sr.Hits = append(sr.Hits, Hit{Address: r.Address, Score: r.Score, Fields: r.FieldMap()})
	}
	return sr
}

// QueryCache fronts a Store with a circuit breaker: after repeated store
// failures lookups become misses and writes are dropped until the breaker's
// reset timeout lets a probe through.
type QueryCache struct {
	store   Store
	prefix  string
	breaker *resilience.CircuitBreaker
	ttl     time.Duration
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache for the index named index. Caches for different
// indexes may share one store.
func New(index string, store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		prefix:  keyPrefix + index + ":",
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache", "index", index),
		breaker: resilience.NewCircuitBreaker("query-cache", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		}),
	}
}

func (c *QueryCache) Get(ctx context.Context, req Request) (*SearchResult, bool) {
	key := c.key(req)
	var (
		data string
		ok   bool
	)
	err := c.breaker.Execute(func() error {
		var err error
		data, ok, err = c.store.Lookup(ctx, key)
		return err
	})
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		c.logger.Debug("cache bypassed", "key", key)
	case err != nil:
		c.logger.Error("cache get failed", "key", key, "error", err)
	}
	if err != nil || !ok {
		c.miss()
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var result SearchResult
	if err := dec.Decode(&result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.CacheHit()
	c.logger.Debug("cache hit", "query", req.Query, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, req Request, result *SearchResult) {
	key := c.key(req)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result of req, or runs computeFn once per
// key across concurrent callers and caches its result. cached reports
// whether the result came from the store.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	req Request,
	computeFn func() (*SearchResult, error),
) (result *SearchResult, cached bool, err error) {
	if result, ok := c.Get(ctx, req); ok {
		return result, true, nil
	}
	key := c.key(req)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, req, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*SearchResult), false, nil
}

// Invalidate drops every cached search of this cache's index.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, escapeGlob(c.prefix)+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// StoreState reports the circuit breaker state guarding the store.
func (c *QueryCache) StoreState() resilience.State {
	return c.breaker.Current()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	c.metrics.CacheMiss()
}

func (c *QueryCache) key(req Request) string {
	return c.prefix + buildKey(req)
}

// buildKey hashes the request. Query whitespace is collapsed; case and
// field order are kept since both can change results.
func buildKey(req Request) string {
	raw := fmt.Sprintf("op=%d|q=%s|f=%s|limit=%d",
		req.Opstamp,
		strings.Join(strings.Fields(req.Query), " "),
		strings.Join(req.Fields, ","),
		req.Limit,
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", hash[:16])
}

// escapeGlob quotes the characters Redis MATCH patterns treat specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
