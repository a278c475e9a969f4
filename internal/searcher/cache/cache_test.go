package cache

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/textindex"
)

type memStore struct {
	mu      sync.Mutex
	data    map[string]string
	failGet bool
	lookups int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) Lookup(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.failGet {
		return "", false, errors.New("connection refused")
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(value.([]byte))
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func sample() *SearchResult {
	return &SearchResult{
		Opstamp:   3,
		TotalHits: 1,
		Hits: []Hit{{
			Address: textindex.DocAddress{Segment: 0, Doc: 2},
			Score:   1.5,
			Fields:  map[string]any{"title": "Rust patterns", "year": int64(9007199254740993)},
		}},
	}
}

func TestGetOrComputeCachesAndCounts(t *testing.T) {
	c := New("books", newMemStore(), time.Minute, nil)
	req := Request{Opstamp: 3, Query: "rust", Fields: []string{"title"}, Limit: 10}

	calls := 0
	compute := func() (*SearchResult, error) {
		calls++
		return sample(), nil
	}

	got, cached, err := c.GetOrCompute(context.Background(), req, compute)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, got.TotalHits)

	got, cached, err = c.GetOrCompute(context.Background(), req, compute)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, calls)
	require.Len(t, got.Hits, 1)
	assert.Equal(t, "Rust patterns", got.Hits[0].Fields["title"])
	assert.Equal(t, json.Number("9007199254740993"), got.Hits[0].Fields["year"])

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestKeysSeparateSnapshotsAndParameters(t *testing.T) {
	base := Request{Opstamp: 1, Query: "rust  go", Fields: []string{"title"}, Limit: 10}
	assert.Equal(t, buildKey(base), buildKey(Request{Opstamp: 1, Query: " rust go ", Fields: []string{"title"}, Limit: 10}))

	for _, other := range []Request{
		{Opstamp: 2, Query: "rust go", Fields: []string{"title"}, Limit: 10},
		{Opstamp: 1, Query: "rust AND go", Fields: []string{"title"}, Limit: 10},
		{Opstamp: 1, Query: "rust go", Fields: []string{"title", "body"}, Limit: 10},
		{Opstamp: 1, Query: "rust go", Fields: []string{"title"}, Limit: 5},
	} {
		assert.NotEqual(t, buildKey(base), buildKey(other), other)
	}
}

func TestComputeErrorIsNotCached(t *testing.T) {
	store := newMemStore()
	c := New("books", store, time.Minute, nil)
	req := Request{Query: "boom", Limit: 1}

	_, _, err := c.GetOrCompute(context.Background(), req, func() (*SearchResult, error) {
		return nil, errors.New("parse failure")
	})
	require.Error(t, err)
	assert.Empty(t, store.data)
}

func TestStoreFailureFallsBackToCompute(t *testing.T) {
	store := newMemStore()
	store.failGet = true
	c := New("books", store, time.Minute, nil)

	got, cached, err := c.GetOrCompute(context.Background(), Request{Query: "x", Limit: 1}, func() (*SearchResult, error) {
		return sample(), nil
	})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, uint64(3), got.Opstamp)
}

func TestConcurrentMissesComputeOnce(t *testing.T) {
	c := New("books", newMemStore(), time.Minute, nil)
	req := Request{Query: "hot", Limit: 10}

	var calls atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), req, func() (*SearchResult, error) {
				calls.Add(1)
				<-release
				return sample(), nil
			})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	c := New("books", store, time.Minute, nil)
	c.Set(context.Background(), Request{Query: "a"}, sample())
	c.Set(context.Background(), Request{Query: "b"}, sample())
	store.data["unrelated"] = "keep"

	require.NoError(t, c.Invalidate(context.Background()))
	assert.Equal(t, map[string]string{"unrelated": "keep"}, store.data)
}

func TestIndexesSharingAStoreStayApart(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	books := New("books", store, time.Minute, nil)
	films := New("films", store, time.Minute, nil)
	req := Request{Opstamp: 1, Query: "rust", Fields: []string{"title"}, Limit: 10}

	books.Set(ctx, req, sample())
	_, ok := films.Get(ctx, req)
	assert.False(t, ok, "same query and opstamp on another index must miss")

	films.Set(ctx, req, &SearchResult{Opstamp: 1})
	got, ok := books.Get(ctx, req)
	require.True(t, ok)
	assert.Equal(t, 1, got.TotalHits)

	require.NoError(t, films.Invalidate(ctx))
	_, ok = films.Get(ctx, req)
	assert.False(t, ok)
	_, ok = books.Get(ctx, req)
	assert.True(t, ok, "invalidating one index keeps the other's entries")
}

func TestInvalidateEscapesIndexName(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	wild := New("b*", store, time.Minute, nil)
	books := New("books", store, time.Minute, nil)
	req := Request{Opstamp: 1, Query: "rust"}
	wild.Set(ctx, req, sample())
	books.Set(ctx, req, sample())

	require.NoError(t, wild.Invalidate(ctx))
	_, ok := books.Get(ctx, req)
	assert.True(t, ok)
	_, ok = wild.Get(ctx, req)
	assert.False(t, ok)
}

func TestBreakerBypassesFailingStore(t *testing.T) {
	store := newMemStore()
	store.failGet = true
	c := New("books", store, time.Minute, nil)

	for i := 0; i < 5; i++ {
		_, ok := c.Get(context.Background(), Request{Query: "x"})
		assert.False(t, ok)
	}
	assert.Equal(t, resilience.StateOpen, c.StoreState())

	_, ok := c.Get(context.Background(), Request{Query: "x"})
	assert.False(t, ok)
	assert.Equal(t, 5, store.lookups)

	_, misses := c.Stats()
	assert.Equal(t, int64(6), misses)
}
