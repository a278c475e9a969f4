package indexer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/textindex"
)

type commitLog struct {
	mu     sync.Mutex
	events []ingestion.CommitEvent
}

func (c *commitLog) PublishCommit(_ context.Context, e ingestion.CommitEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *commitLog) opstamps() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint64, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Opstamp)
	}
	return out
}

func newIndex(t *testing.T) *textindex.Index {
	t.Helper()
	b := schema.NewBuilder()
	_, err := b.AddTextField("title", true, true)
	require.NoError(t, err)
	s, err := b.Build()
	require.NoError(t, err)
	idx, err := textindex.Create(s)
	require.NoError(t, err)
	return idx
}

func TestEngineCommitPublishes(t *testing.T) {
	idx := newIndex(t)
	notes := &commitLog{}
	e := NewEngine(idx, config.IndexConfig{}, notes)
	ctx := context.Background()

	_, pending, err := e.Add(ctx, map[string]any{"title": "Rust patterns"})
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
	assert.Equal(t, 0, idx.NewSearcher().NumDocs())

	opstamp, err := e.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), opstamp)
	assert.Equal(t, 1, idx.NewSearcher().NumDocs())
	assert.Equal(t, 0, e.Pending())

	require.NoError(t, e.Close())
	require.Len(t, notes.events, 1)
	assert.Equal(t, 1, notes.events[0].NumDocs)
	assert.Equal(t, 1, notes.events[0].Segments)
}

func TestEngineCommitEvery(t *testing.T) {
	idx := newIndex(t)
	notes := &commitLog{}
	e := NewEngine(idx, config.IndexConfig{CommitEvery: 2}, notes)
	ctx := context.Background()

	_, _, err := e.Add(ctx, map[string]any{"title": "first book"})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), idx.Opstamp())

	pending, err := e.Delete(ctx, "title", "first book")
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
	assert.Equal(t, uint64(1), idx.Opstamp())
	assert.Equal(t, 0, idx.NewSearcher().NumDocs())
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]uint64{1}, notes.opstamps())
	}, 2*time.Second, 5*time.Millisecond)
}

// stalledNotifier blocks every publish until release is closed.
type stalledNotifier struct {
	commitLog
	release chan struct{}
}

func (s *stalledNotifier) PublishCommit(ctx context.Context, e ingestion.CommitEvent) error {
	<-s.release
	return s.commitLog.PublishCommit(ctx, e)
}

func TestEngineWritesDoNotWaitForNotifier(t *testing.T) {
	idx := newIndex(t)
	notes := &stalledNotifier{release: make(chan struct{})}
	e := NewEngine(idx, config.IndexConfig{}, notes)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			_, _, err := e.Add(ctx, map[string]any{"title": "while stalled"})
			assert.NoError(t, err)
			_, err = e.Commit(ctx)
			assert.NoError(t, err)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writes blocked behind the commit notifier")
	}
	assert.Equal(t, uint64(3), idx.Opstamp())
	assert.Empty(t, notes.opstamps())

	close(notes.release)
	require.NoError(t, e.Close())
	assert.Equal(t, []uint64{1, 2, 3}, notes.opstamps(), "events keep commit order")
}

func TestEngineAcksFollowCommit(t *testing.T) {
	idx := newIndex(t)
	e := NewEngine(idx, config.IndexConfig{CommitEvery: 2}, nil)
	ctx := context.Background()

	var mu sync.Mutex
	var acked []string
	ack := func(name string) Ack {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			acked = append(acked, name)
			return nil
		}
	}

	require.NoError(t, e.ApplyAcked(ctx, ingestion.Event{Type: ingestion.EventAdd, Document: map[string]any{"title": "one"}}, ack("one")))
	require.NoError(t, e.Hold(ack("skipped")))
	require.NoError(t, e.ApplyAcked(ctx, ingestion.Event{Type: ingestion.EventAdd, Document: map[string]any{"title": "two"}}, ack("two")))
	assert.Equal(t, uint64(1), idx.Opstamp())

	require.NoError(t, e.Close())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"one", "skipped", "two"}, acked)
}

func TestEngineSessionFailsWhileWriterHeld(t *testing.T) {
	idx := newIndex(t)
	w, err := idx.NewWriter(0)
	require.NoError(t, err)
	e := NewEngine(idx, config.IndexConfig{}, nil)

	_, _, err = e.Add(context.Background(), map[string]any{"title": "blocked"})
	assert.ErrorIs(t, err, apperrors.ErrWriterUnavailable)

	w.Discard()
	_, _, err = e.Add(context.Background(), map[string]any{"title": "free"})
	assert.NoError(t, err)
}

func TestEngineApply(t *testing.T) {
	idx := newIndex(t)
	e := NewEngine(idx, config.IndexConfig{}, nil)
	ctx := context.Background()

	require.NoError(t, e.Apply(ctx, ingestion.Event{Type: ingestion.EventAdd, Document: map[string]any{"title": "go concurrency"}}))
	require.NoError(t, e.Apply(ctx, ingestion.Event{Type: ingestion.EventAdd, Document: map[string]any{"title": "rust ownership"}}))
	require.NoError(t, e.Apply(ctx, ingestion.Event{Type: ingestion.EventDelete, Field: "title", Value: "rust ownership"}))
	require.NoError(t, e.Apply(ctx, ingestion.Event{Type: ingestion.EventCommit}))

	results, err := idx.NewSearcher().Search("go OR rust", 10, []string{"title"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	v, _ := results[0].First("title")
	assert.Equal(t, schema.Str("go concurrency"), v)

	assert.Error(t, e.Apply(ctx, ingestion.Event{Type: "merge"}))
	_, err = e.Delete(ctx, "missing", "x")
	assert.ErrorIs(t, err, apperrors.ErrUnknownField)
}

func TestEngineEmptyCommitAdvancesOpstamp(t *testing.T) {
	e := NewEngine(newIndex(t), config.IndexConfig{}, nil)
	first, err := e.Commit(context.Background())
	require.NoError(t, err)
	second, err := e.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
}

func TestEngineCommitLoop(t *testing.T) {
	idx := newIndex(t)
	e := NewEngine(idx, config.IndexConfig{CommitInterval: 10 * time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.StartCommitLoop(ctx)

	_, _, err := e.Add(ctx, map[string]any{"title": "periodic"})
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return idx.NewSearcher().NumDocs() == 1
	}, 2*time.Second, 5*time.Millisecond)

	opstamp := idx.Opstamp()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, opstamp, idx.Opstamp(), "idle ticks must not commit")
}

func TestEngineCloseCommitsPending(t *testing.T) {
	idx := newIndex(t)
	e := NewEngine(idx, config.IndexConfig{}, nil)
	_, _, err := e.Add(context.Background(), map[string]any{"title": "last words"})
	require.NoError(t, err)

	require.NoError(t, e.Close())
	assert.Equal(t, 1, idx.NewSearcher().NumDocs())

	_, err = e.Commit(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrIndexClosed)
}
