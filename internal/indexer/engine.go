// Package indexer owns the long-lived ingestion session of a daemon. The
// Engine holds at most one writer at a time, opens it lazily on the first
// mutation and commits it when enough operations are pending or when the
// commit interval elapses. Commit notifications and input acknowledgements
// are delivered in commit order by a background goroutine, never under the
// engine lock.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/textindex"
)

const deliveryTimeout = 30 * time.Second

// CommitNotifier is told about every successful commit.
type CommitNotifier interface {
	PublishCommit(ctx context.Context, event ingestion.CommitEvent) error
}

// Ack acknowledges one consumed input, such as a Kafka offset. The engine
// runs it only once every operation the input carried is committed.
type Ack func(ctx context.Context) error

// delivery is the post-commit work of one commit, run outside e.mu in
// commit order.
type delivery struct {
	event *ingestion.CommitEvent
	acks  []Ack
}

type Engine struct {
	idx         *textindex.Index
	heapBudget  int
	commitEvery int
	interval    time.Duration
	notifier    CommitNotifier
	logger      *slog.Logger

	mu     sync.Mutex
	writer *textindex.Writer
	acks   []Ack
	// ackErr is set once a failed commit dropped acknowledged-later inputs.
	// Acking anything after them would skip them for good.
	ackErr error

	outMu     sync.Mutex
	outbox    []delivery
	stopped   bool
	wake      chan struct{}
	done      chan struct{}
	startOnce sync.Once
}

// NewEngine wraps idx. notifier may be nil.
func NewEngine(idx *textindex.Index, cfg config.IndexConfig, notifier CommitNotifier) *Engine {
	return &Engine{
		idx:         idx,
		heapBudget:  cfg.HeapBudget,
		commitEvery: cfg.CommitEvery,
		interval:    cfg.CommitInterval,
		notifier:    notifier,
		logger:      slog.Default().With("component", "indexer"),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

func (e *Engine) Index() *textindex.Index {
	return e.idx
}

// session returns the open writer, claiming one if needed. Callers hold e.mu.
func (e *Engine) session() (*textindex.Writer, error) {
	if e.writer != nil {
		return e.writer, nil
	}
	w, err := e.idx.NewWriter(e.heapBudget)
	if err != nil {
		return nil, fmt.Errorf("opening writer session: %w", err)
	}
	e.writer = w
	e.logger.Debug("writer session opened", "base_opstamp", w.BaseOpstamp())
	return w, nil
}

// Add buffers one document.
func (e *Engine) Add(ctx context.Context, fields map[string]any) (textindex.AddReport, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addLocked(ctx, fields, nil)
}

func (e *Engine) addLocked(ctx context.Context, fields map[string]any, ack Ack) (textindex.AddReport, int, error) {
	w, err := e.session()
	if err != nil {
		return textindex.AddReport{}, 0, err
	}
	report, err := w.AddDocument(fields)
	if err != nil {
		return report, w.Pending(), err
	}
	e.holdLocked(ack)
	pending, err := e.maybeCommit(ctx, w)
	return report, pending, err
}

// Delete buffers a delete-by-term.
func (e *Engine) Delete(ctx context.Context, field, value string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deleteLocked(ctx, field, value, nil)
}

func (e *Engine) deleteLocked(ctx context.Context, field, value string, ack Ack) (int, error) {
	w, err := e.session()
	if err != nil {
		return 0, err
	}
	if err := w.DeleteByTerm(field, value); err != nil {
		return w.Pending(), err
	}
	e.holdLocked(ack)
	return e.maybeCommit(ctx, w)
}

func (e *Engine) maybeCommit(ctx context.Context, w *textindex.Writer) (int, error) {
	pending := w.Pending()
	if e.commitEvery <= 0 || pending < e.commitEvery {
		return pending, nil
	}
	e.logger.Debug("commit threshold reached", "pending", pending, "threshold", e.commitEvery)
	if _, err := e.commitLocked(ctx); err != nil {
		return pending, err
	}
	return 0, nil
}

// Commit commits the open session, or an empty one if none is open, and
// returns the new opstamp.
func (e *Engine) Commit(ctx context.Context) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.session(); err != nil {
		return 0, err
	}
	return e.commitLocked(ctx)
}

// commitLocked commits the open session. Notification and held acks are
// queued for delivery after e.mu is released.
func (e *Engine) commitLocked(_ context.Context) (uint64, error) {
	w := e.writer
	e.writer = nil
	pending := w.Pending()
	opstamp, err := w.Commit()
	if err != nil {
		if n := len(e.acks); n > 0 {
			e.acks = nil
			e.ackErr = fmt.Errorf("%d consumed inputs were not committed: %w", n, err)
			e.logger.Error("commit lost acknowledged inputs, refusing further acks", "inputs", n)
		}
		return 0, err
	}
	st := e.idx.Stats()
	e.logger.Info("index committed",
		"opstamp", opstamp,
		"operations", pending,
		"num_docs", st.NumDocs,
		"segments", len(st.Segments),
	)
	d := delivery{acks: e.acks}
	e.acks = nil
	if e.notifier != nil {
		d.event = &ingestion.CommitEvent{
			Opstamp:     opstamp,
			NumDocs:     st.NumDocs,
			NumDeleted:  st.NumDeleted,
			Segments:    len(st.Segments),
			CommittedAt: time.Now().UTC(),
		}
	}
	e.enqueue(d)
	return opstamp, nil
}

// Apply runs one ingestion event.
func (e *Engine) Apply(ctx context.Context, event ingestion.Event) error {
	return e.ApplyAcked(ctx, event, nil)
}

// ApplyAcked runs one ingestion event and holds ack until the event is part
// of a successful commit. A nil ack behaves like Apply. Once a commit has
// failed with acks held, every later acked call fails so the caller stops
// and its inputs are redelivered.
func (e *Engine) ApplyAcked(ctx context.Context, event ingestion.Event, ack Ack) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ack != nil && e.ackErr != nil {
		return e.ackErr
	}
	switch event.Type {
	case ingestion.EventAdd:
		_, _, err := e.addLocked(ctx, event.Document, ack)
		return err
	case ingestion.EventDelete:
		_, err := e.deleteLocked(ctx, event.Field, event.Value, ack)
		return err
	case ingestion.EventCommit:
		if _, err := e.session(); err != nil {
			return err
		}
		e.holdLocked(ack)
		_, err := e.commitLocked(ctx)
		return err
	}
	return fmt.Errorf("unknown event type %q", event.Type)
}

// Hold queues ack behind every operation already buffered. It is for inputs
// that carry no operation, such as malformed events, whose acknowledgement
// must still wait for the inputs before them.
func (e *Engine) Hold(ack Ack) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ackErr != nil {
		return e.ackErr
	}
	if e.writer == nil || e.writer.Pending() == 0 {
		e.acks = append(e.acks, ack)
		e.enqueue(delivery{acks: e.acks})
		e.acks = nil
		return nil
	}
	e.holdLocked(ack)
	return nil
}

func (e *Engine) holdLocked(ack Ack) {
	if ack != nil {
		e.acks = append(e.acks, ack)
	}
}

func (e *Engine) enqueue(d delivery) {
	if d.event == nil && len(d.acks) == 0 {
		return
	}
	e.startOnce.Do(func() { go e.deliver() })
	e.outMu.Lock()
	defer e.outMu.Unlock()
	if e.stopped {
		e.logger.Warn("engine stopped, dropping commit delivery", "acks", len(d.acks))
		return
	}
	e.outbox = append(e.outbox, d)
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// deliver runs queued deliveries one at a time, in commit order, until the
// engine is closed and the outbox is empty.
func (e *Engine) deliver() {
	defer close(e.done)
	for range e.wake {
		for {
			e.outMu.Lock()
			batch := e.outbox
			e.outbox = nil
			e.outMu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, d := range batch {
				e.run(d)
			}
		}
	}
}

func (e *Engine) run(d delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	if d.event != nil {
		if err := e.notifier.PublishCommit(ctx, *d.event); err != nil {
			e.logger.Error("commit notification failed", "opstamp", d.event.Opstamp, "error", err)
		}
	}
	for _, ack := range d.acks {
		// A failed ack only means the input is delivered again.
		if err := ack(ctx); err != nil {
			e.logger.Error("acknowledging input failed", "error", err)
		}
	}
}

// Pending returns the number of uncommitted operations.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.writer == nil {
		return 0
	}
	return e.writer.Pending()
}

func (e *Engine) commitPending(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.writer == nil || e.writer.Pending() == 0 {
		return nil
	}
	_, err := e.commitLocked(ctx)
	return err
}

// StartCommitLoop commits pending operations every commit interval until
// ctx is cancelled, then commits once more.
func (e *Engine) StartCommitLoop(ctx context.Context) {
	if e.interval <= 0 {
		return
	}
	ticker := time.NewTicker(e.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("commit loop stopping, performing final commit")
				if err := e.commitPending(context.Background()); err != nil {
					e.logger.Error("final commit failed", "error", err)
				}
				return
			case <-ticker.C:
				if err := e.commitPending(ctx); err != nil {
					e.logger.Error("periodic commit failed", "error", err)
				}
			}
		}
	}()
}

// Close commits pending operations, closes the index and waits for queued
// commit deliveries to finish.
func (e *Engine) Close() error {
	if err := e.commitPending(context.Background()); err != nil {
		e.logger.Error("final commit on close failed", "error", err)
	}
	e.mu.Lock()
	if e.writer != nil {
		e.writer.Discard()
		e.writer = nil
	}
	e.acks = nil
	err := e.idx.Close()
	e.mu.Unlock()

	e.startOnce.Do(func() { go e.deliver() })
	e.outMu.Lock()
	if !e.stopped {
		e.stopped = true
		close(e.wake)
	}
	e.outMu.Unlock()
	<-e.done
	return err
}
