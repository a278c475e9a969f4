// Package publisher writes ingestion and commit events to Kafka. Ingest
// events are keyed by index name so that one partition preserves the
// program order of a session's adds and deletes.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/resilience"
)

// commitPublishTimeout bounds each attempt to announce a commit.
const commitPublishTimeout = 5 * time.Second

// EventWriter is the Kafka side of a publisher; *kafka.Producer implements it.
type EventWriter interface {
	Publish(ctx context.Context, event kafka.Event) error
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Publisher produces events for one index.
type Publisher struct {
	index    string
	producer EventWriter
	retry    resilience.RetryConfig
	logger   *slog.Logger
}

// New creates a Publisher for the named index.
func New(index string, producer EventWriter) *Publisher {
	return &Publisher{
		index:    index,
		producer: producer,
		retry:    resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond},
		logger:   slog.Default().With("component", "publisher", "index", index),
	}
}

// PublishEvents sends ingest events in one batch, in order.
func (p *Publisher) PublishEvents(ctx context.Context, events []ingestion.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := make([]kafka.Event, 0, len(events))
	for _, e := range events {
		batch = append(batch, kafka.Event{Key: p.index, Value: e})
	}
	if err := p.producer.PublishBatch(ctx, batch); err != nil {
		return fmt.Errorf("publishing %d ingest events: %w", len(events), err)
	}
	p.logger.Debug("ingest events published", "count", len(events))
	return nil
}

// PublishCommit announces a commit, retrying with backoff. The key is the
// opstamp so consumers can discard duplicates a retry may produce.
func (p *Publisher) PublishCommit(ctx context.Context, event ingestion.CommitEvent) error {
	event.Index = p.index
	msg := kafka.Event{Key: strconv.FormatUint(event.Opstamp, 10), Value: event}
	err := resilience.Retry(ctx, "publish-commit", p.retry, func() error {
		return resilience.WithTimeout(ctx, commitPublishTimeout, "publish-commit", func(ctx context.Context) error {
			return p.producer.Publish(ctx, msg)
		})
	})
	if err != nil {
		return fmt.Errorf("publishing commit %d: %w", event.Opstamp, err)
	}
	p.logger.Info("commit published", "opstamp", event.Opstamp, "num_docs", event.NumDocs)
	return nil
}
