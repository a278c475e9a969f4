// Package consumer reads ingestion events from Kafka and applies them to the
// indexer engine in partition order.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/metrics"
)

// Runner is the Kafka consume loop; *kafka.Consumer implements it.
type Runner interface {
	Start(ctx context.Context) error
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer Runner
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer Runner) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that applies every event to
// engine. Malformed or rejected events are logged and acknowledged so they
// cannot block the partition; storage and contention failures are returned
// and the message is left uncommitted. When the message carries an Ack it
// runs only after the index commit covering the event, and bad events are
// acknowledged in order behind the events before them.
func HandleMessage(engine *indexer.Engine, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, msg kafka.Message) error {
		skip := func() error {
			if msg.Ack == nil {
				return nil
			}
			return engine.Hold(msg.Ack)
		}

		event, err := kafka.DecodeJSON[ingestion.Event](msg.Value)
		if err != nil {
			logger.Error("failed to decode ingest event",
				"error", err,
				"key", string(msg.Key),
			)
			m.IngestEvent("invalid", err)
			return skip()
		}
		if err := validator.ValidateEvent(&event); err != nil {
			logger.Warn("rejected ingest event", "type", event.Type, "error", err)
			m.IngestEvent(event.Type, err)
			return skip()
		}

		err = engine.ApplyAcked(ctx, event, msg.Ack)
		m.IngestEvent(event.Type, err)
		if err != nil {
			if permanent(err) {
				logger.Warn("ingest event dropped", "type", event.Type, "error", err)
				return skip()
			}
			return fmt.Errorf("applying %s event: %w", event.Type, err)
		}
		logger.Debug("ingest event applied", "type", event.Type, "pending", engine.Pending())
		return nil
	}
}

// permanent reports whether retrying the event could never succeed.
func permanent(err error) bool {
	return errors.Is(err, apperrors.ErrUnknownField) ||
		errors.Is(err, apperrors.ErrInvalidTerm)
}
