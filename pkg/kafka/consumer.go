// Package kafka wraps segmentio/kafka-go for the ingest log: a JSON
// producer and a consumer that hands messages to a callback one at a time.
// Offsets are committed after the callback succeeds, or, with manual
// commits, whenever the callback's owner calls the message's Ack.
package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/resilience"
)

// Message is one fetched record.
type Message struct {
	Key       []byte
	Value     []byte
	Partition int
	Offset    int64
	// Ack commits this message's offset. It is set only on consumers
	// created WithManualCommit; committing an offset also covers every
	// earlier offset of the partition.
	Ack func(ctx context.Context) error
}

// MessageHandler processes one message. A returned error is retried.
type MessageHandler func(ctx context.Context, msg Message) error

type committer interface {
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Consumer reads a topic as part of a consumer group.
type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	retry   resilience.RetryConfig
	manual  bool
	logger  *slog.Logger
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithManualCommit leaves offset commits to the handler through
// Message.Ack, for handlers whose effects become durable later.
func WithManualCommit() ConsumerOption {
	return func(c *Consumer) { c.manual = true }
}

// NewConsumer creates a Consumer. A new group starts from the oldest
// retained message so no ingest event is skipped.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler, opts ...ConsumerOption) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	})
	c := &Consumer{
		reader:  r,
		handler: handler,
		retry: resilience.RetryConfig{
			MaxAttempts:  cfg.HandlerAttempts,
			InitialDelay: 250 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
		logger: slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func wrapMessage(raw kafka.Message, cm committer, manual bool) Message {
	msg := Message{
		Key:       raw.Key,
		Value:     raw.Value,
		Partition: raw.Partition,
		Offset:    raw.Offset,
	}
	if manual {
		msg.Ack = func(ctx context.Context) error {
			if err := cm.CommitMessages(ctx, raw); err != nil {
				return fmt.Errorf("committing partition %d offset %d: %w", raw.Partition, raw.Offset, err)
			}
			return nil
		}
	}
	return msg
}

// Start consumes until ctx is cancelled. A message whose handler keeps
// failing stops the loop with an error and stays uncommitted, so it is
// redelivered on restart before anything after it. With manual commits a
// successful handler does not commit either.
func (c *Consumer) Start(ctx context.Context) error {
	defer c.reader.Close()
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"value_size", len(msg.Value),
		)
		op := fmt.Sprintf("handle %d/%d", msg.Partition, msg.Offset)
		wrapped := wrapMessage(msg, c.reader, c.manual)
		if err := resilience.Retry(ctx, op, c.retry, func() error {
			return c.handler(ctx, wrapped)
		}); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("partition %d offset %d: %w", msg.Partition, msg.Offset, err)
		}
		if c.manual {
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit offset",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// DecodeJSON unmarshals a message value into T. Numbers stay json.Number so
// 64-bit integers survive the trip.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
