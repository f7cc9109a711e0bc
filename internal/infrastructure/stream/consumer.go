// Package stream ingests order-completed baskets from Kafka into the
// transaction log that feeds association mining.
package stream

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dropsight/dropsight/internal/domain/association"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/logging"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/prometheus"
	"github.com/dropsight/dropsight/pkg/errors"
)

// BasketEvent is the wire shape of one order-completed message.
type BasketEvent struct {
	OrderID    string    `json:"order_id"`
	Items      []string  `json:"items"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BasketSink receives decoded baskets; the Postgres transaction repository
// implements it.
type BasketSink interface {
	Append(ctx context.Context, tx association.Transaction, occurredAt time.Time) error
}

// Reader abstracts kafka.Reader so tests can feed messages directly.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig holds the Kafka connection settings.
type ConsumerConfig struct {
	Brokers []string `json:"brokers" mapstructure:"brokers"`
	Topic   string   `json:"topic" mapstructure:"topic"`
	GroupID string   `json:"group_id" mapstructure:"group_id"`

	// MinBytes and MaxBytes bound fetch sizes; zero uses library defaults.
	MinBytes int `json:"min_bytes" mapstructure:"min_bytes"`
	MaxBytes int `json:"max_bytes" mapstructure:"max_bytes"`
}

// Validate rejects incomplete consumer configurations.
func (c ConsumerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.Validation("at least one kafka broker is required")
	}
	if c.Topic == "" {
		return errors.Validation("kafka topic is required")
	}
	if c.GroupID == "" {
		return errors.Validation("kafka group id is required")
	}
	return nil
}

// ConsumerStats counts processed messages.
type ConsumerStats struct {
	Consumed  atomic.Int64
	Stored    atomic.Int64
	Malformed atomic.Int64
	Failed    atomic.Int64
}

// Consumer reads basket events and appends them to the sink.
type Consumer struct {
	reader  Reader
	sink    BasketSink
	logger  logging.Logger
	metrics *prometheus.AppMetrics
	stats   ConsumerStats
}

// ConsumerOption customizes consumer construction.
type ConsumerOption func(*Consumer)

// WithMetrics publishes ingestion counters and lag on m.
func WithMetrics(m *prometheus.AppMetrics) ConsumerOption {
	return func(c *Consumer) { c.metrics = m }
}

// NewConsumer builds a consumer over a real kafka.Reader.
func NewConsumer(cfg ConsumerConfig, sink BasketSink, log logging.Logger, opts ...ConsumerOption) (*Consumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	minBytes := cfg.MinBytes
	if minBytes <= 0 {
		minBytes = 1
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    minBytes,
		MaxBytes:    maxBytes,
		StartOffset: kafka.FirstOffset,
	})
	return NewConsumerWithReader(reader, sink, log, opts...), nil
}

// NewConsumerWithReader wires a consumer over any Reader.
func NewConsumerWithReader(reader Reader, sink BasketSink, log logging.Logger, opts ...ConsumerOption) *Consumer {
	c := &Consumer{reader: reader, sink: sink, logger: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// recordIngest publishes one basket outcome when metrics are wired.  A
// negative lag means the event carried no usable timestamp.
func (c *Consumer) recordIngest(status string, occurredAt time.Time) {
	if c.metrics == nil {
		return
	}
	lag := time.Duration(-1)
	if status == "stored" && !occurredAt.IsZero() {
		lag = time.Since(occurredAt)
	}
	c.metrics.RecordBasketIngest(status, lag)
}

// Run consumes until ctx is cancelled or the reader closes.  Malformed
// messages are committed and skipped so a bad producer cannot wedge the
// partition; sink failures are not committed and will be redelivered.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if stderrors.Is(err, context.Canceled) || stderrors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, errors.ErrCodeInternal, "kafka fetch failed")
		}
		c.stats.Consumed.Add(1)

		var event BasketEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.stats.Malformed.Add(1)
			c.recordIngest("malformed", time.Time{})
			c.logger.Warn("skipping malformed basket event",
				logging.String("topic", msg.Topic),
				logging.Int("partition", msg.Partition),
				logging.Err(err),
			)
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "kafka commit failed")
			}
			continue
		}

		if err := c.sink.Append(ctx, association.Transaction{Items: event.Items}, event.OccurredAt); err != nil {
			c.stats.Failed.Add(1)
			c.recordIngest("failed", time.Time{})
			c.logger.Error("failed to store basket",
				logging.String("order_id", event.OrderID),
				logging.Err(err),
			)
			// No commit: the message is redelivered after the backoff.
			continue
		}
		c.stats.Stored.Add(1)
		c.recordIngest("stored", event.OccurredAt)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "kafka commit failed")
		}
	}
}

// Stats exposes the consumer counters.
func (c *Consumer) Stats() *ConsumerStats { return &c.stats }

// Close releases the underlying reader.
func (c *Consumer) Close() error { return c.reader.Close() }
