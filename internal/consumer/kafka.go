// internal/consumer/kafka.go
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/javajoker/fifo-inventory/internal/config"
	"github.com/javajoker/fifo-inventory/internal/inventory"
	"github.com/javajoker/fifo-inventory/internal/models"
	"github.com/javajoker/fifo-inventory/internal/observability"
)

const (
	tracerName = "github.com/javajoker/fifo-inventory/internal/consumer"

	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Applier applies one inventory event.
type Applier interface {
	Apply(ctx context.Context, raw models.RawEvent) (*inventory.Result, error)
}

// Stats counts what the consumer has done since start.
type Stats struct {
	Applied   uint64 `json:"applied"`
	Rejected  uint64 `json:"rejected"`
	Malformed uint64 `json:"malformed"`
	Retried   uint64 `json:"retried"`
}

type Consumer struct {
	reader  Reader
	applier Applier
	logger  logrus.FieldLogger
	tracer  trace.Tracer
	sleep   func(ctx context.Context, d time.Duration) error

	applied   atomic.Uint64
	rejected  atomic.Uint64
	malformed atomic.Uint64
	retried   atomic.Uint64
}

func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
		MaxWait:  cfg.MaxWait,
	})
}

func New(reader Reader, applier Applier, logger logrus.FieldLogger) *Consumer {
	return &Consumer{
		reader:  reader,
		applier: applier,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
		sleep:   sleepContext,
	}
}

// Run consumes until ctx is done or the reader is closed. A message is
// committed once it is applied or rejected for good. On an infrastructure
// failure the same message is retried with backoff and never skipped, since
// committing a later offset would skip it too.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Kafka consumer started. Waiting for messages...")
	defer c.logger.Info("Kafka consumer stopped")

	fetchBackOff := newBackOff()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.WithError(err).Error("Failed to fetch Kafka message")
			if err := c.sleep(ctx, fetchBackOff.NextBackOff()); err != nil {
				return nil
			}
			continue
		}
		fetchBackOff.Reset()

		if err := c.process(ctx, msg); err != nil {
			return nil
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to commit offset %d: %w", msg.Offset, err)
		}
	}
}

// process handles msg until it can be committed. It only fails when ctx
// ends first.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	retry := newBackOff()
	for {
		err := c.Handle(ctx, msg)
		if err == nil {
			return nil
		}

		wait := retry.NextBackOff()
		c.retried.Add(1)
		c.logger.WithError(err).WithFields(logrus.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
			"backoff":   wait.String(),
		}).Error("Failed to apply inventory event, retrying")

		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Handle applies one message. It returns nil when the message is done with,
// including when it was malformed or rejected, and an error only when it
// should be retried.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) error {
	ctx = observability.ExtractKafkaContext(ctx, msg.Headers)
	ctx, span := c.tracer.Start(ctx, "inventory.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	fields := logrus.Fields{
		"key":       string(msg.Key),
		"partition": msg.Partition,
		"offset":    msg.Offset,
	}

	var raw models.RawEvent
	if err := json.Unmarshal(msg.Value, &raw); err != nil {
		c.malformed.Add(1)
		span.SetStatus(codes.Error, "malformed event")
		c.logger.WithError(err).WithFields(fields).WithField("raw_value", string(msg.Value)).
			Warn("Skipping malformed inventory event")
		return nil
	}

	result, err := c.applier.Apply(ctx, raw)
	switch {
	case err == nil:
		c.applied.Add(1)
		c.logger.WithFields(fields).WithFields(logrus.Fields{
			"product_id": result.Transaction.ProductID,
			"event_type": result.Transaction.EventType,
			"sequence":   result.Transaction.Sequence,
		}).Info("Inventory event applied")
		return nil
	case inventory.IsRejection(err):
		c.rejected.Add(1)
		span.SetStatus(codes.Error, err.Error())
		c.logger.WithError(err).WithFields(fields).WithField("product_id", raw.ProductID).
			Warn("Inventory event rejected")
		return nil
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
}

func (c *Consumer) Stats() Stats {
	return Stats{
		Applied:   c.applied.Load(),
		Rejected:  c.rejected.Load(),
		Malformed: c.malformed.Load(),
		Retried:   c.retried.Load(),
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// newBackOff never gives up; the caller stops retrying when ctx ends.
func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = minBackoff
	b.MaxInterval = maxBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
