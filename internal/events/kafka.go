package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic receives search events.
	Topic string
	// BatchSize is the maximum number of messages per produce request.
	BatchSize int
	// BatchTimeout bounds how long a partial batch waits before flushing.
	BatchTimeout time.Duration
}

// DeliveryObserver is told whether each batch reached the broker.
type DeliveryObserver interface {
	RecordEventPublished(ok bool)
}

// messageWriter is the subset of *kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes event envelopes to a Kafka topic. The underlying
// writer runs in async mode, so PublishSearchCompleted only enqueues.
type KafkaPublisher struct {
	writer messageWriter
	logger zerolog.Logger
	now    func() time.Time
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher backed by an async kafka.Writer.
func NewKafkaPublisher(cfg Config, observer DeliveryObserver, logger zerolog.Logger) *KafkaPublisher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = time.Second
	}

	logger = logger.With().Str("component", "event_publisher").Str("topic", cfg.Topic).Logger()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if observer != nil {
				for range messages {
					observer.RecordEventPublished(err == nil)
				}
			}
			if err != nil {
				logger.Warn().Err(err).Int("messages", len(messages)).Msg("event delivery failed")
			}
		},
	}

	return newKafkaPublisher(writer, logger)
}

func newKafkaPublisher(writer messageWriter, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		logger: logger,
		now:    time.Now,
	}
}

// PublishSearchCompleted enqueues a search.completed event keyed by query.
func (p *KafkaPublisher) PublishSearchCompleted(ctx context.Context, event SearchCompleted) error {
	envelope, err := NewEnvelope(EventTypeSearchCompleted, event, p.now())
	if err != nil {
		return err
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Query),
		Value: value,
		Time:  envelope.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(envelope.EventType)},
			{Key: "event_id", Value: []byte(envelope.EventID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
