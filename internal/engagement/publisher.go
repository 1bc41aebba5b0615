package engagement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Publisher emits stored engagement events for downstream consumers
// (analytics, offline training). Publishing is best-effort: callers log
// failures and continue, the stored event is the source of truth.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// KafkaPublisher publishes events to a Kafka topic, keyed by user ID so one
// user's actions stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafkaPublisher creates a publisher writing to the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger,
	}
}

// Publish writes the event as JSON.
func (p *KafkaPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal engagement event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish engagement event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event *Event) error { return nil }
func (NopPublisher) Close() error                                    { return nil }
