// Package publisher ships audit events to Kafka. Publishing is best-effort:
// the succession engine's atomic unit is store mutation + ledger append, and
// a Kafka outage must never roll back a committed transition.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "sangha/pkg/platform/audit"
)

// KafkaPublisher emits audit events to a single topic, keyed by subject so
// per-person event order is preserved within a partition.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka builds a publisher with its own client over the seed brokers.
func NewKafka(seedBrokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(seedBrokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

// Emit publishes one event. Errors are returned for the caller to log; they
// are never fatal for the emitting operation.
func (p *KafkaPublisher) Emit(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Subject),
		Value: value,
	}

	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil && p.logger != nil {
			p.logger.ErrorContext(ctx, "audit event publish failed",
				"topic", p.topic,
				"subject", event.Subject,
				"action", event.Action,
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes buffered records and releases the client.
func (p *KafkaPublisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	p.client.Close()
	return nil
}
