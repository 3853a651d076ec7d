// Package kafka publishes account notifications to a Kafka topic. Events are
// keyed by handle so per-account ordering is preserved across partitions.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"aliaspay/internal/notify"
)

type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewPublisher(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

func (p *Publisher) Publish(ctx context.Context, event notify.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Handle),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", p.topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.client.Close()
	return nil
}
