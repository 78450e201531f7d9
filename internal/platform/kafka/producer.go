// Package kafka wraps the franz-go client for the audit event pipeline.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"custodia/internal/platform/config"
)

const kafkaAdminTimeout = 10 * time.Second

// Producer publishes records to a single topic. Delivery is asynchronous;
// failures are logged, not returned, so audit emission never blocks a
// customer-facing flow.
type Producer struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewProducer connects to the configured brokers and ensures the audit topic
// exists. Returns nil if no brokers are configured (Kafka not in use).
func NewProducer(cfg config.KafkaConfig, logger *slog.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.AuditTopic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(client, cfg.AuditTopic); err != nil {
		client.Close()
		return nil, err
	}

	return &Producer{client: client, topic: cfg.AuditTopic, logger: logger}, nil
}

// ensureTopic creates the topic if it does not exist. Already-exists errors
// are tolerated so concurrent instance startups do not race.
func ensureTopic(client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	ctx, cancel := context.WithTimeout(context.Background(), kafkaAdminTimeout)
	defer cancel()

	resp, err := adm.CreateTopics(ctx, 3, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", topic, r.Err)
		}
	}
	return nil
}

// Produce sends a keyed record asynchronously.
func (p *Producer) Produce(ctx context.Context, key, value []byte) {
	rec := &kgo.Record{Topic: p.topic, Key: key, Value: value}
	p.client.Produce(ctx, rec, func(_ *kgo.Record, err error) {
		if err != nil && p.logger != nil {
			p.logger.Error("audit record delivery failed",
				"topic", p.topic,
				"error", err,
			)
		}
	})
}

// Flush blocks until buffered records are delivered or ctx expires.
func (p *Producer) Flush(ctx context.Context) error {
	return p.client.Flush(ctx)
}

// Close flushes and releases the underlying client.
func (p *Producer) Close() {
	p.client.Close()
}
