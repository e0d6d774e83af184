package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/beacon-outage-service/internal/config"
	"github.com/couchcryptid/beacon-outage-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces change notifications to the CDC topic. The service only
// consumes the topic; the publisher serves the fixture seeder and tests.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured change topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaChangeTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishChanges serializes and publishes change notifications in a single
// WriteMessages call.
func (p *Publisher) PublishChanges(ctx context.Context, changes []domain.ChangeEvent) error {
	if len(changes) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(changes))
	for i := range changes {
		msg, err := serializeChange(changes[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish changes: %w", err)
	}
	p.logger.Debug("changes published", "count", len(msgs), "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeChange marshals a change into a message keyed by table, so changes
// to one table stay ordered within a partition.
func serializeChange(ev domain.ChangeEvent) (kafkago.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize change: %w", err)
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return kafkago.Message{
		Key:   []byte(ev.Table),
		Value: data,
		Time:  at,
		Headers: []kafkago.Header{
			{Key: "change_type", Value: []byte(ev.Op)},
			{Key: "published_at", Value: []byte(at.UTC().Format(time.RFC3339))},
		},
	}, nil
}
