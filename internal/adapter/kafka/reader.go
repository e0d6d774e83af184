// Package kafka streams table changes from a CDC topic and publishes them
// for fixtures and tests.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/beacon-outage-service/internal/changefeed"
	"github.com/couchcryptid/beacon-outage-service/internal/config"
	"github.com/couchcryptid/beacon-outage-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const subscriptionBuffer = 16

// messageReader is the subset of kafkago.Reader used by a subscription.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// ChangeFeed subscribes to a CDC topic carrying the same JSON payload as the
// database triggers. Every subscription is its own consumer group, so each
// view sees every change.
type ChangeFeed struct {
	brokers []string
	topic   string
	groupID string
	logger  *slog.Logger
}

// NewChangeFeed creates a change feed from the Kafka settings in cfg.
func NewChangeFeed(cfg *config.Config, logger *slog.Logger) *ChangeFeed {
	return &ChangeFeed{
		brokers: cfg.KafkaBrokers,
		topic:   cfg.KafkaChangeTopic,
		groupID: cfg.KafkaGroupID,
		logger:  logger,
	}
}

// Subscribe starts a consumer for tables. Offsets are committed after each
// change is handed to the subscriber.
func (f *ChangeFeed) Subscribe(_ context.Context, name string, tables []string) (changefeed.Subscription, error) {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     f.brokers,
		Topic:       f.topic,
		GroupID:     f.groupID + "." + name,
		StartOffset: kafkago.LastOffset,
		MinBytes:    1,
		MaxBytes:    1 << 20,
	})
	f.logger.Info("change subscription opened", "subscription", name, "topic", f.topic, "tables", tables)
	return f.consume(r, name, tables), nil
}

func (f *ChangeFeed) consume(r messageReader, name string, tables []string) *changefeed.Stream {
	ctx, cancel := context.WithCancel(context.Background())
	stream := changefeed.NewStream(tables, subscriptionBuffer, func() error {
		cancel()
		return r.Close()
	})
	go f.pump(ctx, r, stream, name)
	return stream
}

func (f *ChangeFeed) pump(ctx context.Context, r messageReader, stream *changefeed.Stream, name string) {
	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			f.logger.Error("change subscription failed", "subscription", name, "error", err)
			stream.Fail(fmt.Errorf("subscription %s: %w", name, err))
			return
		}

		ev := mapMessageToChangeEvent(msg)
		if ev.Table == "" {
			f.logger.Warn("malformed change payload", "subscription", name,
				"partition", msg.Partition, "offset", msg.Offset)
		}
		stream.Publish(ev)

		if err := r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			f.logger.Warn("commit offset failed", "subscription", name, "error", err,
				"partition", msg.Partition, "offset", msg.Offset)
		}
	}
}

// mapMessageToChangeEvent decodes a CDC message. Undecodable values still
// produce a change so the subscriber reloads.
func mapMessageToChangeEvent(msg kafkago.Message) domain.ChangeEvent {
	return changefeed.Decode(msg.Value, msg.Time)
}
