package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/beacon-outage-service/internal/changefeed"
	"github.com/lib/pq"
)

const (
	minReconnectInterval = 200 * time.Millisecond
	maxReconnectInterval = 5 * time.Second
	listenerPingInterval = 90 * time.Second
	subscriptionBuffer   = 16
)

// Listener is a change feed over Postgres LISTEN/NOTIFY. Each subscription
// holds its own connection.
type Listener struct {
	dsn    string
	logger *slog.Logger
}

// NewListener creates a change feed for the database at dsn.
func NewListener(dsn string, logger *slog.Logger) *Listener {
	return &Listener{dsn: dsn, logger: logger}
}

// Subscribe opens a dedicated connection and listens for changes to tables.
// A failed connection attempt ends the subscription with an error; the
// caller is expected to close it and subscribe again.
func (l *Listener) Subscribe(ctx context.Context, name string, tables []string) (changefeed.Subscription, error) {
	var pl *pq.Listener
	stream := changefeed.NewStream(tables, subscriptionBuffer, func() error {
		return pl.Close()
	})

	pl = pq.NewListener(l.dsn, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		l.handleEvent(stream, name, ev, err)
	})

	if err := listen(ctx, pl, NotifyChannel); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}

	l.logger.Info("change subscription opened", "subscription", name, "channel", NotifyChannel, "tables", tables)
	go l.pump(pl, stream, name)
	return stream, nil
}

// listen issues LISTEN, giving up when ctx ends.
func listen(ctx context.Context, pl *pq.Listener, channel string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- pl.Listen(channel) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Listener) handleEvent(stream *changefeed.Stream, name string, ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnectionAttemptFailed:
		if err == nil {
			err = errors.New("connection attempt failed")
		}
		l.logger.Error("change subscription failed", "subscription", name, "error", err)
		stream.Fail(fmt.Errorf("subscription %s: %w", name, err))
	case pq.ListenerEventDisconnected:
		l.logger.Warn("change subscription disconnected", "subscription", name, "error", err)
	case pq.ListenerEventReconnected:
		l.logger.Info("change subscription reconnected", "subscription", name)
	}
}

func (l *Listener) pump(pl *pq.Listener, stream *changefeed.Stream, name string) {
	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stream.Done():
			return
		case n, ok := <-pl.Notify:
			if !ok {
				stream.Fail(fmt.Errorf("subscription %s: listener closed", name))
				return
			}
			l.handleNotification(stream, name, n)
		case <-ticker.C:
			go func() { _ = pl.Ping() }()
		}
	}
}

// handleNotification forwards one notification. A nil notification follows a
// reconnect, after which anything may have been missed.
func (l *Listener) handleNotification(stream *changefeed.Stream, name string, n *pq.Notification) {
	now := time.Now()
	if n == nil {
		stream.Publish(changefeed.Reconnected(now))
		return
	}
	ev := changefeed.Decode([]byte(n.Extra), now)
	if ev.Table == "" {
		l.logger.Warn("malformed change payload", "subscription", name, "payload", n.Extra)
	}
	stream.Publish(ev)
}
