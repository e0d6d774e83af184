// Package changefeed holds the subscription plumbing shared by the realtime
// change feed adapters.
package changefeed

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/beacon-outage-service/internal/domain"
)

// OpUnknown marks a notification whose payload could not be decoded.
const OpUnknown = "UNKNOWN"

// Subscription delivers change events for a set of tables until it is closed
// or fails. Changes is never closed; watch Done instead.
type Subscription interface {
	Changes() <-chan domain.ChangeEvent
	// Done is closed when the subscription fails or is closed.
	Done() <-chan struct{}
	// Err reports why Done was closed, or nil after a clean Close.
	Err() error
	Close() error
}

// Stream is a Subscription fed by an adapter goroutine.
type Stream struct {
	events  chan domain.ChangeEvent
	done    chan struct{}
	tables  map[string]struct{}
	onClose func() error

	once   sync.Once
	mu     sync.Mutex
	err    error
	closed bool
}

// NewStream creates a stream delivering events for tables. onClose releases
// the adapter's resources and runs once, on the first Close.
func NewStream(tables []string, buffer int, onClose func() error) *Stream {
	set := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		set[t] = struct{}{}
	}
	if buffer < 1 {
		buffer = 1
	}
	return &Stream{
		events:  make(chan domain.ChangeEvent, buffer),
		done:    make(chan struct{}),
		tables:  set,
		onClose: onClose,
	}
}

// Changes delivers the events the stream wants.
func (s *Stream) Changes() <-chan domain.ChangeEvent { return s.events }

// Done is closed when the stream ends, by Close or a failure.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Err returns the failure that ended the stream, or nil.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wants reports whether an event concerns this stream. Events without a
// table (reconnects, undecodable payloads) concern every stream.
func (s *Stream) Wants(ev domain.ChangeEvent) bool {
	if ev.Table == "" || len(s.tables) == 0 {
		return true
	}
	_, ok := s.tables[ev.Table]
	return ok
}

// Publish offers an event without blocking. It reports false when the event
// was filtered out, the stream has ended, or the buffer is full; a full
// buffer already holds a pending trigger, so nothing is lost.
func (s *Stream) Publish(ev domain.ChangeEvent) bool {
	if !s.Wants(ev) {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

// Fail ends the stream with err. Later calls and calls after Close are no-ops.
func (s *Stream) Fail(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}

// Close ends the stream and releases the adapter. It is safe to call more than once.
func (s *Stream) Close() error {
	s.once.Do(func() { close(s.done) })

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.onClose != nil {
		return s.onClose()
	}
	return nil
}

// payload is the JSON notification body shared by every feed.
type payload struct {
	Table string          `json:"table"`
	Type  string          `json:"type"`
	ID    json.RawMessage `json:"id"`
}

// Decode parses a notification payload. It never fails: a payload that cannot
// be decoded yields an OpUnknown event with no table, which still triggers a
// reload of every subscriber.
func Decode(data []byte, at time.Time) domain.ChangeEvent {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.ChangeEvent{Op: OpUnknown, At: at}
	}
	ev := domain.ChangeEvent{
		Table: p.Table,
		Op:    strings.ToUpper(p.Type),
		At:    at,
	}
	if ev.Op == "" {
		ev.Op = OpUnknown
	}
	if len(p.ID) > 0 {
		var s string
		if err := json.Unmarshal(p.ID, &s); err == nil {
			ev.RecordID = s
		} else {
			ev.RecordID = strings.TrimSpace(string(p.ID))
		}
		if ev.RecordID == "null" {
			ev.RecordID = ""
		}
	}
	return ev
}

// Reconnected is the synthetic event emitted after a feed reconnects.
func Reconnected(at time.Time) domain.ChangeEvent {
	return domain.ChangeEvent{Op: domain.OpReconnect, At: at}
}
