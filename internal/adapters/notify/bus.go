// Package notify provides an in-process event bus implementing
// ports.EventPublisher. Sync events fan out to subscribers such as the
// status log; delivery is best-effort and never blocks the publisher.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jsamuelsen/quote-sync/internal/domain"
	"github.com/jsamuelsen/quote-sync/internal/ports"
)

// defaultBuffer is the per-subscriber queue size when none is configured.
const defaultBuffer = 16

// Config contains configuration for the event bus.
type Config struct {
	// Buffer is the per-subscriber queue size. Defaults to 16.
	Buffer int

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Bus is a thread-safe in-process event bus.
// Publish never blocks: events for a subscriber whose queue is full are
// dropped with a warning. Subscribers receive events in publish order.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	closed bool

	buffer int
	logger *slog.Logger
}

// subscriber holds one delivery queue and its optional type filter.
type subscriber struct {
	ch    chan ports.Event
	types map[string]struct{} // nil means all event types
}

func (s *subscriber) wants(eventType string) bool {
	if s.types == nil {
		return true
	}

	_, ok := s.types[eventType]

	return ok
}

// New creates a new event bus.
func New(cfg Config) *Bus {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Bus{
		subs:   make(map[int]*subscriber),
		buffer: buffer,
		logger: logger.With(slog.String("component", "notify.Bus")),
	}
}

// Publish sends an event to all matching subscribers.
// Implements ports.EventPublisher. Publishing to a closed bus returns
// domain.ErrUnavailable; a full subscriber queue drops the event for that
// subscriber only.
func (b *Bus) Publish(ctx context.Context, event ports.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return domain.NewUnavailableError("event-bus", "bus closed")
	}

	for _, sub := range b.subs {
		if !sub.wants(event.EventType()) {
			continue
		}

		select {
		case sub.ch <- event:
		default:
			b.logger.WarnContext(ctx, "dropping event for slow subscriber",
				slog.String("event_type", event.EventType()))
		}
	}

	return nil
}

// Subscribe registers a new subscriber and returns its delivery channel
// along with a cancel function. With no types, the subscriber receives
// every event; otherwise only the named types. Cancel closes the channel
// and is safe to call more than once.
func (b *Bus) Subscribe(types ...string) (<-chan ports.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{ch: make(chan ports.Event, b.buffer)}
	if len(types) > 0 {
		sub.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	id := b.nextID
	b.nextID++

	if b.closed {
		// A closed bus hands back an already-closed channel so callers
		// can still range over it.
		close(sub.ch)
		return sub.ch, func() {}
	}

	b.subs[id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
	}

	return sub.ch, cancel
}

// Close shuts the bus down. All subscriber channels are closed and further
// publishes fail with domain.ErrUnavailable. Close is idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
