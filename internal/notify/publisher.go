package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aliaspay/internal/platform/metrics"
)

// Publisher delivers account notifications to a sink. Delivery is best effort:
// services never fail a business operation because a notification could not be
// published.
type Publisher interface {
	Emit(ctx context.Context, event Event)
}

// Sink is the terminal destination for events, either a broker producer or a
// store. Sinks may fail; the publisher absorbs the failure.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Store keeps events queryable for tests and the in-process sink.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByHandle(ctx context.Context, handle string) ([]Event, error)
}

// AsyncPublisher buffers events onto an inbox channel drained by a Worker.
// When the inbox is full the event is dropped and counted, never blocked on.
type AsyncPublisher struct {
	inbox   chan Event
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*AsyncPublisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *AsyncPublisher) { p.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *AsyncPublisher) { p.metrics = m }
}

func NewAsyncPublisher(buffer int, opts ...Option) *AsyncPublisher {
	p := &AsyncPublisher{
		inbox:  make(chan Event, buffer),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Inbox exposes the receive side for the worker.
func (p *AsyncPublisher) Inbox() <-chan Event {
	return p.inbox
}

func (p *AsyncPublisher) Emit(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		if p.metrics != nil {
			p.metrics.NotifyDropped.Inc()
		}
		p.logger.WarnContext(ctx, "notification inbox full, dropping event",
			"action", event.Action,
			"handle", event.Handle,
		)
	}
}

// NopPublisher discards all events. Useful in tests that do not assert on
// notifications.
type NopPublisher struct{}

func (NopPublisher) Emit(context.Context, Event) {}
