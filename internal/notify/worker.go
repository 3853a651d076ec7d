package notify

import (
	"context"
	"log/slog"
)

// Worker consumes events from an inbox and forwards them to a sink. Sink
// failures are logged and the event is dropped; the worker never stops on a
// delivery error.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Publish(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to publish notification",
					"action", event.Action,
					"handle", event.Handle,
					"error", err,
				)
			}
		}
	}
}
