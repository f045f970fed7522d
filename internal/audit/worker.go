package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and fans them out to the
// configured sinks. Sink failures are logged, never propagated, so a broken
// Kafka broker cannot stall registrations.
type Worker struct {
	inbox  <-chan Event
	store  Store
	sinks  []Sink
	logger *slog.Logger
}

// Sink receives every audit event after it has been persisted to the store.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

func NewWorker(inbox <-chan Event, store Store, logger *slog.Logger, sinks ...Sink) *Worker {
	return &Worker{inbox: inbox, store: store, sinks: sinks, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "append audit event",
					"action", string(event.Action),
					"error", err,
				)
			}
			for _, sink := range w.sinks {
				if err := sink.Publish(ctx, event); err != nil {
					w.logger.ErrorContext(ctx, "publish audit event",
						"action", string(event.Action),
						"error", err,
					)
				}
			}
		}
	}
}
