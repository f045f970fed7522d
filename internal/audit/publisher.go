package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher hands audit events to the worker without blocking the request
// path. A full inbox drops the event and logs it; the audit trail is best
// effort and must never fail a registration.
type Publisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewPublisher(inbox chan<- Event, logger *slog.Logger) *Publisher {
	return &Publisher{inbox: inbox, logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, dropping event",
			"action", string(event.Action),
			"registration_id", event.RegistrationID.String(),
		)
	}
}
