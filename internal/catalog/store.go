package catalog

import (
	"context"

	id "eventreg/pkg/domain"
)

// Store is the read-only catalog view consumed by the registration core.
// Implementations return sentinel.ErrNotFound (wrapped) for unknown IDs; the
// registration validator treats an unknown ticket type inside a selection as
// a validation failure, never a crash.
type Store interface {
	GetEvent(ctx context.Context, eventID id.EventID) (Event, error)
	GetOccurrence(ctx context.Context, occurrenceID id.OccurrenceID) (Occurrence, error)
	ListTicketTypes(ctx context.Context, occurrenceID id.OccurrenceID) ([]TicketType, error)
	GetTicketType(ctx context.Context, ticketTypeID id.TicketTypeID) (TicketType, error)
}
