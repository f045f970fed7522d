package registration

import (
	"context"

	id "eventreg/pkg/domain"
)

// FindFilter narrows FindByOccurrence. The zero value matches everything.
type FindFilter struct {
	// Email matches registrations by normalized email when non-empty.
	Email string
	// ExcludeStatus drops registrations in the given status when non-empty.
	// Duplicate and capacity checks exclude Canceled this way.
	ExcludeStatus Status
}

// Store persists registrations. Implementations return pkg/platform/sentinel
// errors; the service layer translates them into domain errors.
//
// The §5-style check-then-act guarantee (capacity + duplicate checks followed
// by a write must be atomic per occurrence) is provided by the service
// serializing submissions per occurrence through a Locker, so stores only
// need individually atomic operations.
type Store interface {
	GetByID(ctx context.Context, registrationID id.RegistrationID) (*Registration, error)
	FindByOccurrence(ctx context.Context, occurrenceID id.OccurrenceID, filter FindFilter) ([]*Registration, error)
	// SumQuantityForType totals line quantities for a ticket type across all
	// registrations except those in excludeStatus.
	SumQuantityForType(ctx context.Context, ticketTypeID id.TicketTypeID, excludeStatus Status) (int, error)
	// Save persists the registration and its lines atomically. It inserts on
	// first save and replaces lines on update.
	Save(ctx context.Context, registration *Registration) error
	// ListUnconfirmed returns every registration still waiting for
	// confirmation, ordered by creation time. Used by the expiry sweeper.
	ListUnconfirmed(ctx context.Context) ([]*Registration, error)
}
