package catalog

import (
	"time"

	id "eventreg/pkg/domain"
)

// TicketKind distinguishes tickets that carry a price from free admission.
type TicketKind string

const (
	TicketKindFree TicketKind = "Free"
	TicketKindPaid TicketKind = "Paid"
)

// Money is an amount in minor units plus an ISO currency code. An empty
// Currency is the neutral/absent state, distinct from any chosen currency.
type Money struct {
	Amount   int64
	Currency string
}

// IsZero reports whether the money value is the neutral zero with no
// currency observed.
func (m Money) IsZero() bool {
	return m.Amount == 0 && m.Currency == ""
}

// Event holds the registration policy knobs configured per event.
type Event struct {
	ID                   id.EventID
	Title                string
	OneRegPerEmail       bool
	RequiresConfirmation bool
	// ConfirmTimeLimit bounds how long an unconfirmed registration may wait
	// before it becomes eligible for expiry. Nil means no deadline.
	ConfirmTimeLimit *time.Duration
}

// Occurrence is one scheduled instance of an Event.
type Occurrence struct {
	ID       id.OccurrenceID
	EventID  id.EventID
	StartsAt time.Time
}

// TicketType belongs to exactly one occurrence and is read-only to the
// registration core.
type TicketType struct {
	ID           id.TicketTypeID
	OccurrenceID id.OccurrenceID
	Title        string
	Price        Money
	Kind         TicketKind
	// Capacity is the maximum aggregate quantity sellable across all
	// non-canceled registrations. Nil means unlimited.
	Capacity *int
}
