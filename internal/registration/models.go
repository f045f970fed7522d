package registration

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"eventreg/internal/catalog"
	id "eventreg/pkg/domain"
	dErrors "eventreg/pkg/domain-errors"
)

// Status is the lifecycle state of a registration. Transitions are monotonic
// except for explicit cancellation, which is reachable from any state.
type Status string

const (
	StatusUnsubmitted Status = "Unsubmitted"
	StatusUnconfirmed Status = "Unconfirmed"
	StatusValid       Status = "Valid"
	StatusCanceled    Status = "Canceled"
)

// TicketLine is one (ticket type, quantity) pair inside a registration.
// Quantity is always positive; a zero-quantity line is absent, never stored.
type TicketLine struct {
	TicketTypeID id.TicketTypeID
	Title        string
	Quantity     int
}

// Selection maps ticket type IDs to requested quantities. It is ephemeral
// workflow input and never persisted.
type Selection map[id.TicketTypeID]int

// TotalQuantity sums requested quantities across the selection.
func (s Selection) TotalQuantity() int {
	total := 0
	for _, quantity := range s {
		total += quantity
	}
	return total
}

// Registrant carries the submitted contact fields.
type Registrant struct {
	Name  string
	Email string
}

// Identity is an authenticated principal, resolved by the caller and passed
// explicitly so the workflow has no ambient session dependency.
type Identity struct {
	MemberID id.MemberID
	Name     string
	Email    string
}

// Registration is the persisted aggregate.
type Registration struct {
	ID           id.RegistrationID
	OccurrenceID id.OccurrenceID
	MemberID     id.MemberID // nil UUID when the registrant was anonymous
	Name         string
	Email        string
	Status       Status
	Total        catalog.Money
	// Token grants holder-based access to view and confirm the registration.
	// It is assigned exactly once, at first persistence, and never changes.
	Token     string
	Lines     []TicketLine
	CreatedAt time.Time
}

// TotalQuantity sums the quantities across all line items.
func (r *Registration) TotalQuantity() int {
	total := 0
	for _, line := range r.Lines {
		total += line.Quantity
	}
	return total
}

// Description renders the line items for notifications, e.g.
// "Spring Gala: 2xEarly Bird,1xDoor".
func (r *Registration) Description(eventTitle string) string {
	parts := make([]string, 0, len(r.Lines))
	for _, line := range r.Lines {
		parts = append(parts, fmt.Sprintf("%dx%s", line.Quantity, line.Title))
	}
	return eventTitle + ": " + strings.Join(parts, ",")
}

// ConfirmDeadline returns the moment an unconfirmed registration expires.
// The deadline exists only while the status is Unconfirmed and the event
// defines a confirm time limit; otherwise it returns false.
func (r *Registration) ConfirmDeadline(limit *time.Duration) (time.Time, bool) {
	if r.Status != StatusUnconfirmed || limit == nil {
		return time.Time{}, false
	}
	return r.CreatedAt.Add(*limit), true
}

// CreationStatus decides the state a freshly validated registration starts
// in. Paid totals wait for payment; free totals either wait for confirmation
// or become valid immediately, per event policy.
func CreationStatus(total catalog.Money, requiresConfirmation bool) Status {
	if total.Amount > 0 {
		return StatusUnsubmitted
	}
	if requiresConfirmation {
		return StatusUnconfirmed
	}
	return StatusValid
}

// MarkPaid advances Unsubmitted to Valid on payment confirmation.
func (r *Registration) MarkPaid() error {
	if r.Status != StatusUnsubmitted {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot mark a %s registration as paid", r.Status))
	}
	r.Status = StatusValid
	return nil
}

// Confirm advances Unconfirmed to Valid when the presented token matches.
// The comparison is constant time. State is unchanged on any failure.
func (r *Registration) Confirm(presentedToken string) error {
	if r.Status != StatusUnconfirmed {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot confirm a %s registration", r.Status))
	}
	if !tokenMatches(r.Token, presentedToken) {
		return dErrors.New(dErrors.CodeTokenMismatch, "confirmation token does not match")
	}
	r.Status = StatusValid
	return nil
}

// Cancel sets the status to Canceled from any state. Canceling an already
// canceled registration is a no-op, not an error. Canceled registrations no
// longer count toward capacity or duplicate-email checks.
func (r *Registration) Cancel() {
	r.Status = StatusCanceled
}

func tokenMatches(expected, presented string) bool {
	if expected == "" || len(expected) != len(presented) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}
