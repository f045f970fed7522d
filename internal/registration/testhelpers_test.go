package registration

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"eventreg/internal/catalog"
	id "eventreg/pkg/domain"
)

// fixture holds a seeded catalog plus the stores a test drives directly.
type fixture struct {
	catalog      *catalog.InMemoryStore
	store        *InMemoryStore
	event        catalog.Event
	occurrence   catalog.Occurrence
	paidTicket   catalog.TicketType
	freeTicket   catalog.TicketType
	scarceTicket catalog.TicketType
}

// fixtureOption tweaks the seeded event before it is stored.
type fixtureOption func(*catalog.Event)

func withOneRegPerEmail() fixtureOption {
	return func(e *catalog.Event) { e.OneRegPerEmail = true }
}

func withRequiresConfirmation(limit *time.Duration) fixtureOption {
	return func(e *catalog.Event) {
		e.RequiresConfirmation = true
		e.ConfirmTimeLimit = limit
	}
}

// newFixture seeds one event with one occurrence and three ticket types:
// a paid one (10.00 USD, unlimited), a free one (unlimited), and a paid one
// with capacity 3.
func newFixture(opts ...fixtureOption) *fixture {
	f := &fixture{
		catalog: catalog.NewInMemoryStore(),
		store:   NewInMemoryStore(),
	}

	f.event = catalog.Event{ID: id.NewEventID(), Title: "Spring Gala"}
	for _, opt := range opts {
		opt(&f.event)
	}
	f.catalog.PutEvent(f.event)

	f.occurrence = catalog.Occurrence{
		ID:       id.NewOccurrenceID(),
		EventID:  f.event.ID,
		StartsAt: time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC),
	}
	f.catalog.PutOccurrence(f.occurrence)

	f.paidTicket = catalog.TicketType{
		ID:           id.NewTicketTypeID(),
		OccurrenceID: f.occurrence.ID,
		Title:        "General Admission",
		Price:        catalog.Money{Amount: 1000, Currency: "USD"},
		Kind:         catalog.TicketKindPaid,
	}
	f.catalog.PutTicketType(f.paidTicket)

	f.freeTicket = catalog.TicketType{
		ID:           id.NewTicketTypeID(),
		OccurrenceID: f.occurrence.ID,
		Title:        "Volunteer",
		Kind:         catalog.TicketKindFree,
	}
	f.catalog.PutTicketType(f.freeTicket)

	scarceCap := 3
	f.scarceTicket = catalog.TicketType{
		ID:           id.NewTicketTypeID(),
		OccurrenceID: f.occurrence.ID,
		Title:        "Early Bird",
		Price:        catalog.Money{Amount: 500, Currency: "USD"},
		Kind:         catalog.TicketKindPaid,
		Capacity:     &scarceCap,
	}
	f.catalog.PutTicketType(f.scarceTicket)

	return f
}

// putTicketType adds an extra ticket type to the seeded occurrence.
func (f *fixture) putTicketType(title string, price catalog.Money, kind catalog.TicketKind, capacity *int) catalog.TicketType {
	ticketType := catalog.TicketType{
		ID:           id.NewTicketTypeID(),
		OccurrenceID: f.occurrence.ID,
		Title:        title,
		Price:        price,
		Kind:         kind,
		Capacity:     capacity,
	}
	f.catalog.PutTicketType(ticketType)
	return ticketType
}

func (f *fixture) service(opts ...ServiceOption) *Service {
	return NewService(
		f.catalog,
		f.store,
		NewMutexLocker(),
		&sequenceTokenSource{},
		NewValidator(f.catalog, f.store),
		testLogger(),
		opts...,
	)
}

// sequenceTokenSource yields deterministic 40-character tokens.
type sequenceTokenSource struct {
	mu sync.Mutex
	n  int
}

func (s *sequenceTokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%040d", s.n), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
