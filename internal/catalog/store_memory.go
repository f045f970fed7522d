package catalog

import (
	"context"
	"sort"
	"sync"

	id "eventreg/pkg/domain"
	"eventreg/pkg/platform/sentinel"
)

// InMemoryStore is the single-process catalog used in tests and development.
type InMemoryStore struct {
	mu          sync.RWMutex
	events      map[id.EventID]Event
	occurrences map[id.OccurrenceID]Occurrence
	ticketTypes map[id.TicketTypeID]TicketType
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events:      make(map[id.EventID]Event),
		occurrences: make(map[id.OccurrenceID]Occurrence),
		ticketTypes: make(map[id.TicketTypeID]TicketType),
	}
}

// PutEvent seeds an event. Intended for tests and fixtures.
func (s *InMemoryStore) PutEvent(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event
}

func (s *InMemoryStore) PutOccurrence(occurrence Occurrence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.occurrences[occurrence.ID] = occurrence
}

func (s *InMemoryStore) PutTicketType(ticketType TicketType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticketTypes[ticketType.ID] = ticketType
}

func (s *InMemoryStore) GetEvent(_ context.Context, eventID id.EventID) (Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventID]
	if !ok {
		return Event{}, sentinel.ErrNotFound
	}
	return event, nil
}

func (s *InMemoryStore) GetOccurrence(_ context.Context, occurrenceID id.OccurrenceID) (Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	occurrence, ok := s.occurrences[occurrenceID]
	if !ok {
		return Occurrence{}, sentinel.ErrNotFound
	}
	return occurrence, nil
}

func (s *InMemoryStore) ListTicketTypes(_ context.Context, occurrenceID id.OccurrenceID) ([]TicketType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TicketType
	for _, ticketType := range s.ticketTypes {
		if ticketType.OccurrenceID == occurrenceID {
			out = append(out, ticketType)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *InMemoryStore) GetTicketType(_ context.Context, ticketTypeID id.TicketTypeID) (TicketType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticketType, ok := s.ticketTypes[ticketTypeID]
	if !ok {
		return TicketType{}, sentinel.ErrNotFound
	}
	return ticketType, nil
}
