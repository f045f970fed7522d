package registration

import (
	"context"
	"sort"
	"sync"

	id "eventreg/pkg/domain"
	"eventreg/pkg/email"
	"eventreg/pkg/platform/sentinel"
)

// InMemoryStore keeps registrations in process memory. Used by tests and as
// the development default.
type InMemoryStore struct {
	mu            sync.RWMutex
	registrations map[id.RegistrationID]*Registration
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{registrations: make(map[id.RegistrationID]*Registration)}
}

func (s *InMemoryStore) GetByID(_ context.Context, registrationID id.RegistrationID) (*Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	registration, ok := s.registrations[registrationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRegistration(registration), nil
}

func (s *InMemoryStore) FindByOccurrence(_ context.Context, occurrenceID id.OccurrenceID, filter FindFilter) ([]*Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Registration
	for _, registration := range s.registrations {
		if registration.OccurrenceID != occurrenceID {
			continue
		}
		if filter.Email != "" && email.Normalize(registration.Email) != filter.Email {
			continue
		}
		if filter.ExcludeStatus != "" && registration.Status == filter.ExcludeStatus {
			continue
		}
		out = append(out, cloneRegistration(registration))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) SumQuantityForType(_ context.Context, ticketTypeID id.TicketTypeID, excludeStatus Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, registration := range s.registrations {
		if excludeStatus != "" && registration.Status == excludeStatus {
			continue
		}
		for _, line := range registration.Lines {
			if line.TicketTypeID == ticketTypeID {
				total += line.Quantity
			}
		}
	}
	return total, nil
}

func (s *InMemoryStore) Save(_ context.Context, registration *Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations[registration.ID] = cloneRegistration(registration)
	return nil
}

// ListUnconfirmed returns every unconfirmed registration. Used by the expiry
// sweeper.
func (s *InMemoryStore) ListUnconfirmed(_ context.Context) ([]*Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Registration
	for _, registration := range s.registrations {
		if registration.Status == StatusUnconfirmed {
			out = append(out, cloneRegistration(registration))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func cloneRegistration(registration *Registration) *Registration {
	clone := *registration
	clone.Lines = append([]TicketLine(nil), registration.Lines...)
	return &clone
}
