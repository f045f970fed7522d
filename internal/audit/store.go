package audit

import (
	"context"

	id "eventreg/pkg/domain"
)

// Store is an append-only audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByRegistration(ctx context.Context, registrationID id.RegistrationID) ([]Event, error)
}
