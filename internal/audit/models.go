package audit

import (
	"time"

	id "eventreg/pkg/domain"
)

// Action labels what happened to a registration.
type Action string

const (
	ActionSubmitted Action = "registration.submitted"
	ActionConfirmed Action = "registration.confirmed"
	ActionPaid      Action = "registration.paid"
	ActionCanceled  Action = "registration.canceled"
	ActionExpired   Action = "registration.expired"
)

// Event is emitted from domain logic to capture key registration actions.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp      time.Time
	Action         Action
	RegistrationID id.RegistrationID
	OccurrenceID   id.OccurrenceID
	Email          string
	Detail         string
}
