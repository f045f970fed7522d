package domain

import (
	"github.com/google/uuid"

	dErrors "eventreg/pkg/domain-errors"
)

// Typed IDs prevent cross-entity mixups at compile time. All IDs are UUIDs
// and must be parsed at trust boundaries with the ParseXxxID helpers, which
// reject empty, malformed, and nil values.
type (
	EventID        uuid.UUID
	OccurrenceID   uuid.UUID
	TicketTypeID   uuid.UUID
	RegistrationID uuid.UUID
	MemberID       uuid.UUID
)

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s)
	return EventID(u), err
}

func ParseOccurrenceID(s string) (OccurrenceID, error) {
	u, err := parseUUID(s)
	return OccurrenceID(u), err
}

func ParseTicketTypeID(s string) (TicketTypeID, error) {
	u, err := parseUUID(s)
	return TicketTypeID(u), err
}

func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := parseUUID(s)
	return RegistrationID(u), err
}

func ParseMemberID(s string) (MemberID, error) {
	u, err := parseUUID(s)
	return MemberID(u), err
}

func NewEventID() EventID               { return EventID(uuid.New()) }
func NewOccurrenceID() OccurrenceID     { return OccurrenceID(uuid.New()) }
func NewTicketTypeID() TicketTypeID     { return TicketTypeID(uuid.New()) }
func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }
func NewMemberID() MemberID             { return MemberID(uuid.New()) }

func (id EventID) String() string        { return uuid.UUID(id).String() }
func (id OccurrenceID) String() string   { return uuid.UUID(id).String() }
func (id TicketTypeID) String() string   { return uuid.UUID(id).String() }
func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id MemberID) String() string       { return uuid.UUID(id).String() }

func (id EventID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id OccurrenceID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id TicketTypeID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id RegistrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id MemberID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
