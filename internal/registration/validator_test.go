package registration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "eventreg/pkg/domain"
	dErrors "eventreg/pkg/domain-errors"
)

func reasonFor(t *testing.T, err error, field string) string {
	t.Helper()
	require.Error(t, err)
	require.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "expected a validation error, got %v", err)
	for _, reason := range dErrors.ReasonsOf(err) {
		if reason.Field == field {
			return reason.Message
		}
	}
	t.Fatalf("no reason for field %q in %v", field, dErrors.ReasonsOf(err))
	return ""
}

func validRegistrant() Registrant {
	return Registrant{Name: "Jane Doe", Email: "jane@example.com"}
}

func TestValidate_AcceptsWellFormedSubmission(t *testing.T) {
	f := newFixture()
	v := NewValidator(f.catalog, f.store)

	err := v.Validate(context.Background(), f.occurrence, f.event,
		Selection{f.paidTicket.ID: 2}, validRegistrant(), nil, id.RegistrationID{})

	assert.NoError(t, err)
}

func TestValidate_RejectsEmptySelectionByDefault(t *testing.T) {
	f := newFixture()
	v := NewValidator(f.catalog, f.store)

	err := v.Validate(context.Background(), f.occurrence, f.event,
		Selection{}, validRegistrant(), nil, id.RegistrationID{})

	assert.Equal(t, "Please select at least one ticket", reasonFor(t, err, "Tickets"))
}

func TestValidate_ZeroQuantitySelectionCountsAsEmpty(t *testing.T) {
	f := newFixture()
	v := NewValidator(f.catalog, f.store)

	err := v.Validate(context.Background(), f.occurrence, f.event,
		Selection{f.paidTicket.ID: 0}, validRegistrant(), nil, id.RegistrationID{})

	assert.Equal(t, "Please select at least one ticket", reasonFor(t, err, "Tickets"))
}

func TestValidate_AllowEmptySelectionOption(t *testing.T) {
	f := newFixture()
	v := NewValidator(f.catalog, f.store, WithAllowEmptySelection())

	err := v.Validate(context.Background(), f.occurrence, f.event,
		Selection{}, validRegistrant(), nil, id.RegistrationID{})

	assert.NoError(t, err)
}

func TestValidate_RejectsNegativeQuantity(t *testing.T) {
	f := newFixture()
	v := NewValidator(f.catalog, f.store)

	err := v.Validate(context.Background(), f.occurrence, f.event,
		Selection{f.paidTicket.ID: -1}, validRegistrant(), nil, id.RegistrationID{})

	field := "Tickets." + f.paidTicket.ID.String()
	assert.Equal(t, "Please enter a valid quantity for your ticket order", reasonFor(t, err, field))
}

func TestValidate_RejectsUnknownTicketType(t *testing.T) {
	f := newFixture()
	v := NewValidator(f.catalog, f.store)
	unknown := id.NewTicketTypeID()

	err := v.Validate(context.Background(), f.occurrence, f.event,
		Selection{unknown: 1}, validRegistrant(), nil, id.RegistrationID{})

	field := "Tickets." + unknown.String()
	assert.Equal(t, "This ticket is not available for the selected event", reasonFor(t, err, field))
}

func TestValidate_CapacityBoundary(t *testing.T) {
	f := newFixture()
	v := NewValidator(f.catalog, f.store)

	// Two of the three scarce tickets are already held.
	seedRegistration(t, f, StatusValid, "held@example.com", f.scarceTicket.ID, 2)

	t.Run("filling the last slot passes", func(t *testing.T) {
		err := v.Validate(context.Background(), f.occurrence, f.event,
			Selection{f.scarceTicket.ID: 1}, validRegistrant(), nil, id.RegistrationID{})
		assert.NoError(t, err)
	})

	t.Run("one past capacity fails with the remainder", func(t *testing.T) {
		err := v.Validate(context.Background(), f.occurrence, f.event,
			Selection{f.scarceTicket.ID: 2}, validRegistrant(), nil, id.RegistrationID{})

		field := "Tickets." + f.scarceTicket.ID.String()
		assert.Equal(t, `Not enough "Early Bird" tickets available (1 left)`, reasonFor(t, err, field))
	})
}

func TestValidate_CanceledRegistrationsFreeCapacity(t *testing.T) {
	f := newFixture()
	v := NewValidator(f.catalog, f.store)

	seedRegistration(t, f, StatusCanceled, "gone@example.com", f.scarceTicket.ID, 3)

	err := v.Validate(context.Background(), f.occurrence, f.event,
		Selection{f.scarceTicket.ID: 3}, validRegistrant(), nil, id.RegistrationID{})

	assert.NoError(t, err)
}

func TestValidate_ResubmitExcludesOwnHeldQuantity(t *testing.T) {
	f := newFixture()
	v := NewValidator(f.catalog, f.store)

	// The draft already holds all three scarce tickets; resubmitting the same
	// quantity must not collide with itself.
	draft := seedRegistration(t, f, StatusUnsubmitted, "draft@example.com", f.scarceTicket.ID, 3)

	err := v.Validate(context.Background(), f.occurrence, f.event,
		Selection{f.scarceTicket.ID: 3}, validRegistrant(), nil, draft.ID)

	assert.NoError(t, err)
}

func TestValidate_DuplicateEmail(t *testing.T) {
	f := newFixture(withOneRegPerEmail())
	v := NewValidator(f.catalog, f.store)

	seedRegistration(t, f, StatusValid, "jane@example.com", f.paidTicket.ID, 1)

	t.Run("same address rejected", func(t *testing.T) {
		err := v.Validate(context.Background(), f.occurrence, f.event,
			Selection{f.paidTicket.ID: 1},
			Registrant{Name: "Jane Doe", Email: "jane@example.com"}, nil, id.RegistrationID{})

		assert.Equal(t, "A registration for this email address already exists", reasonFor(t, err, "Email"))
	})

	t.Run("casing does not bypass the policy", func(t *testing.T) {
		err := v.Validate(context.Background(), f.occurrence, f.event,
			Selection{f.paidTicket.ID: 1},
			Registrant{Name: "Jane Doe", Email: "  JANE@Example.COM "}, nil, id.RegistrationID{})

		assert.Equal(t, "A registration for this email address already exists", reasonFor(t, err, "Email"))
	})

	t.Run("different address passes", func(t *testing.T) {
		err := v.Validate(context.Background(), f.occurrence, f.event,
			Selection{f.paidTicket.ID: 1},
			Registrant{Name: "John Doe", Email: "john@example.com"}, nil, id.RegistrationID{})

		assert.NoError(t, err)
	})
}

func TestValidate_CanceledRegistrationFreesEmail(t *testing.T) {
	f := newFixture(withOneRegPerEmail())
	v := NewValidator(f.catalog, f.store)

	seedRegistration(t, f, StatusCanceled, "jane@example.com", f.paidTicket.ID, 1)

	err := v.Validate(context.Background(), f.occurrence, f.event,
		Selection{f.paidTicket.ID: 1}, validRegistrant(), nil, id.RegistrationID{})

	assert.NoError(t, err)
}

func TestValidate_ResubmitDoesNotCollideWithOwnEmail(t *testing.T) {
	f := newFixture(withOneRegPerEmail())
	v := NewValidator(f.catalog, f.store)

	draft := seedRegistration(t, f, StatusUnsubmitted, "jane@example.com", f.paidTicket.ID, 1)

	err := v.Validate(context.Background(), f.occurrence, f.event,
		Selection{f.paidTicket.ID: 1}, validRegistrant(), nil, draft.ID)

	assert.NoError(t, err)
}

func TestValidate_IdentityEmailWinsForDuplicateCheck(t *testing.T) {
	f := newFixture(withOneRegPerEmail())
	v := NewValidator(f.catalog, f.store)

	seedRegistration(t, f, StatusValid, "member@example.com", f.paidTicket.ID, 1)

	ident := &Identity{MemberID: id.NewMemberID(), Name: "Member", Email: "member@example.com"}
	err := v.Validate(context.Background(), f.occurrence, f.event,
		Selection{f.paidTicket.ID: 1},
		Registrant{Email: "fresh@example.com"}, ident, id.RegistrationID{})

	assert.Equal(t, "A registration for this email address already exists", reasonFor(t, err, "Email"))
}

func TestValidate_ContactFields(t *testing.T) {
	f := newFixture()
	v := NewValidator(f.catalog, f.store)
	selection := Selection{f.paidTicket.ID: 1}

	t.Run("missing name", func(t *testing.T) {
		err := v.Validate(context.Background(), f.occurrence, f.event,
			selection, Registrant{Email: "jane@example.com"}, nil, id.RegistrationID{})
		assert.Equal(t, "Please enter your name", reasonFor(t, err, "Name"))
	})

	t.Run("missing email", func(t *testing.T) {
		err := v.Validate(context.Background(), f.occurrence, f.event,
			selection, Registrant{Name: "Jane Doe"}, nil, id.RegistrationID{})
		assert.Equal(t, "Please enter an email address", reasonFor(t, err, "Email"))
	})

	t.Run("malformed email", func(t *testing.T) {
		err := v.Validate(context.Background(), f.occurrence, f.event,
			selection, Registrant{Name: "Jane Doe", Email: "not-an-address"}, nil, id.RegistrationID{})
		assert.Equal(t, "Please enter a valid email address", reasonFor(t, err, "Email"))
	})

	t.Run("identity supplies the contact fields", func(t *testing.T) {
		ident := &Identity{MemberID: id.NewMemberID(), Name: "Member", Email: "member@example.com"}
		err := v.Validate(context.Background(), f.occurrence, f.event,
			selection, Registrant{}, ident, id.RegistrationID{})
		assert.NoError(t, err)
	})
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	f := newFixture()
	v := NewValidator(f.catalog, f.store)

	err := v.Validate(context.Background(), f.occurrence, f.event,
		Selection{f.paidTicket.ID: -1}, Registrant{}, nil, id.RegistrationID{})

	require.Error(t, err)
	reasons := dErrors.ReasonsOf(err)
	// Empty total, invalid quantity, missing name, missing email.
	assert.Len(t, reasons, 4)
}

var seedCounter int

// seedRegistration stores a registration holding quantity tickets of one type.
func seedRegistration(t *testing.T, f *fixture, status Status, emailAddr string, ticketTypeID id.TicketTypeID, quantity int) *Registration {
	t.Helper()
	seedCounter++
	reg := &Registration{
		ID:           id.NewRegistrationID(),
		OccurrenceID: f.occurrence.ID,
		Name:         "Seeded Holder",
		Email:        emailAddr,
		Status:       status,
		Token:        fmt.Sprintf("%040d", 9000+seedCounter),
		Lines:        []TicketLine{{TicketTypeID: ticketTypeID, Title: "Seeded", Quantity: quantity}},
		CreatedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.store.Save(context.Background(), reg))
	return reg
}
