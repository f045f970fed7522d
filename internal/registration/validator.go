package registration

import (
	"context"
	"errors"
	"fmt"

	"eventreg/internal/catalog"
	id "eventreg/pkg/domain"
	dErrors "eventreg/pkg/domain-errors"
	"eventreg/pkg/email"
	"eventreg/pkg/platform/sentinel"
)

// Validator enforces selection-quantity rules, the duplicate-registration
// policy, and contact-field requirements. All failing rules are collected so
// a caller can display every problem at once, not just the first.
type Validator struct {
	catalog catalog.Store
	store   Store
	// allowEmptySelection permits submissions whose total quantity is zero.
	// Default is to reject them.
	allowEmptySelection bool
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithAllowEmptySelection accepts selections with zero total quantity.
func WithAllowEmptySelection() ValidatorOption {
	return func(v *Validator) { v.allowEmptySelection = true }
}

func NewValidator(catalogStore catalog.Store, store Store, opts ...ValidatorOption) *Validator {
	v := &Validator{catalog: catalogStore, store: store}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate applies every rule and returns a CodeValidation error carrying the
// ordered reason set, or nil when the submission is acceptable. Infrastructure
// failures (store unavailable) pass through untranslated.
//
// excludeRegistration skips an existing registration during the duplicate and
// capacity checks so a draft can be resubmitted without colliding with itself.
func (v *Validator) Validate(
	ctx context.Context,
	occurrence catalog.Occurrence,
	event catalog.Event,
	selection Selection,
	registrant Registrant,
	identity *Identity,
	excludeRegistration id.RegistrationID,
) error {
	var reasons []dErrors.Reason

	ticketReasons, err := v.checkTickets(ctx, occurrence, selection, excludeRegistration)
	if err != nil {
		return err
	}
	reasons = append(reasons, ticketReasons...)

	if event.OneRegPerEmail {
		duplicate, err := v.checkDuplicateEmail(ctx, occurrence.ID, registrant, identity, excludeRegistration)
		if err != nil {
			return err
		}
		reasons = append(reasons, duplicate...)
	}

	reasons = append(reasons, checkContactFields(registrant, identity)...)

	if len(reasons) > 0 {
		return dErrors.NewValidation(reasons)
	}
	return nil
}

func (v *Validator) checkTickets(
	ctx context.Context,
	occurrence catalog.Occurrence,
	selection Selection,
	excludeRegistration id.RegistrationID,
) ([]dErrors.Reason, error) {
	var reasons []dErrors.Reason

	if selection.TotalQuantity() <= 0 && !v.allowEmptySelection {
		reasons = append(reasons, dErrors.Reason{
			Field:   "Tickets",
			Message: "Please select at least one ticket",
		})
	}

	for ticketTypeID, quantity := range selection {
		field := "Tickets." + ticketTypeID.String()

		if quantity < 0 {
			reasons = append(reasons, dErrors.Reason{
				Field:   field,
				Message: "Please enter a valid quantity for your ticket order",
			})
			continue
		}
		if quantity == 0 {
			continue
		}

		ticketType, err := v.catalog.GetTicketType(ctx, ticketTypeID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				reasons = append(reasons, dErrors.Reason{
					Field:   field,
					Message: "This ticket is not available for the selected event",
				})
				continue
			}
			return nil, err
		}
		if ticketType.OccurrenceID != occurrence.ID {
			reasons = append(reasons, dErrors.Reason{
				Field:   field,
				Message: "This ticket is not available for the selected event",
			})
			continue
		}

		if ticketType.Capacity == nil {
			continue
		}
		taken, err := v.sumTakenQuantity(ctx, ticketTypeID, excludeRegistration)
		if err != nil {
			return nil, err
		}
		if taken+quantity > *ticketType.Capacity {
			remaining := *ticketType.Capacity - taken
			if remaining < 0 {
				remaining = 0
			}
			reasons = append(reasons, dErrors.Reason{
				Field:   field,
				Message: fmt.Sprintf("Not enough %q tickets available (%d left)", ticketType.Title, remaining),
			})
		}
	}

	return reasons, nil
}

// sumTakenQuantity totals non-canceled quantities for a ticket type, leaving
// out the registration being resubmitted.
func (v *Validator) sumTakenQuantity(ctx context.Context, ticketTypeID id.TicketTypeID, excludeRegistration id.RegistrationID) (int, error) {
	total, err := v.store.SumQuantityForType(ctx, ticketTypeID, StatusCanceled)
	if err != nil {
		return 0, err
	}
	if excludeRegistration.IsNil() {
		return total, nil
	}
	existing, err := v.store.GetByID(ctx, excludeRegistration)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return total, nil
		}
		return 0, err
	}
	if existing.Status != StatusCanceled {
		for _, line := range existing.Lines {
			if line.TicketTypeID == ticketTypeID {
				total -= line.Quantity
			}
		}
	}
	return total, nil
}

func (v *Validator) checkDuplicateEmail(
	ctx context.Context,
	occurrenceID id.OccurrenceID,
	registrant Registrant,
	identity *Identity,
	excludeRegistration id.RegistrationID,
) ([]dErrors.Reason, error) {
	address := registrant.Email
	if identity != nil {
		address = identity.Email
	}
	normalized := email.Normalize(address)
	if normalized == "" {
		return nil, nil
	}

	existing, err := v.store.FindByOccurrence(ctx, occurrenceID, FindFilter{
		Email:         normalized,
		ExcludeStatus: StatusCanceled,
	})
	if err != nil {
		return nil, err
	}
	for _, registration := range existing {
		if registration.ID == excludeRegistration {
			continue
		}
		return []dErrors.Reason{{
			Field:   "Email",
			Message: "A registration for this email address already exists",
		}}, nil
	}
	return nil, nil
}

func checkContactFields(registrant Registrant, identity *Identity) []dErrors.Reason {
	if identity != nil {
		// Authenticated identities supply name and email themselves.
		return nil
	}
	var reasons []dErrors.Reason
	if registrant.Name == "" {
		reasons = append(reasons, dErrors.Reason{Field: "Name", Message: "Please enter your name"})
	}
	switch {
	case registrant.Email == "":
		reasons = append(reasons, dErrors.Reason{Field: "Email", Message: "Please enter an email address"})
	case !email.Valid(registrant.Email):
		reasons = append(reasons, dErrors.Reason{Field: "Email", Message: "Please enter a valid email address"})
	}
	return reasons
}
