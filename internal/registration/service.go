package registration

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"eventreg/internal/audit"
	"eventreg/internal/catalog"
	"eventreg/internal/registration/metrics"
	id "eventreg/pkg/domain"
	dErrors "eventreg/pkg/domain-errors"
	"eventreg/pkg/email"
	"eventreg/pkg/platform/sentinel"
	"eventreg/pkg/token"
)

// Service orchestrates the registration workflow: it resolves selections
// against the catalog, runs validation, computes totals, applies lifecycle
// transitions, and persists the aggregate. Validation failures come back as
// structured CodeValidation errors, never as fatal failures.
type Service struct {
	catalog   catalog.Store
	store     Store
	locker    Locker
	tokens    token.Source
	pricing   *PriceCalculator
	validator *Validator
	publisher *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	clock     func() time.Time
	tracer    trace.Tracer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock sets the time source for testability.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithAuditPublisher emits lifecycle audit events.
func WithAuditPublisher(publisher *audit.Publisher) ServiceOption {
	return func(s *Service) { s.publisher = publisher }
}

// WithMetrics records submission and transition metrics.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func NewService(
	catalogStore catalog.Store,
	store Store,
	locker Locker,
	tokens token.Source,
	validator *Validator,
	logger *slog.Logger,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		catalog:   catalogStore,
		store:     store,
		locker:    locker,
		tokens:    tokens,
		pricing:   NewPriceCalculator(catalogStore),
		validator: validator,
		logger:    logger,
		clock:     time.Now,
		tracer:    otel.Tracer("eventreg/registration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitOption adjusts a single submission.
type SubmitOption func(*submitParams)

type submitParams struct {
	existingID id.RegistrationID
}

// WithExistingRegistration resubmits an existing draft instead of creating a
// new registration. The draft keeps its token and creation time; lines,
// contact fields, total, and status are replaced.
func WithExistingRegistration(registrationID id.RegistrationID) SubmitOption {
	return func(p *submitParams) { p.existingID = registrationID }
}

// Submit runs the full workflow for one submission. On success the persisted
// registration is returned in its initial lifecycle state. On rejection the
// returned error has CodeValidation and carries every failing reason; nothing
// is persisted.
func (s *Service) Submit(
	ctx context.Context,
	occurrenceID id.OccurrenceID,
	selection Selection,
	registrant Registrant,
	identity *Identity,
	opts ...SubmitOption,
) (*Registration, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Submit",
		trace.WithAttributes(attribute.String("occurrence_id", occurrenceID.String())))
	defer span.End()

	start := s.clock()
	var params submitParams
	for _, opt := range opts {
		opt(&params)
	}

	occurrence, err := s.catalog.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return nil, translateStoreErr(err, "occurrence not found")
	}
	event, err := s.catalog.GetEvent(ctx, occurrence.EventID)
	if err != nil {
		return nil, translateStoreErr(err, "event not found")
	}

	// The capacity and duplicate checks plus the write are check-then-act;
	// serialize them per occurrence.
	release, err := s.locker.Acquire(ctx, occurrenceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "another submission for this occurrence is in progress")
		}
		return nil, err
	}
	defer release()

	if err := s.validator.Validate(ctx, occurrence, event, selection, registrant, identity, params.existingID); err != nil {
		if reasons := dErrors.ReasonsOf(err); len(reasons) > 0 {
			s.metrics.IncrementRejected(reasons[0].Field)
		}
		return nil, err
	}

	total, err := s.pricing.ComputeTotal(ctx, occurrenceID, selection)
	if err != nil {
		return nil, err
	}

	registration, err := s.buildAggregate(ctx, params.existingID, occurrence, registrant, identity)
	if err != nil {
		return nil, err
	}
	if err := s.attachLines(ctx, registration, selection); err != nil {
		return nil, err
	}
	registration.Total = total
	registration.Status = CreationStatus(total, event.RequiresConfirmation)

	if err := s.store.Save(ctx, registration); err != nil {
		return nil, translateStoreErr(err, "registration not found")
	}

	s.metrics.IncrementAccepted(string(registration.Status))
	s.metrics.ObserveSubmitLatency(s.clock().Sub(start))
	s.emit(ctx, audit.ActionSubmitted, registration, registration.Description(event.Title))
	s.logger.InfoContext(ctx, "registration submitted",
		"registration_id", registration.ID.String(),
		"occurrence_id", occurrenceID.String(),
		"status", string(registration.Status),
		"total_quantity", registration.TotalQuantity(),
	)
	return registration, nil
}

func (s *Service) buildAggregate(
	ctx context.Context,
	existingID id.RegistrationID,
	occurrence catalog.Occurrence,
	registrant Registrant,
	identity *Identity,
) (*Registration, error) {
	// Persist the address normalized so the duplicate checks in every store
	// compare like with like.
	name, address := registrant.Name, email.Normalize(registrant.Email)
	var memberID id.MemberID
	if identity != nil {
		// An authenticated identity always wins over submitted fields.
		name, address = identity.Name, email.Normalize(identity.Email)
		memberID = identity.MemberID
	}

	if !existingID.IsNil() {
		existing, err := s.store.GetByID(ctx, existingID)
		if err != nil {
			return nil, translateStoreErr(err, "registration not found")
		}
		if existing.Status == StatusValid || existing.Status == StatusCanceled {
			return nil, dErrors.New(dErrors.CodeInvalidTransition,
				"a completed registration cannot be resubmitted")
		}
		existing.Name = name
		existing.Email = address
		existing.MemberID = memberID
		return existing, nil
	}

	// First persistence: assign the token exactly once.
	accessToken, err := s.tokens.Token()
	if err != nil {
		return nil, err
	}
	return &Registration{
		ID:           id.NewRegistrationID(),
		OccurrenceID: occurrence.ID,
		MemberID:     memberID,
		Name:         name,
		Email:        address,
		Token:        accessToken,
		CreatedAt:    s.clock(),
	}, nil
}

func (s *Service) attachLines(ctx context.Context, registration *Registration, selection Selection) error {
	registration.Lines = registration.Lines[:0]
	for ticketTypeID, quantity := range selection {
		if quantity <= 0 {
			continue
		}
		ticketType, err := s.catalog.GetTicketType(ctx, ticketTypeID)
		if err != nil {
			return translateStoreErr(err, "unknown ticket type in selection")
		}
		registration.Lines = append(registration.Lines, TicketLine{
			TicketTypeID: ticketTypeID,
			Title:        ticketType.Title,
			Quantity:     quantity,
		})
	}
	return nil
}

// ComputeTotal exposes price calculation for live previews before submission.
func (s *Service) ComputeTotal(ctx context.Context, occurrenceID id.OccurrenceID, selection Selection) (catalog.Money, error) {
	return s.pricing.ComputeTotal(ctx, occurrenceID, selection)
}

// Get returns a registration to the token holder. The token is the only
// credential; a mismatch is reported identically to an unknown registration
// so tokens cannot be probed.
func (s *Service) Get(ctx context.Context, registrationID id.RegistrationID, presentedToken string) (*Registration, error) {
	registration, err := s.store.GetByID(ctx, registrationID)
	if err != nil {
		return nil, translateStoreErr(err, "registration not found")
	}
	if !tokenMatches(registration.Token, presentedToken) {
		return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
	}
	return registration, nil
}

// Deadline reports the confirmation deadline for a registration, present only
// while the registration is unconfirmed and its event defines a limit.
func (s *Service) Deadline(ctx context.Context, registration *Registration) (time.Time, bool, error) {
	occurrence, err := s.catalog.GetOccurrence(ctx, registration.OccurrenceID)
	if err != nil {
		return time.Time{}, false, translateStoreErr(err, "occurrence not found")
	}
	event, err := s.catalog.GetEvent(ctx, occurrence.EventID)
	if err != nil {
		return time.Time{}, false, translateStoreErr(err, "event not found")
	}
	deadline, ok := registration.ConfirmDeadline(event.ConfirmTimeLimit)
	return deadline, ok, nil
}

// Confirm advances an unconfirmed registration to Valid when the presented
// token matches.
func (s *Service) Confirm(ctx context.Context, registrationID id.RegistrationID, presentedToken string) (*Registration, error) {
	return s.transition(ctx, registrationID, "confirm", func(registration *Registration) error {
		return registration.Confirm(presentedToken)
	}, audit.ActionConfirmed)
}

// MarkPaid records an external payment confirmation, advancing Unsubmitted to
// Valid.
func (s *Service) MarkPaid(ctx context.Context, registrationID id.RegistrationID) (*Registration, error) {
	return s.transition(ctx, registrationID, "mark_paid", func(registration *Registration) error {
		return registration.MarkPaid()
	}, audit.ActionPaid)
}

// Cancel sets the registration to Canceled from any state. Canceling twice is
// a no-op. Cancellation frees the registration's capacity and email for new
// submissions; the record itself is never deleted.
func (s *Service) Cancel(ctx context.Context, registrationID id.RegistrationID) (*Registration, error) {
	return s.transition(ctx, registrationID, "cancel", func(registration *Registration) error {
		registration.Cancel()
		return nil
	}, audit.ActionCanceled)
}

// Expire cancels an unconfirmed registration whose confirmation deadline has
// passed. Called by the sweeper; a registration that is no longer unconfirmed
// reports CodeInvalidTransition.
func (s *Service) Expire(ctx context.Context, registrationID id.RegistrationID) (*Registration, error) {
	return s.transition(ctx, registrationID, "expire", func(registration *Registration) error {
		if registration.Status != StatusUnconfirmed {
			return dErrors.New(dErrors.CodeInvalidTransition, "only unconfirmed registrations expire")
		}
		registration.Cancel()
		return nil
	}, audit.ActionExpired)
}

// transition serializes a lifecycle change against concurrent submissions and
// other transitions on the same occurrence, then persists the new state.
func (s *Service) transition(
	ctx context.Context,
	registrationID id.RegistrationID,
	action string,
	apply func(*Registration) error,
	auditAction audit.Action,
) (*Registration, error) {
	ctx, span := s.tracer.Start(ctx, "registration."+action,
		trace.WithAttributes(attribute.String("registration_id", registrationID.String())))
	defer span.End()

	registration, err := s.store.GetByID(ctx, registrationID)
	if err != nil {
		s.metrics.IncrementTransition(action, "not_found")
		return nil, translateStoreErr(err, "registration not found")
	}

	release, err := s.locker.Acquire(ctx, registration.OccurrenceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "another operation on this occurrence is in progress")
		}
		return nil, err
	}
	defer release()

	// Reload under the lock; the first read raced other writers.
	registration, err = s.store.GetByID(ctx, registrationID)
	if err != nil {
		s.metrics.IncrementTransition(action, "not_found")
		return nil, translateStoreErr(err, "registration not found")
	}

	previous := registration.Status
	if err := apply(registration); err != nil {
		s.metrics.IncrementTransition(action, "rejected")
		return nil, err
	}
	if registration.Status == previous {
		// Idempotent no-op (e.g. canceling a canceled registration); nothing
		// to persist or announce.
		s.metrics.IncrementTransition(action, "noop")
		return registration, nil
	}

	if err := s.store.Save(ctx, registration); err != nil {
		s.metrics.IncrementTransition(action, "error")
		return nil, translateStoreErr(err, "registration not found")
	}

	s.metrics.IncrementTransition(action, "ok")
	s.emit(ctx, auditAction, registration, string(previous)+" -> "+string(registration.Status))
	s.logger.InfoContext(ctx, "registration transition",
		"registration_id", registration.ID.String(),
		"action", action,
		"from", string(previous),
		"to", string(registration.Status),
	)
	return registration, nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, registration *Registration, detail string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Emit(ctx, audit.Event{
		Timestamp:      s.clock(),
		Action:         action,
		RegistrationID: registration.ID,
		OccurrenceID:   registration.OccurrenceID,
		Email:          registration.Email,
		Detail:         detail,
	})
}

func translateStoreErr(err error, notFoundMessage string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFoundMessage)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "concurrent modification, retry the operation")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.New(dErrors.CodeInternal, "store temporarily unavailable")
	default:
		return err
	}
}
