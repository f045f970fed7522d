// Package sweeper cancels unconfirmed registrations whose confirmation
// deadline has passed. It runs as a periodic background worker next to the
// HTTP server; the registration core only exposes deadlines and the expiry
// transition.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"eventreg/internal/registration"
	id "eventreg/pkg/domain"
	dErrors "eventreg/pkg/domain-errors"
)

// Transitioner is the slice of the registration service the sweeper needs.
type Transitioner interface {
	Deadline(ctx context.Context, reg *registration.Registration) (time.Time, bool, error)
	Expire(ctx context.Context, registrationID id.RegistrationID) (*registration.Registration, error)
}

// Lister enumerates registrations still waiting for confirmation.
type Lister interface {
	ListUnconfirmed(ctx context.Context) ([]*registration.Registration, error)
}

// Sweeper periodically expires overdue unconfirmed registrations.
type Sweeper struct {
	service  Transitioner
	store    Lister
	logger   *slog.Logger
	interval time.Duration
	clock    func() time.Time
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithClock sets the time source for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Sweeper) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(service Transitioner, store Lister, interval time.Duration, logger *slog.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		service:  service,
		store:    store,
		logger:   logger,
		interval: interval,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps on the configured interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce expires every overdue registration found in one pass. Individual
// failures are logged and do not stop the pass; a registration confirmed
// between listing and expiry simply reports an invalid transition.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	pending, err := s.store.ListUnconfirmed(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "list unconfirmed registrations", "error", err)
		return
	}

	now := s.clock()
	for _, reg := range pending {
		deadline, ok, err := s.service.Deadline(ctx, reg)
		if err != nil {
			s.logger.ErrorContext(ctx, "resolve confirmation deadline",
				"registration_id", reg.ID.String(), "error", err)
			continue
		}
		if !ok || now.Before(deadline) {
			continue
		}
		if _, err := s.service.Expire(ctx, reg.ID); err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvalidTransition) {
				continue
			}
			s.logger.ErrorContext(ctx, "expire registration",
				"registration_id", reg.ID.String(), "error", err)
		}
	}
}
