package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "eventreg/pkg/domain"
	"eventreg/pkg/platform/sentinel"
	txcontext "eventreg/pkg/platform/tx"
)

// PostgresStore reads the catalog tables. Rows are owned by the event
// administration side; this store never writes.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *PostgresStore) querier(ctx context.Context) pgxQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.pool
}

func (s *PostgresStore) GetEvent(ctx context.Context, eventID id.EventID) (Event, error) {
	const query = `
		SELECT id, title, one_reg_per_email, requires_confirmation, confirm_time_limit_seconds
		FROM events WHERE id = $1
	`
	var (
		event        Event
		idText       string
		limitSeconds *int64
	)
	err := s.querier(ctx).QueryRow(ctx, query, eventID.String()).
		Scan(&idText, &event.Title, &event.OneRegPerEmail, &event.RequiresConfirmation, &limitSeconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, sentinel.ErrNotFound
		}
		return Event{}, fmt.Errorf("get event: %w", err)
	}
	event.ID, err = id.ParseEventID(idText)
	if err != nil {
		return Event{}, fmt.Errorf("get event: %w", err)
	}
	if limitSeconds != nil {
		limit := time.Duration(*limitSeconds) * time.Second
		event.ConfirmTimeLimit = &limit
	}
	return event, nil
}

func (s *PostgresStore) GetOccurrence(ctx context.Context, occurrenceID id.OccurrenceID) (Occurrence, error) {
	const query = `SELECT id, event_id, starts_at FROM occurrences WHERE id = $1`
	var (
		occurrence      Occurrence
		idText, eventID string
	)
	err := s.querier(ctx).QueryRow(ctx, query, occurrenceID.String()).
		Scan(&idText, &eventID, &occurrence.StartsAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Occurrence{}, sentinel.ErrNotFound
		}
		return Occurrence{}, fmt.Errorf("get occurrence: %w", err)
	}
	if occurrence.ID, err = id.ParseOccurrenceID(idText); err != nil {
		return Occurrence{}, fmt.Errorf("get occurrence: %w", err)
	}
	if occurrence.EventID, err = id.ParseEventID(eventID); err != nil {
		return Occurrence{}, fmt.Errorf("get occurrence: %w", err)
	}
	return occurrence, nil
}

func (s *PostgresStore) ListTicketTypes(ctx context.Context, occurrenceID id.OccurrenceID) ([]TicketType, error) {
	const query = `
		SELECT id, occurrence_id, title, price_amount, price_currency, kind, capacity
		FROM ticket_types WHERE occurrence_id = $1
		ORDER BY title
	`
	rows, err := s.querier(ctx).Query(ctx, query, occurrenceID.String())
	if err != nil {
		return nil, fmt.Errorf("list ticket types: %w", err)
	}
	defer rows.Close()

	var out []TicketType
	for rows.Next() {
		ticketType, err := scanTicketType(rows)
		if err != nil {
			return nil, fmt.Errorf("list ticket types: %w", err)
		}
		out = append(out, ticketType)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ticket types: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetTicketType(ctx context.Context, ticketTypeID id.TicketTypeID) (TicketType, error) {
	const query = `
		SELECT id, occurrence_id, title, price_amount, price_currency, kind, capacity
		FROM ticket_types WHERE id = $1
	`
	row := s.querier(ctx).QueryRow(ctx, query, ticketTypeID.String())
	ticketType, err := scanTicketType(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TicketType{}, sentinel.ErrNotFound
		}
		return TicketType{}, fmt.Errorf("get ticket type: %w", err)
	}
	return ticketType, nil
}

func scanTicketType(row pgx.Row) (TicketType, error) {
	var (
		ticketType             TicketType
		idText, occurrenceText string
		kind                   string
		capacity               *int
	)
	err := row.Scan(&idText, &occurrenceText, &ticketType.Title,
		&ticketType.Price.Amount, &ticketType.Price.Currency, &kind, &capacity)
	if err != nil {
		return TicketType{}, err
	}
	if ticketType.ID, err = id.ParseTicketTypeID(idText); err != nil {
		return TicketType{}, err
	}
	if ticketType.OccurrenceID, err = id.ParseOccurrenceID(occurrenceText); err != nil {
		return TicketType{}, err
	}
	ticketType.Kind = TicketKind(kind)
	ticketType.Capacity = capacity
	return ticketType, nil
}
