package registration

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	id "eventreg/pkg/domain"
	"eventreg/pkg/email"
	"eventreg/pkg/platform/sentinel"
	txcontext "eventreg/pkg/platform/tx"
)

// PostgresStore persists registrations and their ticket lines in PostgreSQL.
// Save runs in a transaction so a registration and its lines are always
// written all-or-nothing. Every method joins an ambient transaction when the
// context carries one.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) querier(ctx context.Context) pgxQuerier {
	if transaction, ok := txcontext.From(ctx); ok {
		return transaction
	}
	return s.pool
}

func (s *PostgresStore) GetByID(ctx context.Context, registrationID id.RegistrationID) (*Registration, error) {
	const query = `
		SELECT id, occurrence_id, member_id, name, email, status,
		       total_amount, total_currency, token, created_at
		FROM registrations WHERE id = $1
	`
	registration, err := scanRegistration(s.querier(ctx).QueryRow(ctx, query, registrationID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if err := s.loadLines(ctx, registration); err != nil {
		return nil, err
	}
	return registration, nil
}

func (s *PostgresStore) FindByOccurrence(ctx context.Context, occurrenceID id.OccurrenceID, filter FindFilter) ([]*Registration, error) {
	query := `
		SELECT id, occurrence_id, member_id, name, email, status,
		       total_amount, total_currency, token, created_at
		FROM registrations WHERE occurrence_id = $1
	`
	args := []any{occurrenceID.String()}
	if filter.Email != "" {
		args = append(args, email.Normalize(filter.Email))
		query += fmt.Sprintf(" AND lower(email) = $%d", len(args))
	}
	if filter.ExcludeStatus != "" {
		args = append(args, string(filter.ExcludeStatus))
		query += fmt.Sprintf(" AND status <> $%d", len(args))
	}
	query += " ORDER BY created_at"

	rows, err := s.querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find registrations: %w", err)
	}
	defer rows.Close()

	var out []*Registration
	for rows.Next() {
		registration, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("find registrations: %w", err)
		}
		out = append(out, registration)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find registrations: %w", err)
	}
	for _, registration := range out {
		if err := s.loadLines(ctx, registration); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) SumQuantityForType(ctx context.Context, ticketTypeID id.TicketTypeID, excludeStatus Status) (int, error) {
	const query = `
		SELECT COALESCE(SUM(l.quantity), 0)
		FROM registration_lines l
		JOIN registrations r ON r.id = l.registration_id
		WHERE l.ticket_type_id = $1 AND ($2 = '' OR r.status <> $2)
	`
	var total int
	if err := s.querier(ctx).QueryRow(ctx, query, ticketTypeID.String(), string(excludeStatus)).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum quantity for type: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) Save(ctx context.Context, registration *Registration) error {
	return txcontext.Run(ctx, s.pool, func(ctx context.Context) error {
		return s.save(ctx, registration)
	})
}

func (s *PostgresStore) save(ctx context.Context, registration *Registration) error {
	const upsert = `
		INSERT INTO registrations
			(id, occurrence_id, member_id, name, email, status,
			 total_amount, total_currency, token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			member_id = EXCLUDED.member_id,
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			status = EXCLUDED.status,
			total_amount = EXCLUDED.total_amount,
			total_currency = EXCLUDED.total_currency
	`
	var memberID *string
	if !registration.MemberID.IsNil() {
		text := registration.MemberID.String()
		memberID = &text
	}
	_, err := s.querier(ctx).Exec(ctx, upsert,
		registration.ID.String(),
		registration.OccurrenceID.String(),
		memberID,
		registration.Name,
		registration.Email,
		string(registration.Status),
		registration.Total.Amount,
		registration.Total.Currency,
		registration.Token,
		registration.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save registration: %w", err)
	}

	if _, err := s.querier(ctx).Exec(ctx, `DELETE FROM registration_lines WHERE registration_id = $1`, registration.ID.String()); err != nil {
		return fmt.Errorf("clear registration lines: %w", err)
	}
	for _, line := range registration.Lines {
		_, err := s.querier(ctx).Exec(ctx, `
			INSERT INTO registration_lines (registration_id, ticket_type_id, title, quantity)
			VALUES ($1, $2, $3, $4)
		`, registration.ID.String(), line.TicketTypeID.String(), line.Title, line.Quantity)
		if err != nil {
			return fmt.Errorf("save registration line: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListUnconfirmed(ctx context.Context) ([]*Registration, error) {
	const query = `
		SELECT id, occurrence_id, member_id, name, email, status,
		       total_amount, total_currency, token, created_at
		FROM registrations WHERE status = $1
		ORDER BY created_at
	`
	rows, err := s.querier(ctx).Query(ctx, query, string(StatusUnconfirmed))
	if err != nil {
		return nil, fmt.Errorf("list unconfirmed: %w", err)
	}
	defer rows.Close()

	var out []*Registration
	for rows.Next() {
		registration, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("list unconfirmed: %w", err)
		}
		out = append(out, registration)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list unconfirmed: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) loadLines(ctx context.Context, registration *Registration) error {
	const query = `
		SELECT ticket_type_id, title, quantity
		FROM registration_lines
		WHERE registration_id = $1
		ORDER BY title
	`
	rows, err := s.querier(ctx).Query(ctx, query, registration.ID.String())
	if err != nil {
		return fmt.Errorf("load registration lines: %w", err)
	}
	defer rows.Close()

	registration.Lines = nil
	for rows.Next() {
		var (
			line         TicketLine
			ticketTypeID string
		)
		if err := rows.Scan(&ticketTypeID, &line.Title, &line.Quantity); err != nil {
			return fmt.Errorf("scan registration line: %w", err)
		}
		if line.TicketTypeID, err = id.ParseTicketTypeID(ticketTypeID); err != nil {
			return fmt.Errorf("registration line ticket type: %w", err)
		}
		registration.Lines = append(registration.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load registration lines: %w", err)
	}
	return nil
}

func scanRegistration(row pgx.Row) (*Registration, error) {
	var (
		registration                   Registration
		idText, occurrenceText, status string
		memberText                     *string
	)
	err := row.Scan(&idText, &occurrenceText, &memberText,
		&registration.Name, &registration.Email, &status,
		&registration.Total.Amount, &registration.Total.Currency,
		&registration.Token, &registration.CreatedAt)
	if err != nil {
		return nil, err
	}
	if registration.ID, err = id.ParseRegistrationID(idText); err != nil {
		return nil, err
	}
	if registration.OccurrenceID, err = id.ParseOccurrenceID(occurrenceText); err != nil {
		return nil, err
	}
	if memberText != nil {
		if registration.MemberID, err = id.ParseMemberID(*memberText); err != nil {
			return nil, err
		}
	}
	registration.Status = Status(status)
	return &registration, nil
}
