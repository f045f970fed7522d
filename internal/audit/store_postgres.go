package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "eventreg/pkg/domain"
)

// PostgresStore persists audit events through an outbox table on
// database/sql (lib/pq driver). The Kafka sink remains the fan-out path; the
// outbox keeps a durable local copy and survives broker outages.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// eventPayload is the JSON structure stored in the outbox row. Field names
// match Event for symmetric deserialization by consumers.
type eventPayload struct {
	ID             string `json:"ID"`
	Timestamp      string `json:"Timestamp"`
	Action         string `json:"Action"`
	RegistrationID string `json:"RegistrationID"`
	OccurrenceID   string `json:"OccurrenceID"`
	Email          string `json:"Email,omitempty"`
	Detail         string `json:"Detail,omitempty"`
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	payload := eventPayload{
		ID:             uuid.NewString(),
		Timestamp:      event.Timestamp.Format(time.RFC3339Nano),
		Action:         string(event.Action),
		RegistrationID: event.RegistrationID.String(),
		OccurrenceID:   event.OccurrenceID.String(),
		Email:          event.Email,
		Detail:         event.Detail,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	const query = `
		INSERT INTO audit_outbox (id, registration_id, occurrence_id, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query,
		payload.ID,
		event.RegistrationID.String(),
		event.OccurrenceID.String(),
		string(event.Action),
		payloadBytes,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRegistration(ctx context.Context, registrationID id.RegistrationID) ([]Event, error) {
	const query = `
		SELECT action, payload, created_at
		FROM audit_outbox
		WHERE registration_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, registrationID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			action       string
			payloadBytes []byte
			createdAt    time.Time
		)
		if err := rows.Scan(&action, &payloadBytes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var payload eventPayload
		if err := json.Unmarshal(payloadBytes, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal audit payload: %w", err)
		}
		occurrenceID, err := id.ParseOccurrenceID(payload.OccurrenceID)
		if err != nil {
			return nil, fmt.Errorf("audit payload occurrence id: %w", err)
		}
		out = append(out, Event{
			Timestamp:      createdAt,
			Action:         Action(action),
			RegistrationID: registrationID,
			OccurrenceID:   occurrenceID,
			Email:          payload.Email,
			Detail:         payload.Detail,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return out, nil
}
