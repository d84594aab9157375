package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "vestry/pkg/platform/audit"
	txcontext "vestry/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events land in the outbox table inside the caller's transaction, so an
// aborted claim never leaves a stray trail entry. A relay (or the Kafka
// sink in direct mode) moves them downstream.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure relayed to downstream consumers.
// Field names match audit.Event so consumers can decode it directly.
type outboxPayload struct {
	ID        string            `json:"ID"`
	Category  string            `json:"Category"`
	Timestamp string            `json:"Timestamp"`
	Action    string            `json:"Action"`
	Actor     string            `json:"Actor,omitempty"`
	Subject   string            `json:"Subject,omitempty"`
	RequestID string            `json:"RequestID,omitempty"`
	ClientIP  string            `json:"ClientIP,omitempty"`
	Device    string            `json:"Device,omitempty"`
	Metadata  map[string]string `json:"Metadata,omitempty"`
}

// Append writes an audit event to the outbox table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	// The action-to-category map is the source of truth even when callers
	// preset a category.
	category := event.Action.Category()

	payload := outboxPayload{
		ID:        event.ID,
		Category:  string(category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    string(event.Action),
		Actor:     event.Actor,
		Subject:   event.Subject,
		RequestID: event.RequestID,
		ClientIP:  event.ClientIP,
		Device:    event.Device,
		Metadata:  event.Metadata,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "registry"
	aggregateID := event.ID
	if event.Subject != "" {
		aggregateType = "principal"
		aggregateID = event.Subject
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		aggregateType,
		aggregateID,
		string(event.Action),
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// AppendWithID materializes an audit event into the audit_events table for
// querying. Used by consumers replaying from the broker; idempotent via
// ON CONFLICT DO NOTHING.
func (s *Store) AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_events (
			id, category, timestamp, action, actor, subject,
			request_id, client_ip, device, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		eventID,
		string(event.Action.Category()),
		event.Timestamp,
		string(event.Action),
		event.Actor,
		event.Subject,
		event.RequestID,
		event.ClientIP,
		event.Device,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Materializer returns an audit.Store view that writes straight into the
// materialized audit_events table. The outbox relay uses it when no broker
// is configured.
func (s *Store) Materializer() audit.Store {
	return materializeAdapter{store: s}
}

type materializeAdapter struct {
	store *Store
}

func (a materializeAdapter) Append(ctx context.Context, event audit.Event) error {
	eventID, err := uuid.Parse(event.ID)
	if err != nil {
		eventID = uuid.New()
	}
	return a.store.AppendWithID(ctx, eventID, event)
}

// ListBySubject returns materialized events for one principal, newest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	query := `
		SELECT id, category, timestamp, action, actor, subject,
			   request_id, client_ip, device, metadata
		FROM audit_events
		WHERE subject = $1
		ORDER BY timestamp DESC
	`
	rows, err := s.db.QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the N most recent materialized events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT id, category, timestamp, action, actor, subject,
			   request_id, client_ip, device, metadata
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			event    audit.Event
			category string
			action   string
			metadata []byte
		)
		err := rows.Scan(
			&event.ID,
			&category,
			&event.Timestamp,
			&action,
			&event.Actor,
			&event.Subject,
			&event.RequestID,
			&event.ClientIP,
			&event.Device,
			&metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = audit.EventCategory(category)
		event.Action = audit.Action(action)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("decode audit metadata: %w", err)
			}
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
