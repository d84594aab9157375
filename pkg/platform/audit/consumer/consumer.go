// Package consumer materializes audit events from the Kafka topic into the
// queryable audit_events table.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "vestry/pkg/platform/audit"
)

// Store is the materialized side of the trail. AppendWithID must be
// idempotent per event ID because the broker redelivers after restarts.
type Store interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// Materializer consumes the audit topic and writes each event into the
// store. Offsets commit only after a whole poll lands, so a crash replays
// from the last commit and the store dedupes.
type Materializer struct {
	client *kgo.Client
	store  Store
	logger *slog.Logger
}

func NewMaterializer(brokers []string, topic, group string, store Store, logger *slog.Logger) (*Materializer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumerGroup(group),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka consumer: %w", err)
	}
	return &Materializer{client: client, store: store, logger: logger}, nil
}

// Run polls until the context is cancelled or storage fails. A storage
// failure stops the loop with offsets uncommitted; the supervisor restarts
// the materializer and the batch replays.
func (m *Materializer) Run(ctx context.Context) error {
	for {
		fetches := m.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			m.logger.ErrorContext(ctx, "audit fetch error",
				"topic", topic, "partition", partition, "error", err)
		})

		var failed error
		fetches.EachRecord(func(record *kgo.Record) {
			if failed != nil {
				return
			}
			failed = m.materialize(ctx, record)
		})
		if failed != nil {
			return failed
		}

		if err := m.client.CommitUncommittedOffsets(ctx); err != nil {
			m.logger.ErrorContext(ctx, "commit audit offsets failed", "error", err)
		}
	}
}

func (m *Materializer) materialize(ctx context.Context, record *kgo.Record) error {
	var event audit.Event
	if err := json.Unmarshal(record.Value, &event); err != nil {
		// Malformed records must not wedge the partition; log and move on.
		m.logger.ErrorContext(ctx, "drop malformed audit record",
			"topic", record.Topic, "offset", record.Offset, "error", err)
		return nil
	}

	eventID, err := uuid.Parse(event.ID)
	if err != nil {
		m.logger.ErrorContext(ctx, "drop audit record without usable ID",
			"id", event.ID, "action", event.Action, "error", err)
		return nil
	}

	if err := m.store.AppendWithID(ctx, eventID, event); err != nil {
		return fmt.Errorf("materialize audit event %s: %w", eventID, err)
	}
	return nil
}

func (m *Materializer) Close() {
	m.client.Close()
}
