// Package worker relays audit events from the postgres outbox to a
// downstream sink, typically the Kafka producer.
package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	audit "vestry/pkg/platform/audit"
	"vestry/pkg/platform/circuit"
)

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
	// While the breaker is open the relay only probes every Nth tick, so a
	// dead broker is not hammered with a full batch every second.
	probeEvery = 10
)

// OutboxRelay polls the outbox table for unpublished rows and forwards them
// to the sink in insertion order. A row is marked published only after the
// sink accepts it, so delivery is at least once: a crash between the two
// steps replays the event on the next pass and the materializer dedupes by
// event ID.
type OutboxRelay struct {
	db       *sql.DB
	sink     audit.Store
	logger   *slog.Logger
	breaker  *circuit.Breaker
	interval time.Duration
	batch    int
}

func NewOutboxRelay(db *sql.DB, sink audit.Store, logger *slog.Logger) *OutboxRelay {
	return &OutboxRelay{
		db:       db,
		sink:     sink,
		logger:   logger,
		breaker:  circuit.New("audit-sink"),
		interval: defaultInterval,
		batch:    defaultBatchSize,
	}
}

// Run polls until the context is cancelled. Relay failures are logged and
// retried on later ticks rather than stopping the loop.
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			ticks++
			if r.breaker.IsOpen() && ticks%probeEvery != 0 {
				continue
			}
			if _, err := r.RelayOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
				if _, change := r.breaker.RecordFailure(); change.Opened {
					r.logger.WarnContext(ctx, "audit sink circuit opened",
						"breaker", r.breaker.Name())
				}
				continue
			}
			if _, change := r.breaker.RecordSuccess(); change.Closed {
				r.logger.InfoContext(ctx, "audit sink circuit closed",
					"breaker", r.breaker.Name())
			}
		}
	}
}

type outboxRow struct {
	id      string
	payload []byte
}

// RelayOnce forwards a single batch and reports how many rows it published.
// It stops at the first sink failure so per-subject ordering survives: rows
// behind the failed one stay unpublished until the retry.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	query := `
		SELECT id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, r.batch)
	if err != nil {
		return 0, fmt.Errorf("query outbox: %w", err)
	}

	var pending []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.id, &row.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		pending = append(pending, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate outbox: %w", err)
	}
	rows.Close()

	published := 0
	for _, row := range pending {
		var event audit.Event
		if err := json.Unmarshal(row.payload, &event); err != nil {
			return published, fmt.Errorf("decode outbox payload %s: %w", row.id, err)
		}
		if err := r.sink.Append(ctx, event); err != nil {
			return published, fmt.Errorf("forward outbox row %s: %w", row.id, err)
		}
		if err := r.markPublished(ctx, row.id); err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}

func (r *OutboxRelay) markPublished(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET published_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox row %s published: %w", id, err)
	}
	return nil
}
