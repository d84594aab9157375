// Package postgres opens the database connection and owns the schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects via lib/pq and verifies the connection before returning.
func Open(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates every table the stores expect. Statements are
// idempotent so repeated startups are safe; integration tests apply the same
// schema so tests and production agree on column types.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Reputation scores are NUMERIC(20,0) so the full uint64 range survives the
// round trip; token quantities are NUMERIC(39,0), wide enough for any signed
// 128-bit value. The two config tables are single-row by construction: the
// boolean primary key admits only TRUE.
const schema = `
CREATE TABLE IF NOT EXISTS contributor_config (
	id    BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
	admin TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS contributors (
	address          TEXT PRIMARY KEY,
	github_handle    TEXT NOT NULL,
	reputation_score NUMERIC(20,0) NOT NULL DEFAULT 0,
	registered_at    TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS vesting_config (
	id    BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
	admin TEXT NOT NULL,
	asset TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS vesting_schedules (
	beneficiary      TEXT PRIMARY KEY,
	total_amount     NUMERIC(39,0) NOT NULL,
	start_time       TIMESTAMPTZ NOT NULL,
	duration_seconds BIGINT NOT NULL,
	claimed_amount   NUMERIC(39,0) NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS token_balances (
	asset      TEXT NOT NULL,
	principal  TEXT NOT NULL,
	amount     NUMERIC(39,0) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (asset, principal)
);

CREATE TABLE IF NOT EXISTS outbox (
	id             UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	payload        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	published_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS outbox_unpublished_idx
	ON outbox (created_at) WHERE published_at IS NULL;

CREATE TABLE IF NOT EXISTS audit_events (
	id         UUID PRIMARY KEY,
	category   TEXT NOT NULL,
	timestamp  TIMESTAMPTZ NOT NULL,
	action     TEXT NOT NULL,
	actor      TEXT NOT NULL DEFAULT '',
	subject    TEXT NOT NULL DEFAULT '',
	request_id TEXT NOT NULL DEFAULT '',
	client_ip  TEXT NOT NULL DEFAULT '',
	device     TEXT NOT NULL DEFAULT '',
	metadata   JSONB
);

CREATE INDEX IF NOT EXISTS audit_events_subject_idx
	ON audit_events (subject, timestamp DESC);
`
