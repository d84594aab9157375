package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"vestry/internal/vesting/models"
	"vestry/pkg/domain"
	"vestry/pkg/platform/sentinel"
	txcontext "vestry/pkg/platform/tx"
)

// PostgresStore persists the wallet in PostgreSQL. The config record lives in
// a single-row table guarded by ON CONFLICT DO NOTHING, so the first writer
// wins and every later attempt reports a conflict. Amounts are NUMERIC(39,0)
// so the full 128-bit range survives the round trip; they travel as text.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Config(ctx context.Context) (models.Config, error) {
	var admin, asset string
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT admin, asset FROM vesting_config WHERE id`,
	).Scan(&admin, &asset)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Config{}, fmt.Errorf("wallet config: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return models.Config{}, fmt.Errorf("query wallet config: %w", err)
	}
	return models.Config{Admin: domain.Principal(admin), Asset: domain.Asset(asset)}, nil
}

func (s *PostgresStore) CreateConfig(ctx context.Context, cfg models.Config) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO vesting_config (id, admin, asset)
		VALUES (TRUE, $1, $2)
		ON CONFLICT (id) DO NOTHING
	`, cfg.Admin.String(), cfg.Asset.String())
	if err != nil {
		return fmt.Errorf("insert wallet config: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert wallet config: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("wallet config already set: %w", sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, schedule *models.Schedule) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO vesting_schedules (beneficiary, total_amount, start_time, duration_seconds, claimed_amount, created_at, updated_at)
		VALUES ($1, $2::numeric, $3, $4, $5::numeric, $6, $7)
		ON CONFLICT (beneficiary) DO NOTHING
	`,
		schedule.Beneficiary.String(),
		schedule.TotalAmount.String(),
		schedule.StartTime,
		schedule.DurationSeconds,
		schedule.ClaimedAmount.String(),
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("schedule %s: %w", schedule.Beneficiary, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, beneficiary domain.Principal) (*models.Schedule, error) {
	query := `
		SELECT beneficiary, total_amount::text, start_time, duration_seconds, claimed_amount::text, created_at, updated_at
		FROM vesting_schedules
		WHERE beneficiary = $1`
	// Inside a transaction the read takes the row lock, serializing
	// concurrent claims on the same schedule.
	if _, inTx := txcontext.From(ctx); inTx {
		query += `
		FOR UPDATE`
	}

	var (
		schedule models.Schedule
		base     string
		total    string
		claimed  string
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, beneficiary.String()).Scan(
		&base,
		&total,
		&schedule.StartTime,
		&schedule.DurationSeconds,
		&claimed,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schedule %s: %w", beneficiary, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query schedule: %w", err)
	}

	schedule.Beneficiary = domain.Principal(base)
	if schedule.TotalAmount, err = parseNumeric(total); err != nil {
		return nil, err
	}
	if schedule.ClaimedAmount, err = parseNumeric(claimed); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (s *PostgresStore) Update(ctx context.Context, schedule *models.Schedule) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE vesting_schedules
		SET claimed_amount = $2::numeric, updated_at = $3
		WHERE beneficiary = $1
	`,
		schedule.Beneficiary.String(),
		schedule.ClaimedAmount.String(),
		schedule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("schedule %s: %w", schedule.Beneficiary, sentinel.ErrNotFound)
	}
	return nil
}

func parseNumeric(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("decode amount %q", s)
	}
	return v, nil
}
