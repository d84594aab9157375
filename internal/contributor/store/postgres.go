package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"vestry/internal/contributor/models"
	"vestry/pkg/domain"
	"vestry/pkg/platform/sentinel"
	txcontext "vestry/pkg/platform/tx"
)

// PostgresStore persists the registry in PostgreSQL. The admin slot lives in
// a single-row config table guarded by ON CONFLICT DO NOTHING, so the first
// writer wins and every later attempt reports a conflict. Reputation scores
// are NUMERIC(20,0) so the full uint64 range survives the round trip.
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

func (s *PostgresStore) Admin(ctx context.Context) (domain.Principal, error) {
	var admin string
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT admin FROM contributor_config WHERE id`,
	).Scan(&admin)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("registry admin: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query registry admin: %w", err)
	}
	return domain.Principal(admin), nil
}

func (s *PostgresStore) CreateAdmin(ctx context.Context, admin domain.Principal) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO contributor_config (id, admin)
		VALUES (TRUE, $1)
		ON CONFLICT (id) DO NOTHING
	`, admin.String())
	if err != nil {
		return fmt.Errorf("insert registry admin: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert registry admin: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("registry admin already set: %w", sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, contributor *models.Contributor) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO contributors (address, github_handle, reputation_score, registered_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5)
		ON CONFLICT (address) DO NOTHING
	`,
		contributor.Address.String(),
		contributor.GitHubHandle,
		strconv.FormatUint(contributor.ReputationScore, 10),
		contributor.RegisteredAt,
		contributor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contributor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert contributor: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("contributor %s: %w", contributor.Address, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, address domain.Principal) (*models.Contributor, error) {
	var (
		contributor models.Contributor
		addr        string
		score       string
	)
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT address, github_handle, reputation_score::text, registered_at, updated_at
		FROM contributors
		WHERE address = $1
	`, address.String()).Scan(
		&addr,
		&contributor.GitHubHandle,
		&score,
		&contributor.RegisteredAt,
		&contributor.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contributor %s: %w", address, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query contributor: %w", err)
	}

	contributor.Address = domain.Principal(addr)
	contributor.ReputationScore, err = strconv.ParseUint(score, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode reputation score %q: %w", score, err)
	}
	return &contributor, nil
}

func (s *PostgresStore) UpdateScore(ctx context.Context, contributor *models.Contributor) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE contributors
		SET reputation_score = $2::numeric, updated_at = $3
		WHERE address = $1
	`,
		contributor.Address.String(),
		strconv.FormatUint(contributor.ReputationScore, 10),
		contributor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update reputation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reputation: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("contributor %s: %w", contributor.Address, sentinel.ErrNotFound)
	}
	return nil
}
