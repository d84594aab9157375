package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"vestry/pkg/domain"
	"vestry/pkg/platform/sentinel"
	txcontext "vestry/pkg/platform/tx"
)

// PostgresLedger keeps balances in the token_balances table. Amounts are
// NUMERIC(39,0), wide enough for any 128-bit quantity, and cross the driver
// as base-10 strings.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (l *PostgresLedger) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return l.db
}

func (l *PostgresLedger) Balance(ctx context.Context, asset domain.Asset, principal domain.Principal) (*big.Int, error) {
	var raw string
	err := l.execer(ctx).QueryRowContext(ctx,
		`SELECT amount::text FROM token_balances WHERE asset = $1 AND principal = $2`,
		asset.String(), principal.String(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}

	bal, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("balance %q is not an integer: %w", raw, sentinel.ErrInvalidState)
	}
	return bal, nil
}

// Transfer debits with a guarded UPDATE so a concurrent claim can never
// overdraw, then credits with an upsert. Both statements run on the context
// transaction when one is present.
func (l *PostgresLedger) Transfer(ctx context.Context, asset domain.Asset, from, to domain.Principal, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("transfer amount must be positive: %w", sentinel.ErrInvalidState)
	}

	exec := l.execer(ctx)
	res, err := exec.ExecContext(ctx,
		`UPDATE token_balances
		 SET amount = amount - $3::numeric, updated_at = NOW()
		 WHERE asset = $1 AND principal = $2 AND amount >= $3::numeric`,
		asset.String(), from.String(), amount.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to debit %s: %w", from, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read debit result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("balance of %s below transfer %s: %w", from, amount, sentinel.ErrInsufficientFunds)
	}

	if err := l.creditTx(ctx, exec, asset, to, amount); err != nil {
		return fmt.Errorf("failed to credit %s: %w", to, err)
	}
	return nil
}

func (l *PostgresLedger) Mint(ctx context.Context, asset domain.Asset, to domain.Principal, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("mint amount must be positive: %w", sentinel.ErrInvalidState)
	}
	if err := l.creditTx(ctx, l.execer(ctx), asset, to, amount); err != nil {
		return fmt.Errorf("failed to mint for %s: %w", to, err)
	}
	return nil
}

func (l *PostgresLedger) creditTx(ctx context.Context, exec dbExecutor, asset domain.Asset, to domain.Principal, amount *big.Int) error {
	_, err := exec.ExecContext(ctx,
		`INSERT INTO token_balances (asset, principal, amount, updated_at)
		 VALUES ($1, $2, $3::numeric, NOW())
		 ON CONFLICT (asset, principal)
		 DO UPDATE SET amount = token_balances.amount + EXCLUDED.amount, updated_at = NOW()`,
		asset.String(), to.String(), amount.String(),
	)
	return err
}
