package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "vestry/pkg/domain-errors"
	txcontext "vestry/pkg/platform/tx"
)

const defaultClaimTxTimeout = 5 * time.Second

// claimPostgresTx runs vesting claims inside a database transaction so the
// schedule row lock, claim bookkeeping, and outbox append commit or roll
// back together.
type claimPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newClaimPostgresTx(db *sql.DB) *claimPostgresTx {
	return &claimPostgresTx{db: db}
}

func (t *claimPostgresTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultClaimTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	return tx.Commit()
}
