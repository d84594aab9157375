// Package token is the registry's view of the token ledger: balances per
// (asset, principal) and transfers between principals. The vesting wallet
// pays claims by transferring from its treasury account through this
// interface.
package token

import (
	"context"
	"math/big"

	"vestry/pkg/domain"
)

// Ledger reads balances and moves tokens.
//
// Error Contract:
// - Transfer returns sentinel.ErrInsufficientFunds (wrapped) when the debit
//   exceeds the sender's balance.
// - Balance of an account the ledger has never seen is zero, not an error.
// - Implementations honor a SQL transaction carried in ctx so a transfer can
//   commit atomically with the caller's own writes.
type Ledger interface {
	Balance(ctx context.Context, asset domain.Asset, principal domain.Principal) (*big.Int, error)
	Transfer(ctx context.Context, asset domain.Asset, from, to domain.Principal, amount *big.Int) error
}

// Minter funds accounts. Deployments against a real ledger never mint; the
// dev/test ledgers use it to seed treasuries.
type Minter interface {
	Mint(ctx context.Context, asset domain.Asset, to domain.Principal, amount *big.Int) error
}
