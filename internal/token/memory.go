package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"vestry/pkg/domain"
	"vestry/pkg/platform/sentinel"
)

// MemoryLedger holds balances in memory for tests/dev.
type MemoryLedger struct {
	mu       sync.RWMutex
	balances map[domain.Asset]map[domain.Principal]*big.Int
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[domain.Asset]map[domain.Principal]*big.Int),
	}
}

func (l *MemoryLedger) Balance(_ context.Context, asset domain.Asset, principal domain.Principal) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if bal, ok := l.balances[asset][principal]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (l *MemoryLedger) Transfer(_ context.Context, asset domain.Asset, from, to domain.Principal, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("transfer amount must be positive: %w", sentinel.ErrInvalidState)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fromBal := l.balance(asset, from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("balance %s below transfer %s: %w", fromBal, amount, sentinel.ErrInsufficientFunds)
	}

	fromBal.Sub(fromBal, amount)
	l.credit(asset, to, amount)
	return nil
}

func (l *MemoryLedger) Mint(_ context.Context, asset domain.Asset, to domain.Principal, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("mint amount must be positive: %w", sentinel.ErrInvalidState)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(asset, to, amount)
	return nil
}

// balance returns the live *big.Int for mutation; callers hold the lock.
func (l *MemoryLedger) balance(asset domain.Asset, principal domain.Principal) *big.Int {
	accounts, ok := l.balances[asset]
	if !ok {
		accounts = make(map[domain.Principal]*big.Int)
		l.balances[asset] = accounts
	}
	bal, ok := accounts[principal]
	if !ok {
		bal = big.NewInt(0)
		accounts[principal] = bal
	}
	return bal
}

func (l *MemoryLedger) credit(asset domain.Asset, principal domain.Principal, amount *big.Int) {
	bal := l.balance(asset, principal)
	bal.Add(bal, amount)
}
