// Package bank provides the value-transfer collaborator that moves funds
// between user accounts and market pools. The engine only sees the
// Treasury interface; custody itself stays outside the pricing core.
//
// Account balances use shopspring/decimal — never float64 for money.
package bank

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrInsufficientBalance is returned when a collect would overdraw the
// user's account.
var ErrInsufficientBalance = errors.New("bank: insufficient balance")

// Treasury moves value between user accounts and the engine's pools.
// Collect debits a user when they buy in; Pay credits a user on sell
// proceeds and claim payouts.
type Treasury interface {
	Collect(ctx context.Context, user string, amount uint64) error
	Pay(ctx context.Context, user string, amount uint64) error
}

// LedgerTreasury is an in-memory Treasury keeping per-user balances.
// Used for development and tests; production deployments substitute a
// custody integration behind the same interface.
type LedgerTreasury struct {
	mu       sync.Mutex
	accounts map[string]decimal.Decimal
}

// NewLedgerTreasury creates an empty in-memory treasury.
func NewLedgerTreasury() *LedgerTreasury {
	return &LedgerTreasury{accounts: make(map[string]decimal.Decimal)}
}

// Deposit credits a user's account. Not part of the Treasury interface;
// it exists so tests and the faucet endpoint can fund accounts.
func (t *LedgerTreasury) Deposit(user string, amount uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accounts[user] = t.accounts[user].Add(decimal.NewFromUint64(amount))
}

func (t *LedgerTreasury) Collect(_ context.Context, user string, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	amt := decimal.NewFromUint64(amount)
	balance := t.accounts[user]
	if balance.LessThan(amt) {
		return ErrInsufficientBalance
	}
	t.accounts[user] = balance.Sub(amt)
	return nil
}

func (t *LedgerTreasury) Pay(_ context.Context, user string, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accounts[user] = t.accounts[user].Add(decimal.NewFromUint64(amount))
	return nil
}

// Balance returns the user's current balance.
func (t *LedgerTreasury) Balance(user string) decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.accounts[user]
}
