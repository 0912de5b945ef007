// Package wallet defines the boundary between this module and whatever
// owns real money movement: reservations, wins, losses, and releases are
// consulted here but never settled here. Nothing in this package persists
// a balance across process restarts beyond the in-memory reference
// implementation used by tests.
package wallet

import (
	"errors"
	"sync"
)

// ErrInsufficientFunds is returned by Reserve when a player's available
// balance is below the requested amount.
var ErrInsufficientFunds = errors.New("insufficient_funds")

// Wallet is the external collaborator interface a table actor (or session
// layer, on buy-in) consults before seating a player and settles with once
// a hand's chip deltas are known. No implementation here owns settlement;
// this module's authoritative state is the table actor's in-memory stacks.
type Wallet interface {
	// Reserve holds amount against a player's balance, e.g. on buy-in.
	// Returns ErrInsufficientFunds if the player cannot cover it.
	Reserve(playerID string, amount int64) error
	// CommitWin credits a player's balance with a hand's winnings.
	CommitWin(playerID string, amount int64) error
	// CommitLoss debits a player's balance by a hand's losses.
	CommitLoss(playerID string, amount int64) error
	// Release returns a previously reserved amount, e.g. on stand-up or
	// table close without having played it.
	Release(playerID string, amount int64) error
}

// InMemory is a reference Wallet for tests and local development: balances
// live only in the process and are never persisted.
type InMemory struct {
	mu       sync.Mutex
	balances map[string]int64
	reserved map[string]int64
}

// NewInMemory builds an InMemory wallet seeded with initial balances.
func NewInMemory(initial map[string]int64) *InMemory {
	balances := make(map[string]int64, len(initial))
	for k, v := range initial {
		balances[k] = v
	}
	return &InMemory{balances: balances, reserved: make(map[string]int64)}
}

func (w *InMemory) Reserve(playerID string, amount int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.balances[playerID] < amount {
		return ErrInsufficientFunds
	}
	w.balances[playerID] -= amount
	w.reserved[playerID] += amount
	return nil
}

func (w *InMemory) CommitWin(playerID string, amount int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[playerID] += amount
	return nil
}

func (w *InMemory) CommitLoss(playerID string, amount int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reserved[playerID] >= amount {
		w.reserved[playerID] -= amount
	}
	return nil
}

func (w *InMemory) Release(playerID string, amount int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reserved[playerID] < amount {
		amount = w.reserved[playerID]
	}
	w.reserved[playerID] -= amount
	w.balances[playerID] += amount
	return nil
}

// Balance returns a player's unreserved balance, for tests.
func (w *InMemory) Balance(playerID string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[playerID]
}
