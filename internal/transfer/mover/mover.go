// Package mover holds the host-ledger adapter. The gateway treats the host
// ledger as an opaque primitive: Move either lands in full or fails, and a
// failure aborts the enclosing transfer.
package mover

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"aliaspay/pkg/domain"
	"aliaspay/pkg/platform/tx"
)

//go:generate mockgen -source=mover.go -destination=mocks/mocks.go -package=mocks Mover

// Mover is the opaque host-ledger primitive. A Move either lands in full or
// returns an error, and an error aborts the enclosing transfer.
type Mover interface {
	Move(ctx context.Context, from, to domain.Address, amount uint64) error
}

// MemoryMover is an in-process host ledger for development and tests.
type MemoryMover struct {
	tx.WriteGuard
	mu       sync.Mutex
	balances map[domain.Address]uint64
}

func NewMemory() *MemoryMover {
	return &MemoryMover{balances: make(map[domain.Address]uint64)}
}

// Snapshot captures current state for the memory transaction runner.
func (m *MemoryMover) Snapshot() (restore func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	balances := maps.Clone(m.balances)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.balances = balances
	}
}

// Fund credits an account out of thin air. Test and bootstrap helper.
func (m *MemoryMover) Fund(addr domain.Address, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[addr] += amount
}

// Balance reads an account.
func (m *MemoryMover) Balance(addr domain.Address) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[addr]
}

// Move debits from and credits to in one step.
func (m *MemoryMover) Move(ctx context.Context, from, to domain.Address, amount uint64) error {
	defer m.Hold(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.balances[from] < amount {
		return fmt.Errorf("account %s holds %d of %d required", from, m.balances[from], amount)
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}
