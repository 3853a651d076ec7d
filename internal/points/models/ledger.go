// Package models defines the points ledger record and its arithmetic.
package models

import (
	"math"
	"time"
)

// Ledger economics. Every registered handle starts with InitialPoints; each
// point is worth PointValue native units; an authorized transfer costs
// DefaultTransactionCost points unless the session demands more.
const (
	InitialPoints          uint32 = 100
	PointValue             uint64 = 50000
	DefaultTransactionCost uint32 = 1
)

// Ledger is the points account for one handle. NativeValue is always
// uint64(Balance) * PointValue; MaxUint32 * PointValue fits in 63 bits, so
// the product cannot overflow.
type Ledger struct {
	Handle      string
	Balance     uint32
	NativeValue uint64
	UpdatedAt   time.Time
}

// NewLedger seeds a ledger with the initial grant.
func NewLedger(handle string, now time.Time) *Ledger {
	l := &Ledger{Handle: handle, UpdatedAt: now}
	l.setBalance(InitialPoints)
	return l
}

func (l *Ledger) setBalance(balance uint32) {
	l.Balance = balance
	l.NativeValue = uint64(balance) * PointValue
}

// Credit adds amount, clamping at MaxUint32. Clamping is silent; oversized
// grants are not an error.
func (l *Ledger) Credit(amount uint32, now time.Time) {
	l.setBalance(SaturatingAdd(l.Balance, amount))
	l.UpdatedAt = now
}

// Debit removes amount. Callers must have verified sufficiency; the subtract
// still saturates at zero rather than wrapping.
func (l *Ledger) Debit(amount uint32, now time.Time) {
	l.setBalance(SaturatingSub(l.Balance, amount))
	l.UpdatedAt = now
}

// SaturatingAdd clamps at the uint32 ceiling instead of wrapping.
func SaturatingAdd(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}

// SaturatingSub clamps at zero instead of wrapping.
func SaturatingSub(a, b uint32) uint32 {
	if b > a {
		return 0
	}
	return a - b
}
