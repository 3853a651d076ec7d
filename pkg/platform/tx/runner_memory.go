package tx

import (
	"context"
	"sync"
)

// Snapshotter is implemented by in-memory stores that can capture their state
// and hand back a restore closure. The memory runner uses it to roll a failed
// unit of work back.
type Snapshotter interface {
	Snapshot() (restore func())
}

// GateBound is implemented by memory stores that guard their standalone
// writes with the runner's write gate.
type GateBound interface {
	BindGate(*sync.RWMutex)
}

// MemoryRunner serializes units of work over in-memory stores. The write gate
// stands in for row-level locking: a transaction holds it exclusively while
// standalone store writes hold it shared, so a rollback can never erase a
// write that committed outside the transaction. Snapshots stand in for
// rollback; the Postgres runner is the production path.
type MemoryRunner struct {
	gate   sync.RWMutex
	stores []Snapshotter
}

// NewMemoryRunner constructs a runner over the given stores. Every store that
// may be mutated inside RunInTx must be registered, otherwise its changes
// survive a rollback.
func NewMemoryRunner(stores ...Snapshotter) *MemoryRunner {
	r := &MemoryRunner{stores: stores}
	for _, s := range stores {
		if b, ok := s.(GateBound); ok {
			b.BindGate(&r.gate)
		}
	}
	return r
}

type inTxKey struct{}

// InTx reports whether ctx runs inside an open memory transaction.
func InTx(ctx context.Context) bool {
	v, _ := ctx.Value(inTxKey{}).(bool)
	return v
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.gate.Lock()
	defer r.gate.Unlock()

	restores := make([]func(), 0, len(r.stores))
	for _, s := range r.stores {
		restores = append(restores, s.Snapshot())
	}

	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		return err
	}
	return nil
}

// WriteGuard is embedded by memory stores registered with a MemoryRunner.
// Holding it for the duration of a standalone write keeps the write out of
// any transaction's snapshot and rollback window; writes issued inside
// RunInTx already run under the exclusive gate and pass through.
type WriteGuard struct {
	gate *sync.RWMutex
}

// BindGate attaches the runner's gate. Called once at registration.
func (g *WriteGuard) BindGate(gate *sync.RWMutex) { g.gate = gate }

// Hold blocks while a transaction is open and returns the release to defer
// around the write. A no-op for unbound stores and transactional contexts.
func (g *WriteGuard) Hold(ctx context.Context) (release func()) {
	if g.gate == nil || InTx(ctx) {
		return func() {}
	}
	g.gate.RLock()
	return g.gate.RUnlock
}
