// Package tx carries a SQL transaction through context so stores can join an
// enclosing unit of work without changing their signatures, and defines the
// Runner abstraction the services use to make multi-store mutations
// all-or-nothing.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Querier is the subset of database/sql execution methods shared by *sql.DB
// and *sql.Tx. Postgres stores resolve their executor through it so the same
// store works inside and outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Executor returns the transaction from ctx when one is active, otherwise db.
func Executor(ctx context.Context, db *sql.DB) Querier {
	if t, ok := From(ctx); ok {
		return t
	}
	return db
}

// Runner executes fn as one atomic unit: either every store mutation made
// through the derived context commits, or none do.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
