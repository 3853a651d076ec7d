package tx

import (
	"context"
	"database/sql"
	"time"

	dErrors "aliaspay/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

// PostgresRunner wraps fn in a single database transaction. Stores invoked
// inside fn pick the transaction up from context via Executor.
type PostgresRunner struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresRunner constructs a Runner over db.
func NewPostgresRunner(db *sql.DB) *PostgresRunner {
	return &PostgresRunner{db: db}
}

func (r *PostgresRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}

	return sqlTx.Commit()
}
