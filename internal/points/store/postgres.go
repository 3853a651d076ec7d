package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aliaspay/internal/points/models"
	"aliaspay/pkg/platform/sentinel"
	"aliaspay/pkg/platform/tx"
	"aliaspay/pkg/requestcontext"
)

// PostgresStore persists ledgers. Credit and debit are single conditional
// UPDATE statements, so concurrent mutations serialize on the row without
// read-modify-write races.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const maxBalance = 4294967295

func (s *PostgresStore) Init(ctx context.Context, handle string) error {
	q := tx.Executor(ctx, s.db)
	ledger := models.NewLedger(handle, requestcontext.Now(ctx))
	_, err := q.ExecContext(ctx, `
		INSERT INTO points_ledgers (record_key, handle, balance, native_value, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		ledgerKey(handle), handle, int64(ledger.Balance), int64(ledger.NativeValue), ledger.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, handle string) (*models.Ledger, error) {
	q := tx.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT handle, balance, native_value, updated_at
		FROM points_ledgers WHERE record_key = $1`,
		ledgerKey(handle),
	)
	return scanLedger(row)
}

func (s *PostgresStore) Credit(ctx context.Context, handle string, amount uint32) (*models.Ledger, error) {
	q := tx.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		UPDATE points_ledgers
		SET balance = LEAST(balance + $2, $3),
			native_value = LEAST(balance + $2, $3) * $4,
			updated_at = $5
		WHERE record_key = $1
		RETURNING handle, balance, native_value, updated_at`,
		ledgerKey(handle), int64(amount), int64(maxBalance), int64(models.PointValue),
		requestcontext.Now(ctx),
	)
	return scanLedger(row)
}

func (s *PostgresStore) DebitIfSufficient(ctx context.Context, handle string, amount uint32) (*models.Ledger, error) {
	q := tx.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		UPDATE points_ledgers
		SET balance = balance - $2,
			native_value = (balance - $2) * $3,
			updated_at = $4
		WHERE record_key = $1 AND balance >= $2
		RETURNING handle, balance, native_value, updated_at`,
		ledgerKey(handle), int64(amount), int64(models.PointValue),
		requestcontext.Now(ctx),
	)

	ledger, err := scanLedger(row)
	if err == nil {
		return ledger, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	// The conditional update matched no row: either the ledger is missing or
	// the balance was short. Disambiguate with a plain read.
	if _, getErr := s.Get(ctx, handle); getErr != nil {
		return nil, getErr
	}
	return nil, sentinel.ErrInsufficient
}

func scanLedger(row *sql.Row) (*models.Ledger, error) {
	var ledger models.Ledger
	var balance, nativeValue int64
	if err := row.Scan(&ledger.Handle, &balance, &nativeValue, &ledger.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	ledger.Balance = uint32(balance)
	ledger.NativeValue = uint64(nativeValue)
	return &ledger, nil
}
