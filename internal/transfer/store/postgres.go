package store

import (
	"context"
	"database/sql"
	"fmt"

	"aliaspay/internal/transfer/models"
	"aliaspay/pkg/domain"
	"aliaspay/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, transfer *models.Transfer) error {
	q := tx.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		INSERT INTO transfers (sender_handle, recipient_handle, mapping_type,
			from_address, to_address, amount, points_spent, session_id, memo, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		transfer.SenderHandle, transfer.RecipientHandle, transfer.MappingType,
		transfer.From.String(), transfer.To.String(), int64(transfer.Amount),
		int64(transfer.PointsSpent), transfer.SessionID, transfer.Memo, transfer.ExecutedAt,
	)
	if err := row.Scan(&transfer.ID); err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySender(ctx context.Context, handle string, page, pageSize int) ([]models.Transfer, error) {
	q := tx.Executor(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT id, sender_handle, recipient_handle, mapping_type, from_address,
			to_address, amount, points_spent, session_id, memo, executed_at
		FROM transfers
		WHERE sender_handle = $1
		ORDER BY executed_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		handle, pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("select transfers: %w", err)
	}
	defer rows.Close()

	transfers := []models.Transfer{}
	for rows.Next() {
		var t models.Transfer
		var from, to string
		var amount, pointsSpent int64
		err := rows.Scan(&t.ID, &t.SenderHandle, &t.RecipientHandle, &t.MappingType,
			&from, &to, &amount, &pointsSpent, &t.SessionID, &t.Memo, &t.ExecutedAt)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		t.From = domain.Address(from)
		t.To = domain.Address(to)
		t.Amount = uint64(amount)
		t.PointsSpent = uint32(pointsSpent)
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return transfers, nil
}
