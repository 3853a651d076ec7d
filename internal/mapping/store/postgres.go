package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aliaspay/internal/mapping/models"
	"aliaspay/pkg/domain"
	"aliaspay/pkg/platform/sentinel"
	"aliaspay/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, mapping models.Mapping) error {
	q := tx.Executor(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO mappings (record_key, handle, mapping_type, target, type_hint, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (record_key)
		DO UPDATE SET target = EXCLUDED.target, type_hint = EXCLUDED.type_hint,
			updated_at = EXCLUDED.updated_at`,
		mappingKey(mapping.Handle, mapping.Type), mapping.Handle, mapping.Type,
		mapping.Target.String(), int16(mapping.Hint), mapping.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert mapping: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, handle, mtype string) (*models.Mapping, error) {
	q := tx.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT handle, mapping_type, target, type_hint, updated_at
		FROM mappings WHERE record_key = $1`,
		mappingKey(handle, mtype),
	)

	var mapping models.Mapping
	var target string
	var hint int16
	if err := row.Scan(&mapping.Handle, &mapping.Type, &target, &hint, &mapping.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select mapping: %w", err)
	}
	mapping.Target = domain.Address(target)
	mapping.Hint = models.TypeHint(hint)
	return &mapping, nil
}

func (s *PostgresStore) Delete(ctx context.Context, handle, mtype string) error {
	q := tx.Executor(ctx, s.db)
	res, err := q.ExecContext(ctx,
		`DELETE FROM mappings WHERE record_key = $1`,
		mappingKey(handle, mtype),
	)
	if err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete mapping rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
