package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"aliaspay/internal/identity/models"
	"aliaspay/pkg/domain"
	"aliaspay/pkg/platform/sentinel"
	"aliaspay/pkg/platform/tx"
)

// PostgresStore persists identities and reverse lookups. All statements
// resolve their executor through the tx package so they join an enclosing
// transaction when one is active.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *PostgresStore) CreateIfAvailable(ctx context.Context, identity *models.Identity) error {
	q := tx.Executor(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO identities (record_key, handle, authority, main_address,
			bio, avatar, twitter, discord, website, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		identityKey(identity.Handle), identity.Handle,
		identity.Authority.String(), identity.MainAddress.String(),
		identity.Details.Bio, identity.Details.Avatar, identity.Details.Twitter,
		identity.Details.Discord, identity.Details.Website,
		identity.CreatedAt, identity.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByHandle(ctx context.Context, handle string) (*models.Identity, error) {
	q := tx.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT handle, authority, main_address, bio, avatar, twitter, discord,
			website, created_at, updated_at
		FROM identities WHERE record_key = $1`,
		identityKey(handle),
	)

	var identity models.Identity
	var authority, mainAddress string
	err := row.Scan(&identity.Handle, &authority, &mainAddress,
		&identity.Details.Bio, &identity.Details.Avatar, &identity.Details.Twitter,
		&identity.Details.Discord, &identity.Details.Website,
		&identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select identity: %w", err)
	}
	identity.Authority = domain.Address(authority)
	identity.MainAddress = domain.Address(mainAddress)
	return &identity, nil
}

func (s *PostgresStore) Update(ctx context.Context, identity *models.Identity) error {
	q := tx.Executor(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE identities
		SET authority = $2, main_address = $3, bio = $4, avatar = $5,
			twitter = $6, discord = $7, website = $8, updated_at = $9
		WHERE record_key = $1`,
		identityKey(identity.Handle),
		identity.Authority.String(), identity.MainAddress.String(),
		identity.Details.Bio, identity.Details.Avatar, identity.Details.Twitter,
		identity.Details.Discord, identity.Details.Website, identity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update identity rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpsertReverse(ctx context.Context, lookup models.ReverseLookup) error {
	q := tx.Executor(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO reverse_lookups (record_key, address, handle, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (record_key)
		DO UPDATE SET handle = EXCLUDED.handle, updated_at = EXCLUDED.updated_at`,
		reverseKey(lookup.Address), lookup.Address.String(), lookup.Handle, lookup.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert reverse lookup: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindReverse(ctx context.Context, addr domain.Address) (*models.ReverseLookup, error) {
	q := tx.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT address, handle, updated_at
		FROM reverse_lookups WHERE record_key = $1`,
		reverseKey(addr),
	)

	var lookup models.ReverseLookup
	var address string
	if err := row.Scan(&address, &lookup.Handle, &lookup.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select reverse lookup: %w", err)
	}
	lookup.Address = domain.Address(address)
	return &lookup, nil
}
