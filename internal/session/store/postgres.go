package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"aliaspay/internal/session/models"
	"aliaspay/pkg/platform/sentinel"
	"aliaspay/pkg/platform/tx"
)

// PostgresStore persists sessions. Consumption is one conditional UPDATE on
// the active flag; the row lock makes exactly-once a database guarantee, and
// joining the enclosing transfer transaction makes it roll back with the
// debit.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, session *models.Session) error {
	q := tx.Executor(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO auth_sessions (record_key, handle, session_id, required_points,
			device, active, created_at, consumed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)`,
		sessionKey(session.Handle, session.ID), session.Handle, session.ID,
		int64(session.RequiredPoints), session.Device, session.Active, session.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, handle, sessionID string) (*models.Session, error) {
	q := tx.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT handle, session_id, required_points, device, active, created_at, consumed_at
		FROM auth_sessions WHERE record_key = $1`,
		sessionKey(handle, sessionID),
	)

	var session models.Session
	var requiredPoints int64
	var consumedAt sql.NullTime
	err := row.Scan(&session.Handle, &session.ID, &requiredPoints,
		&session.Device, &session.Active, &session.CreatedAt, &consumedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	session.RequiredPoints = uint32(requiredPoints)
	if consumedAt.Valid {
		session.ConsumedAt = &consumedAt.Time
	}
	return &session, nil
}

func (s *PostgresStore) ConsumeIfActive(ctx context.Context, handle, sessionID string, now time.Time) error {
	q := tx.Executor(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE auth_sessions
		SET active = FALSE, consumed_at = $2
		WHERE record_key = $1 AND active`,
		sessionKey(handle, sessionID), now,
	)
	if err != nil {
		return fmt.Errorf("consume session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume session rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// No row flipped: the session is either missing or already consumed.
	if _, findErr := s.Find(ctx, handle, sessionID); findErr != nil {
		return findErr
	}
	return sentinel.ErrAlreadyUsed
}

// Reactivate re-arms a consumed session. Compensation path for backends that
// sit outside the transfer transaction; on this backend the enclosing
// transaction already rolls the consume back, so this is an idempotent no-op
// for an active row.
func (s *PostgresStore) Reactivate(ctx context.Context, handle, sessionID string) error {
	q := tx.Executor(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE auth_sessions
		SET active = TRUE, consumed_at = NULL
		WHERE record_key = $1`,
		sessionKey(handle, sessionID),
	)
	if err != nil {
		return fmt.Errorf("reactivate session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reactivate session rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
