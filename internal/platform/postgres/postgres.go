// Package postgres opens the shared database pool and bootstraps the schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects to Postgres via the pgx stdlib driver and verifies the
// connection. Returns nil if dsn is empty (Postgres not configured).
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, nil
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return db, nil
}

// Schema is the full DDL for the service. Applied idempotently on startup and
// by integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS identities (
	record_key    TEXT PRIMARY KEY,
	handle        TEXT NOT NULL UNIQUE,
	authority     TEXT NOT NULL,
	main_address  TEXT NOT NULL,
	bio           TEXT NOT NULL DEFAULT '',
	avatar        TEXT NOT NULL DEFAULT '',
	twitter       TEXT NOT NULL DEFAULT '',
	discord       TEXT NOT NULL DEFAULT '',
	website       TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS reverse_lookups (
	record_key  TEXT PRIMARY KEY,
	address     TEXT NOT NULL,
	handle      TEXT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS mappings (
	record_key    TEXT PRIMARY KEY,
	handle        TEXT NOT NULL,
	mapping_type  TEXT NOT NULL,
	target        TEXT NOT NULL,
	type_hint     SMALLINT NOT NULL DEFAULT 0,
	updated_at    TIMESTAMPTZ NOT NULL,
	UNIQUE (handle, mapping_type)
);

CREATE TABLE IF NOT EXISTS points_ledgers (
	record_key    TEXT PRIMARY KEY,
	handle        TEXT NOT NULL UNIQUE,
	balance       BIGINT NOT NULL CHECK (balance >= 0 AND balance <= 4294967295),
	native_value  BIGINT NOT NULL CHECK (native_value >= 0),
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS auth_sessions (
	record_key       TEXT PRIMARY KEY,
	handle           TEXT NOT NULL,
	session_id       TEXT NOT NULL,
	required_points  BIGINT NOT NULL CHECK (required_points >= 0),
	device           TEXT NOT NULL DEFAULT '',
	active           BOOLEAN NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	consumed_at      TIMESTAMPTZ,
	UNIQUE (handle, session_id)
);

CREATE TABLE IF NOT EXISTS transfers (
	id               BIGSERIAL PRIMARY KEY,
	sender_handle    TEXT NOT NULL,
	recipient_handle TEXT NOT NULL,
	mapping_type     TEXT NOT NULL DEFAULT '',
	from_address     TEXT NOT NULL,
	to_address       TEXT NOT NULL,
	amount           BIGINT NOT NULL CHECK (amount > 0),
	points_spent     BIGINT NOT NULL,
	session_id       TEXT NOT NULL,
	memo             TEXT NOT NULL DEFAULT '',
	executed_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS transfers_sender_idx
	ON transfers (sender_handle, executed_at DESC);
`

// EnsureSchema applies the DDL. Safe to call on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
