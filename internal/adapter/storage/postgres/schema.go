package postgres

import (
	"context"
	"fmt"
)

// schemaSQL creates the custody tables. Every statement is idempotent.
// wallets rows are insert-only: the primary key on user_id is what makes
// concurrent creation for one user resolve to a single record.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS wallets (
	user_id       TEXT PRIMARY KEY,
	address       TEXT NOT NULL UNIQUE,
	encrypted_key BYTEA NOT NULL,
	salt          BYTEA NOT NULL CHECK (octet_length(salt) = 16),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS transactions (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES wallets (user_id),
	tx_hash    TEXT NOT NULL UNIQUE,
	direction  TEXT NOT NULL CHECK (direction IN ('in', 'out')),
	amount     NUMERIC(36, 18) NOT NULL CHECK (amount >= 0),
	to_address TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_created
	ON transactions (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS audit_logs (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL,
	action     TEXT NOT NULL,
	details    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_audit_logs_user_created
	ON audit_logs (user_id, created_at DESC);
`

// EnsureSchema creates the tables if they do not exist yet.
func EnsureSchema(ctx context.Context, pool Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
