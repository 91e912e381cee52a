package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema statements, applied in order at startup. All idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS auth_users (
		id            UUID PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		username TEXT PRIMARY KEY,
		balance  NUMERIC NOT NULL CHECK (balance >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS instruments (
		ticker TEXT PRIMARY KEY,
		price  NUMERIC NOT NULL,
		name   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id         UUID PRIMARY KEY,
		account    TEXT NOT NULL REFERENCES accounts (username),
		ticker     TEXT NOT NULL REFERENCES instruments (ticker),
		kind       TEXT NOT NULL CHECK (kind IN ('BUY', 'SELL')),
		volume     NUMERIC NOT NULL CHECK (volume > 0),
		price      NUMERIC NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_account_created_at_idx
		ON transactions (account, created_at)`,
}

// Migrate applies the schema. Safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
