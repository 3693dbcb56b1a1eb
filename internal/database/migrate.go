package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema statements are idempotent so the migrator can run on every boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		type VARCHAR(50) NOT NULL,
		description TEXT,
		opening_balance NUMERIC(19,4) NOT NULL,
		current_balance NUMERIC(19,4) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		account_id UUID NOT NULL REFERENCES accounts(id),
		contra_account_id UUID NOT NULL REFERENCES accounts(id),
		transaction_date DATE NOT NULL,
		amount NUMERIC(19,4) NOT NULL CHECK (amount > 0),
		description VARCHAR(500),
		reference_number VARCHAR(100),
		is_void BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (transaction_date)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions (account_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_contra ON transactions (contra_account_id)`,
	`CREATE TABLE IF NOT EXISTS balance_snapshots (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_id UUID NOT NULL REFERENCES accounts(id),
		balance_date DATE NOT NULL,
		balance NUMERIC(19,4) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(100) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the ledger schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
