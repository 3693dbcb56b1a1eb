package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceSnapshot is an append-only historical record of an account's
// balance as of a given date. Written by report jobs, never by the engine.
type BalanceSnapshot struct {
	ID          string          `json:"id" db:"id"`
	AccountID   string          `json:"account_id" db:"account_id"`
	BalanceDate time.Time       `json:"balance_date" db:"balance_date"`
	Balance     decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
