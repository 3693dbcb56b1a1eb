package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a double-entry posting: +amount applied to the primary
// account, -amount to the contra account. Amounts are always stored
// positive; sign is implied by role.
type Transaction struct {
	ID                string          `json:"id" db:"id"`
	AccountID         string          `json:"account_id" db:"account_id"`
	AccountName       string          `json:"account_name,omitempty" db:"-"`
	ContraAccountID   string          `json:"contra_account_id" db:"contra_account_id"`
	ContraAccountName string          `json:"contra_account_name,omitempty" db:"-"`
	TransactionDate   time.Time       `json:"transaction_date" db:"transaction_date"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	Description       string          `json:"description,omitempty" db:"description"`
	ReferenceNumber   string          `json:"reference_number,omitempty" db:"reference_number"`
	IsVoid            bool            `json:"is_void" db:"is_void"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}
