package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the closed vocabulary of ledger account types.
type AccountType string

const (
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
)

// AccountTypes lists every valid account type in report ordering.
var AccountTypes = []AccountType{
	AccountTypeIncome,
	AccountTypeExpense,
	AccountTypeAsset,
	AccountTypeLiability,
}

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeIncome, AccountTypeExpense, AccountTypeAsset, AccountTypeLiability:
		return true
	}
	return false
}

// Custodial reports whether balances of this type represent real holdings
// and are therefore subject to the non-negativity check when posting.
func (t AccountType) Custodial() bool {
	return t == AccountTypeAsset || t == AccountTypeLiability
}

type Account struct {
	ID             string          `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	Type           AccountType     `json:"type" db:"type"`
	Description    string          `json:"description,omitempty" db:"description"`
	OpeningBalance decimal.Decimal `json:"opening_balance" db:"opening_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance" db:"current_balance"` // mutated only inside ledger transactions
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}
