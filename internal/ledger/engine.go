package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openbooks/backend/internal/models"
)

// NewBalances carries the post-update balances of the two accounts a posting
// or void touched.
type NewBalances struct {
	Account       decimal.Decimal `json:"account"`
	ContraAccount decimal.Decimal `json:"contra_account"`
}

// TransactionResult is what Post and Void hand back to the caller.
type TransactionResult struct {
	Transaction *models.Transaction `json:"transaction"`
	NewBalances NewBalances         `json:"new_balances"`
}

// TransactionFilter narrows ListTransactions results. AccountID matches the
// account on either side of the posting.
type TransactionFilter struct {
	AccountID string
	StartDate time.Time
	EndDate   time.Time
	IsVoid    *bool
}

// Post records a double-entry transaction: +amount on the primary account,
// -amount on the contra account, and the transaction row, committed
// atomically. Both account rows are locked FOR UPDATE in ascending ID order
// so concurrent posts over the same pair cannot deadlock regardless of call
// order.
func (l *Ledger) Post(ctx context.Context, accountID, contraAccountID string, date time.Time, amount decimal.Decimal, description, referenceNumber string) (*TransactionResult, error) {
	if !amount.IsPositive() {
		return nil, validationErrorf("amount must be greater than zero")
	}
	if !hasPrecision(amount, balancePrecision) {
		return nil, validationErrorf("amount exceeds %d decimal places", balancePrecision)
	}
	if accountID == contraAccountID {
		return nil, validationErrorf("account and contra account must be different")
	}
	if date.IsZero() {
		return nil, validationErrorf("transaction date is required")
	}
	if len(description) > maxTxDescriptionLen {
		return nil, validationErrorf("description exceeds %d characters", maxTxDescriptionLen)
	}
	if len(referenceNumber) > maxReferenceNumberLen {
		return nil, validationErrorf("reference number exceeds %d characters", maxReferenceNumberLen)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageError(err, "begin posting")
	}
	defer tx.Rollback()

	account, contraAccount, err := lockAccountPair(ctx, tx, accountID, contraAccountID)
	if err != nil {
		return nil, err
	}

	// Custodial balances may not go negative in either role. INCOME/EXPENSE
	// accounts are exempt: they track flows, not holdings.
	if account.Type.Custodial() && account.CurrentBalance.Add(amount).IsNegative() {
		return nil, insufficientFundsError(fmt.Sprintf(
			"insufficient funds on account %s (balance %s, amount %s)",
			account.ID, account.CurrentBalance, amount))
	}
	if contraAccount.Type.Custodial() && contraAccount.CurrentBalance.Sub(amount).IsNegative() {
		return nil, insufficientFundsError(fmt.Sprintf(
			"insufficient funds on account %s (balance %s, amount %s)",
			contraAccount.ID, contraAccount.CurrentBalance, amount))
	}

	account.CurrentBalance = account.CurrentBalance.Add(amount)
	contraAccount.CurrentBalance = contraAccount.CurrentBalance.Sub(amount)

	txn := &models.Transaction{
		ID:                uuid.NewString(),
		AccountID:         account.ID,
		AccountName:       account.Name,
		ContraAccountID:   contraAccount.ID,
		ContraAccountName: contraAccount.Name,
		TransactionDate:   date,
		Amount:            amount,
		Description:       description,
		ReferenceNumber:   referenceNumber,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions (id, account_id, contra_account_id, transaction_date, amount, description, reference_number, is_void)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
		RETURNING created_at`,
		txn.ID, txn.AccountID, txn.ContraAccountID, txn.TransactionDate, txn.Amount,
		nullString(description), nullString(referenceNumber),
	).Scan(&txn.CreatedAt)
	if err != nil {
		return nil, storageError(err, "record transaction")
	}

	if err := updateBalance(ctx, tx, account.ID, account.CurrentBalance); err != nil {
		return nil, err
	}
	if err := updateBalance(ctx, tx, contraAccount.ID, contraAccount.CurrentBalance); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storageError(err, "commit posting")
	}

	log.Printf("[LEDGER] Recorded transaction %s: %s -> %s amount %s", txn.ID, account.ID, contraAccount.ID, amount)
	return &TransactionResult{
		Transaction: txn,
		NewBalances: NewBalances{Account: account.CurrentBalance, ContraAccount: contraAccount.CurrentBalance},
	}, nil
}

// Void reverses a posted transaction exactly once. Voiding is one-way and
// deliberately not idempotent: a second void is a caller error. No funds
// check is performed, since a void restores a state that already existed.
func (l *Ledger) Void(ctx context.Context, transactionID string) (*TransactionResult, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageError(err, "begin void")
	}
	defer tx.Rollback()

	txn := &models.Transaction{}
	var description, referenceNumber sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT id, account_id, contra_account_id, transaction_date, amount, description, reference_number, is_void, created_at
		FROM transactions
		WHERE id = $1
		FOR UPDATE`, transactionID,
	).Scan(&txn.ID, &txn.AccountID, &txn.ContraAccountID, &txn.TransactionDate, &txn.Amount,
		&description, &referenceNumber, &txn.IsVoid, &txn.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError("transaction not found")
	}
	if err != nil {
		return nil, storageError(err, "lock transaction")
	}
	txn.Description = description.String
	txn.ReferenceNumber = referenceNumber.String

	if txn.IsVoid {
		return nil, validationErrorf("transaction already voided")
	}

	account, contraAccount, err := lockAccountPair(ctx, tx, txn.AccountID, txn.ContraAccountID)
	if err != nil {
		return nil, err
	}

	account.CurrentBalance = account.CurrentBalance.Sub(txn.Amount)
	contraAccount.CurrentBalance = contraAccount.CurrentBalance.Add(txn.Amount)
	txn.IsVoid = true
	txn.AccountName = account.Name
	txn.ContraAccountName = contraAccount.Name

	if _, err := tx.ExecContext(ctx, `UPDATE transactions SET is_void = TRUE WHERE id = $1`, txn.ID); err != nil {
		return nil, storageError(err, "void transaction")
	}

	if err := updateBalance(ctx, tx, account.ID, account.CurrentBalance); err != nil {
		return nil, err
	}
	if err := updateBalance(ctx, tx, contraAccount.ID, contraAccount.CurrentBalance); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storageError(err, "commit void")
	}

	log.Printf("[LEDGER] Voided transaction %s", txn.ID)
	return &TransactionResult{
		Transaction: txn,
		NewBalances: NewBalances{Account: account.CurrentBalance, ContraAccount: contraAccount.CurrentBalance},
	}, nil
}

func (l *Ledger) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	txn, err := scanTransaction(l.db.QueryRowContext(ctx, `
		SELECT t.id, t.account_id, a.name, t.contra_account_id, c.name,
		       t.transaction_date, t.amount, t.description, t.reference_number, t.is_void, t.created_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		JOIN accounts c ON c.id = t.contra_account_id
		WHERE t.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError("transaction not found")
	}
	if err != nil {
		return nil, storageError(err, "fetch transaction")
	}
	return txn, nil
}

// ListTransactions returns transactions newest-first, optionally filtered by
// account (either role), date range and void status.
func (l *Ledger) ListTransactions(ctx context.Context, filter TransactionFilter, page, pageSize int) ([]*models.Transaction, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := `
		SELECT t.id, t.account_id, a.name, t.contra_account_id, c.name,
		       t.transaction_date, t.amount, t.description, t.reference_number, t.is_void, t.created_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		JOIN accounts c ON c.id = t.contra_account_id`
	var conds []string
	var args []any

	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		conds = append(conds, fmt.Sprintf("(t.account_id = $%d OR t.contra_account_id = $%d)", len(args), len(args)))
	}
	if !filter.StartDate.IsZero() {
		args = append(args, filter.StartDate)
		conds = append(conds, fmt.Sprintf("t.transaction_date >= $%d", len(args)))
	}
	if !filter.EndDate.IsZero() {
		args = append(args, filter.EndDate)
		conds = append(conds, fmt.Sprintf("t.transaction_date <= $%d", len(args)))
	}
	if filter.IsVoid != nil {
		args = append(args, *filter.IsVoid)
		conds = append(conds, fmt.Sprintf("t.is_void = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query += fmt.Sprintf(" ORDER BY t.transaction_date DESC, t.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError(err, "list transactions")
	}
	defer rows.Close()

	transactions := []*models.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, storageError(err, "list transactions")
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "list transactions")
	}
	return transactions, nil
}

// lockAccountPair acquires FOR UPDATE locks on both accounts, always in
// ascending identifier order regardless of which role each plays. The
// returned accounts are in (primary, contra) order.
func lockAccountPair(ctx context.Context, tx *sql.Tx, accountID, contraAccountID string) (*models.Account, *models.Account, error) {
	firstID, secondID := accountID, contraAccountID
	if contraAccountID < accountID {
		firstID, secondID = contraAccountID, accountID
	}

	first, err := lockAccount(ctx, tx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := lockAccount(ctx, tx, secondID)
	if err != nil {
		return nil, nil, err
	}

	if first.ID == accountID {
		return first, second, nil
	}
	return second, first, nil
}

func lockAccount(ctx context.Context, tx *sql.Tx, id string) (*models.Account, error) {
	var account models.Account
	var description sql.NullString
	err := tx.QueryRowContext(ctx, `
		SELECT id, name, type, description, opening_balance, current_balance
		FROM accounts
		WHERE id = $1
		FOR UPDATE`, id,
	).Scan(&account.ID, &account.Name, &account.Type, &description,
		&account.OpeningBalance, &account.CurrentBalance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError("one or both accounts not found")
	}
	if err != nil {
		return nil, storageError(err, "lock account")
	}
	account.Description = description.String
	return &account, nil
}

func updateBalance(ctx context.Context, tx *sql.Tx, accountID string, balance decimal.Decimal) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE accounts SET current_balance = $2, updated_at = NOW() WHERE id = $1`,
		accountID, balance); err != nil {
		return storageError(err, "update balance")
	}
	return nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var txn models.Transaction
	var description, referenceNumber sql.NullString
	err := row.Scan(&txn.ID, &txn.AccountID, &txn.AccountName, &txn.ContraAccountID, &txn.ContraAccountName,
		&txn.TransactionDate, &txn.Amount, &description, &referenceNumber, &txn.IsVoid, &txn.CreatedAt)
	if err != nil {
		return nil, err
	}
	txn.Description = description.String
	txn.ReferenceNumber = referenceNumber.String
	return &txn, nil
}
