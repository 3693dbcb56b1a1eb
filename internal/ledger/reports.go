package ledger

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbooks/backend/internal/models"
)

// BalanceReport groups live account balances by type. Reads take no locks;
// a report is a point-in-time view, not linearizable with concurrent posts.
type BalanceReport struct {
	ReportDate time.Time                              `json:"report_date"`
	Accounts   []*models.Account                      `json:"accounts"`
	Totals     map[models.AccountType]decimal.Decimal `json:"totals"`
	NetWorth   decimal.Decimal                        `json:"net_worth"`
}

type ProfitLossReport struct {
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetProfitLoss decimal.Decimal `json:"net_profit_loss"`
}

func (l *Ledger) BalanceReport(ctx context.Context, asOf time.Time) (*BalanceReport, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC().Truncate(24 * time.Hour)
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, name, type, description, opening_balance, current_balance, created_at, updated_at
		FROM accounts
		ORDER BY type, name`)
	if err != nil {
		return nil, storageError(err, "generate balance report")
	}
	defer rows.Close()

	report := &BalanceReport{
		ReportDate: asOf,
		Accounts:   []*models.Account{},
		Totals:     make(map[models.AccountType]decimal.Decimal, len(models.AccountTypes)),
	}
	for _, t := range models.AccountTypes {
		report.Totals[t] = decimal.Zero
	}

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, storageError(err, "generate balance report")
		}
		report.Accounts = append(report.Accounts, account)
		report.Totals[account.Type] = report.Totals[account.Type].Add(account.CurrentBalance)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "generate balance report")
	}

	report.NetWorth = report.Totals[models.AccountTypeAsset].Sub(report.Totals[models.AccountTypeLiability])
	return report, nil
}

// ProfitLossReport sums non-void transactions over an inclusive date range.
// Income is recognized on the primary side of INCOME accounts, expenses on
// the contra side of EXPENSE accounts. The asymmetry follows the ledger's
// posting convention; changing it would change reported figures.
func (l *Ledger) ProfitLossReport(ctx context.Context, startDate, endDate time.Time) (*ProfitLossReport, error) {
	if startDate.IsZero() || endDate.IsZero() {
		return nil, validationErrorf("start date and end date are required")
	}
	if endDate.Before(startDate) {
		return nil, validationErrorf("end date must not be before start date")
	}

	report := &ProfitLossReport{StartDate: startDate, EndDate: endDate}

	err := l.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(t.amount), 0)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.type = 'INCOME' AND t.transaction_date BETWEEN $1 AND $2 AND t.is_void = FALSE`,
		startDate, endDate,
	).Scan(&report.TotalIncome)
	if err != nil {
		return nil, storageError(err, "sum income")
	}

	err = l.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(t.amount), 0)
		FROM transactions t
		JOIN accounts c ON c.id = t.contra_account_id
		WHERE c.type = 'EXPENSE' AND t.transaction_date BETWEEN $1 AND $2 AND t.is_void = FALSE`,
		startDate, endDate,
	).Scan(&report.TotalExpenses)
	if err != nil {
		return nil, storageError(err, "sum expenses")
	}

	report.NetProfitLoss = report.TotalIncome.Sub(report.TotalExpenses)
	return report, nil
}

// TakeSnapshot appends one balance_snapshots row per account, recording every
// current balance as of the given date. Returns the number of rows written.
func (l *Ledger) TakeSnapshot(ctx context.Context, asOf time.Time) (int64, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC().Truncate(24 * time.Hour)
	}

	result, err := l.db.ExecContext(ctx, `
		INSERT INTO balance_snapshots (account_id, balance_date, balance)
		SELECT id, $1, current_balance FROM accounts`, asOf)
	if err != nil {
		return 0, storageError(err, "take balance snapshot")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, storageError(err, "take balance snapshot")
	}

	log.Printf("[LEDGER] Snapshot recorded for %d accounts as of %s", count, asOf.Format("2006-01-02"))
	return count, nil
}
