package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbooks/backend/internal/models"
)

func TestLedger_BalanceReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := New(db)

	t.Run("totals group by type and net worth is assets minus liabilities", func(t *testing.T) {
		mock.ExpectQuery(`FROM accounts\s+ORDER BY type, name`).
			WillReturnRows(accountRows().
				AddRow(accountA, "Checking", "ASSET", nil, "1000.0000", "1000.0000", time.Now(), time.Now()).
				AddRow(accountB, "Savings", "ASSET", nil, "500.0000", "500.0000", time.Now(), time.Now()).
				AddRow("4ddddddd-0000-4000-8000-000000000004", "Credit Card", "LIABILITY", nil, "0.0000", "300.0000", time.Now(), time.Now()).
				AddRow("5eeeeeee-0000-4000-8000-000000000005", "Salary", "INCOME", nil, "0.0000", "2000.0000", time.Now(), time.Now()))

		asOf := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
		report, err := l.BalanceReport(context.Background(), asOf)
		require.NoError(t, err)

		assert.Equal(t, asOf, report.ReportDate)
		assert.Len(t, report.Accounts, 4)
		assert.True(t, report.Totals[models.AccountTypeAsset].Equal(dec("1500.0000")))
		assert.True(t, report.Totals[models.AccountTypeLiability].Equal(dec("300.0000")))
		assert.True(t, report.Totals[models.AccountTypeIncome].Equal(dec("2000.0000")))
		assert.True(t, report.Totals[models.AccountTypeExpense].IsZero())
		assert.True(t, report.NetWorth.Equal(dec("1200.0000")))
	})

	t.Run("empty ledger reports zero totals for every type", func(t *testing.T) {
		mock.ExpectQuery(`FROM accounts\s+ORDER BY type, name`).
			WillReturnRows(accountRows())

		report, err := l.BalanceReport(context.Background(), time.Time{})
		require.NoError(t, err)

		assert.Empty(t, report.Accounts)
		assert.Len(t, report.Totals, len(models.AccountTypes))
		for _, accountType := range models.AccountTypes {
			assert.True(t, report.Totals[accountType].IsZero())
		}
		assert.True(t, report.NetWorth.IsZero())
		assert.False(t, report.ReportDate.IsZero())
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_ProfitLossReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := New(db)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	t.Run("net is income minus expenses", func(t *testing.T) {
		mock.ExpectQuery("JOIN accounts a ON a.id = t.account_id").
			WithArgs(start, end).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("200.0000"))
		mock.ExpectQuery("JOIN accounts c ON c.id = t.contra_account_id").
			WithArgs(start, end).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("50.0000"))

		report, err := l.ProfitLossReport(context.Background(), start, end)
		require.NoError(t, err)

		assert.True(t, report.TotalIncome.Equal(dec("200.0000")))
		assert.True(t, report.TotalExpenses.Equal(dec("50.0000")))
		assert.True(t, report.NetProfitLoss.Equal(dec("150.0000")))
	})

	t.Run("single-day range is valid", func(t *testing.T) {
		mock.ExpectQuery("JOIN accounts a ON a.id = t.account_id").
			WithArgs(start, start).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("0"))
		mock.ExpectQuery("JOIN accounts c ON c.id = t.contra_account_id").
			WithArgs(start, start).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("0"))

		report, err := l.ProfitLossReport(context.Background(), start, start)
		require.NoError(t, err)
		assert.True(t, report.NetProfitLoss.IsZero())
	})

	t.Run("missing dates are rejected", func(t *testing.T) {
		_, err := l.ProfitLossReport(context.Background(), time.Time{}, end)
		assert.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("end before start is rejected", func(t *testing.T) {
		_, err := l.ProfitLossReport(context.Background(), end, start)
		assert.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_TakeSnapshot(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := New(db)
	asOf := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	t.Run("records one row per account", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO balance_snapshots").
			WithArgs(asOf).
			WillReturnResult(sqlmock.NewResult(0, 3))

		count, err := l.TakeSnapshot(context.Background(), asOf)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("zero date defaults to today", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO balance_snapshots").
			WithArgs(sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		count, err := l.TakeSnapshot(context.Background(), time.Time{})
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
