package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbooks/backend/internal/ledger"
)

func newReportServiceMock(t *testing.T) (*ReportService, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewReportService(ledger.New(db)), mock
}

func TestReportService_BalanceReport(t *testing.T) {
	t.Run("returns grouped balances and net worth", func(t *testing.T) {
		service, mock := newReportServiceMock(t)

		mock.ExpectQuery(`FROM accounts\s+ORDER BY type, name`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "description", "opening_balance", "current_balance", "created_at", "updated_at"}).
				AddRow(testAccountID, "Checking", "ASSET", nil, "1000.0000", "1000.0000", time.Now(), time.Now()).
				AddRow(testContraAccountID, "Credit Card", "LIABILITY", nil, "0.0000", "300.0000", time.Now(), time.Now()))

		req := httptest.NewRequest("GET", "/api/reports/balance?date=2025-06-30", nil)
		w := httptest.NewRecorder()

		service.BalanceReport(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"net_worth":"700.0000"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("malformed date returns 400", func(t *testing.T) {
		service, _ := newReportServiceMock(t)

		req := httptest.NewRequest("GET", "/api/reports/balance?date=June", nil)
		w := httptest.NewRecorder()

		service.BalanceReport(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReportService_ProfitLossReport(t *testing.T) {
	t.Run("returns income, expenses and net", func(t *testing.T) {
		service, mock := newReportServiceMock(t)

		mock.ExpectQuery("JOIN accounts a ON a.id = t.account_id").
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("200.0000"))
		mock.ExpectQuery("JOIN accounts c ON c.id = t.contra_account_id").
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("50.0000"))

		req := httptest.NewRequest("GET", "/api/reports/profit-loss?start_date=2025-01-01&end_date=2025-01-31", nil)
		w := httptest.NewRecorder()

		service.ProfitLossReport(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"net_profit_loss":"150.0000"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing dates return 400", func(t *testing.T) {
		service, _ := newReportServiceMock(t)

		req := httptest.NewRequest("GET", "/api/reports/profit-loss", nil)
		w := httptest.NewRecorder()

		service.ProfitLossReport(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("inverted range returns 400", func(t *testing.T) {
		service, _ := newReportServiceMock(t)

		req := httptest.NewRequest("GET", "/api/reports/profit-loss?start_date=2025-01-31&end_date=2025-01-01", nil)
		w := httptest.NewRecorder()

		service.ProfitLossReport(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReportService_Snapshot(t *testing.T) {
	service, mock := newReportServiceMock(t)

	t.Run("returns the number of accounts recorded", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO balance_snapshots").
			WillReturnResult(sqlmock.NewResult(0, 5))

		req := httptest.NewRequest("POST", "/api/reports/snapshot?date=2025-06-30", nil)
		w := httptest.NewRecorder()

		service.Snapshot(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"accounts_recorded":5`)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
