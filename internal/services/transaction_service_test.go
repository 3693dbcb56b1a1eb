package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbooks/backend/internal/ledger"
)

const (
	testAccountID       = "1aaaaaaa-0000-4000-8000-000000000001"
	testContraAccountID = "2bbbbbbb-0000-4000-8000-000000000002"
	testTransactionID   = "3ccccccc-0000-4000-8000-000000000003"
)

func newTransactionServiceMock(t *testing.T) (*TransactionService, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTransactionService(ledger.New(db)), mock
}

func lockedAccountRows(id, accountType, balance string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "type", "description", "opening_balance", "current_balance"}).
		AddRow(id, "Account", accountType, nil, balance, balance)
}

func TestTransactionService_CreateTransaction(t *testing.T) {
	t.Run("valid posting returns 201 with new balances", func(t *testing.T) {
		service, mock := newTransactionServiceMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(testAccountID).
			WillReturnRows(lockedAccountRows(testAccountID, "ASSET", "1000.0000"))
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(testContraAccountID).
			WillReturnRows(lockedAccountRows(testContraAccountID, "ASSET", "500.0000"))
		mock.ExpectQuery("INSERT INTO transactions").
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectExec("UPDATE accounts SET current_balance").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE accounts SET current_balance").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		body := `{"account_id":"` + testAccountID + `","contra_account_id":"` + testContraAccountID + `","transaction_date":"2025-03-14","amount":"100.0000","description":"rent"}`
		req := httptest.NewRequest("POST", "/api/transactions", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.CreateTransaction(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"account":"1100.0000"`)
		assert.Contains(t, w.Body.String(), `"contra_account":"400.0000"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds returns 402", func(t *testing.T) {
		service, mock := newTransactionServiceMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(testAccountID).
			WillReturnRows(lockedAccountRows(testAccountID, "ASSET", "1000.0000"))
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(testContraAccountID).
			WillReturnRows(lockedAccountRows(testContraAccountID, "ASSET", "500.0000"))
		mock.ExpectRollback()

		body := `{"account_id":"` + testAccountID + `","contra_account_id":"` + testContraAccountID + `","transaction_date":"2025-03-14","amount":"10000.0000"}`
		req := httptest.NewRequest("POST", "/api/transactions", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.CreateTransaction(w, req)

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		assert.Contains(t, w.Body.String(), "insufficient funds")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-UUID account ID fails validation", func(t *testing.T) {
		service, _ := newTransactionServiceMock(t)

		body := `{"account_id":"abc","contra_account_id":"` + testContraAccountID + `","transaction_date":"2025-03-14","amount":"100.0000"}`
		req := httptest.NewRequest("POST", "/api/transactions", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.CreateTransaction(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed date fails validation", func(t *testing.T) {
		service, _ := newTransactionServiceMock(t)

		body := `{"account_id":"` + testAccountID + `","contra_account_id":"` + testContraAccountID + `","transaction_date":"14/03/2025","amount":"100.0000"}`
		req := httptest.NewRequest("POST", "/api/transactions", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.CreateTransaction(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("negative amount returns 400", func(t *testing.T) {
		service, _ := newTransactionServiceMock(t)

		body := `{"account_id":"` + testAccountID + `","contra_account_id":"` + testContraAccountID + `","transaction_date":"2025-03-14","amount":"-5.0000"}`
		req := httptest.NewRequest("POST", "/api/transactions", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.CreateTransaction(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTransactionService_VoidTransaction(t *testing.T) {
	transactionRows := func(isVoid bool) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "account_id", "contra_account_id", "transaction_date", "amount", "description", "reference_number", "is_void", "created_at"}).
			AddRow(testTransactionID, testAccountID, testContraAccountID,
				time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), "100.0000", nil, nil, isVoid, time.Now())
	}

	t.Run("void returns 200 with restored balances", func(t *testing.T) {
		service, mock := newTransactionServiceMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM transactions").
			WithArgs(testTransactionID).
			WillReturnRows(transactionRows(false))
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(testAccountID).
			WillReturnRows(lockedAccountRows(testAccountID, "ASSET", "1100.0000"))
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(testContraAccountID).
			WillReturnRows(lockedAccountRows(testContraAccountID, "ASSET", "400.0000"))
		mock.ExpectExec("UPDATE transactions SET is_void").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE accounts SET current_balance").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE accounts SET current_balance").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		req := withURLParam(httptest.NewRequest("POST", "/api/transactions/"+testTransactionID+"/void", nil), "transactionID", testTransactionID)
		w := httptest.NewRecorder()

		service.VoidTransaction(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"is_void":true`)
		assert.Contains(t, w.Body.String(), `"account":"1000.0000"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("voiding twice returns 400", func(t *testing.T) {
		service, mock := newTransactionServiceMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM transactions").
			WithArgs(testTransactionID).
			WillReturnRows(transactionRows(true))
		mock.ExpectRollback()

		req := withURLParam(httptest.NewRequest("POST", "/api/transactions/"+testTransactionID+"/void", nil), "transactionID", testTransactionID)
		w := httptest.NewRecorder()

		service.VoidTransaction(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "already voided")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionService_ListTransactions(t *testing.T) {
	service, mock := newTransactionServiceMock(t)

	t.Run("invalid is_void returns 400", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/transactions?is_void=maybe", nil)
		w := httptest.NewRecorder()

		service.ListTransactions(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid start date returns 400", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/transactions?start_date=notadate", nil)
		w := httptest.NewRecorder()

		service.ListTransactions(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("filters are forwarded", func(t *testing.T) {
		mock.ExpectQuery("FROM transactions").
			WithArgs(testAccountID, 20, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "account_name", "contra_account_id", "contra_account_name", "transaction_date", "amount", "description", "reference_number", "is_void", "created_at"}))

		req := httptest.NewRequest("GET", "/api/transactions?account_id="+testAccountID, nil)
		w := httptest.NewRecorder()

		service.ListTransactions(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
