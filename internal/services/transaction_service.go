package services

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/openbooks/backend/internal/ledger"
)

const dateLayout = "2006-01-02"

type TransactionService struct {
	ledger    *ledger.Ledger
	validator *ValidationHelper
}

func NewTransactionService(l *ledger.Ledger) *TransactionService {
	return &TransactionService{
		ledger:    l,
		validator: NewValidationHelper(),
	}
}

// CreateTransactionRequest represents the posting payload
// @Description Double-entry posting request: +amount to account, -amount to contra account
type CreateTransactionRequest struct {
	AccountID       string          `json:"account_id" validate:"required,uuid" example:"6f1f64e0-08b6-4a78-9e0f-8a2f1f64e008"`
	ContraAccountID string          `json:"contra_account_id" validate:"required,uuid" example:"9d2b11aa-4c1e-4b8e-8305-9d2b11aa4c1e"`
	TransactionDate string          `json:"transaction_date" validate:"required,datetime=2006-01-02" example:"2025-03-14"`
	Amount          decimal.Decimal `json:"amount" example:"100.0000"`
	Description     string          `json:"description,omitempty" validate:"omitempty,max=500"`
	ReferenceNumber string          `json:"reference_number,omitempty" validate:"omitempty,max=100"`
}

// CreateTransaction posts a double-entry transaction
// @Summary Post a transaction
// @Description Apply +amount to the primary account and -amount to the contra account atomically
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body CreateTransactionRequest true "Transaction data"
// @Success 201 {object} ledger.TransactionResult
// @Failure 400 {object} ErrorResponse
// @Failure 402 {object} ErrorResponse "Insufficient funds"
// @Failure 404 {object} ErrorResponse
// @Router /transactions [post]
func (s *TransactionService) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req CreateTransactionRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	date, err := time.Parse(dateLayout, req.TransactionDate)
	if err != nil {
		SendErrorResponse(w, "Invalid transaction date", http.StatusBadRequest, nil)
		return
	}

	result, err := s.ledger.Post(r.Context(), req.AccountID, req.ContraAccountID, date, req.Amount, req.Description, req.ReferenceNumber)
	if err != nil {
		log.Printf("[TRANSACTION] Post failed: %v", err)
		SendLedgerError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, result)
}

// VoidTransaction reverses a posted transaction
// @Summary Void a transaction
// @Description Reverse the balance effects of a posted transaction; voiding is one-way
// @Tags transactions
// @Produce json
// @Param transactionID path string true "Transaction ID"
// @Success 200 {object} ledger.TransactionResult
// @Failure 400 {object} ErrorResponse "Already voided"
// @Failure 404 {object} ErrorResponse
// @Router /transactions/{transactionID}/void [post]
func (s *TransactionService) VoidTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	result, err := s.ledger.Void(r.Context(), transactionID)
	if err != nil {
		log.Printf("[TRANSACTION] Void failed for %s: %v", transactionID, err)
		SendLedgerError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// GetTransaction retrieves a transaction by ID
// @Summary Get a transaction
// @Tags transactions
// @Produce json
// @Param transactionID path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} ErrorResponse
// @Router /transactions/{transactionID} [get]
func (s *TransactionService) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	txn, err := s.ledger.GetTransaction(r.Context(), transactionID)
	if err != nil {
		SendLedgerError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, txn)
}

// ListTransactions lists transactions with optional filters and pagination
// @Summary List transactions
// @Tags transactions
// @Produce json
// @Param account_id query string false "Match either side of the posting"
// @Param start_date query string false "Inclusive start date (YYYY-MM-DD)"
// @Param end_date query string false "Inclusive end date (YYYY-MM-DD)"
// @Param is_void query bool false "Void status filter"
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {array} models.Transaction
// @Router /transactions [get]
func (s *TransactionService) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := ledger.TransactionFilter{AccountID: q.Get("account_id")}

	if raw := q.Get("start_date"); raw != "" {
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			SendErrorResponse(w, "Invalid start date", http.StatusBadRequest, nil)
			return
		}
		filter.StartDate = date
	}
	if raw := q.Get("end_date"); raw != "" {
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			SendErrorResponse(w, "Invalid end date", http.StatusBadRequest, nil)
			return
		}
		filter.EndDate = date
	}
	if raw := q.Get("is_void"); raw != "" {
		isVoid, err := strconv.ParseBool(raw)
		if err != nil {
			SendErrorResponse(w, "Invalid is_void value", http.StatusBadRequest, nil)
			return
		}
		filter.IsVoid = &isVoid
	}

	page, pageSize := pagination(r)

	transactions, err := s.ledger.ListTransactions(r.Context(), filter, page, pageSize)
	if err != nil {
		SendLedgerError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, transactions)
}
