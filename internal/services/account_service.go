package services

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/openbooks/backend/internal/ledger"
	"github.com/openbooks/backend/internal/models"
)

type AccountService struct {
	ledger    *ledger.Ledger
	validator *ValidationHelper
}

func NewAccountService(l *ledger.Ledger) *AccountService {
	return &AccountService{
		ledger:    l,
		validator: NewValidationHelper(),
	}
}

// CreateAccountRequest represents the account creation payload
// @Description Account creation request structure
type CreateAccountRequest struct {
	Name           string          `json:"name" validate:"required,max=255" example:"Cash"`
	Type           string          `json:"type" validate:"required,oneof=INCOME EXPENSE ASSET LIABILITY" example:"ASSET"`
	Description    string          `json:"description,omitempty" example:"Petty cash drawer"`
	OpeningBalance decimal.Decimal `json:"opening_balance" example:"1000.0000"`
}

// UpdateAccountRequest represents the partial account update payload
// @Description Account update request structure; omitted fields are untouched
type UpdateAccountRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty"`
}

// CreateAccount handles account creation
// @Summary Create a new account
// @Description Create a ledger account with an opening balance
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body CreateAccountRequest true "Account data"
// @Success 201 {object} models.Account
// @Failure 400 {object} ErrorResponse
// @Router /accounts [post]
func (s *AccountService) CreateAccount(w http.ResponseWriter, r *http.Request) {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req CreateAccountRequest
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

	account, err := s.ledger.CreateAccount(r.Context(), req.Name, models.AccountType(req.Type), req.Description, req.OpeningBalance)
	if err != nil {
		log.Printf("[ACCOUNT] Create failed: %v", err)
		SendLedgerError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, account)
}

// GetAccount retrieves an account by ID
// @Summary Get an account
// @Tags accounts
// @Produce json
// @Param accountID path string true "Account ID"
// @Success 200 {object} models.Account
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{accountID} [get]
func (s *AccountService) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	account, err := s.ledger.GetAccount(r.Context(), accountID)
	if err != nil {
		SendLedgerError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, account)
}

// UpdateAccount applies a partial update to an account
// @Summary Update an account
// @Description Update name and/or description; type and balances are immutable
// @Tags accounts
// @Accept json
// @Produce json
// @Param accountID path string true "Account ID"
// @Param request body UpdateAccountRequest true "Fields to update"
// @Success 200 {object} models.Account
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{accountID} [put]
func (s *AccountService) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req UpdateAccountRequest
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

	account, err := s.ledger.UpdateAccount(r.Context(), accountID, ledger.AccountUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		log.Printf("[ACCOUNT] Update failed for %s: %v", accountID, err)
		SendLedgerError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, account)
}

// ListAccounts lists accounts with optional filters and pagination
// @Summary List accounts
// @Tags accounts
// @Produce json
// @Param type query string false "Account type filter"
// @Param name query string false "Case-insensitive name substring filter"
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {array} models.Account
// @Router /accounts [get]
func (s *AccountService) ListAccounts(w http.ResponseWriter, r *http.Request) {
	filter := ledger.AccountFilter{
		Type:          models.AccountType(r.URL.Query().Get("type")),
		NameSubstring: r.URL.Query().Get("name"),
	}
	page, pageSize := pagination(r)

	accounts, err := s.ledger.ListAccounts(r.Context(), filter, page, pageSize)
	if err != nil {
		SendLedgerError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, accounts)
}

func pagination(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}
