package services

import (
	"log"
	"net/http"
	"time"

	"github.com/openbooks/backend/internal/ledger"
)

type ReportService struct {
	ledger *ledger.Ledger
}

func NewReportService(l *ledger.Ledger) *ReportService {
	return &ReportService{ledger: l}
}

// BalanceReport generates a balance report grouped by account type
// @Summary Generate a balance report
// @Description Per-account balances, per-type totals and net worth (assets - liabilities)
// @Tags reports
// @Produce json
// @Param date query string false "Report date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} ledger.BalanceReport
// @Router /reports/balance [get]
func (s *ReportService) BalanceReport(w http.ResponseWriter, r *http.Request) {
	var asOf time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			SendErrorResponse(w, "Invalid report date", http.StatusBadRequest, nil)
			return
		}
		asOf = date
	}

	report, err := s.ledger.BalanceReport(r.Context(), asOf)
	if err != nil {
		log.Printf("[REPORT] Balance report failed: %v", err)
		SendLedgerError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// ProfitLossReport generates a profit and loss report for a date range
// @Summary Generate a profit/loss report
// @Description Total income, total expenses and net over an inclusive date range
// @Tags reports
// @Produce json
// @Param start_date query string true "Inclusive start date (YYYY-MM-DD)"
// @Param end_date query string true "Inclusive end date (YYYY-MM-DD)"
// @Success 200 {object} ledger.ProfitLossReport
// @Failure 400 {object} ErrorResponse
// @Router /reports/profit-loss [get]
func (s *ReportService) ProfitLossReport(w http.ResponseWriter, r *http.Request) {
	startDate, err := time.Parse(dateLayout, r.URL.Query().Get("start_date"))
	if err != nil {
		SendErrorResponse(w, "Invalid start date", http.StatusBadRequest, nil)
		return
	}
	endDate, err := time.Parse(dateLayout, r.URL.Query().Get("end_date"))
	if err != nil {
		SendErrorResponse(w, "Invalid end date", http.StatusBadRequest, nil)
		return
	}

	report, err := s.ledger.ProfitLossReport(r.Context(), startDate, endDate)
	if err != nil {
		log.Printf("[REPORT] Profit/loss report failed: %v", err)
		SendLedgerError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// Snapshot appends a balance snapshot row for every account
// @Summary Record balance snapshots
// @Description Append the current balance of every account to the snapshot history
// @Tags reports
// @Produce json
// @Param date query string false "Snapshot date (YYYY-MM-DD), defaults to today"
// @Success 201 {object} map[string]int64
// @Router /reports/snapshot [post]
func (s *ReportService) Snapshot(w http.ResponseWriter, r *http.Request) {
	var asOf time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			SendErrorResponse(w, "Invalid snapshot date", http.StatusBadRequest, nil)
			return
		}
		asOf = date
	}

	count, err := s.ledger.TakeSnapshot(r.Context(), asOf)
	if err != nil {
		log.Printf("[REPORT] Snapshot failed: %v", err)
		SendLedgerError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]int64{"accounts_recorded": count})
}
