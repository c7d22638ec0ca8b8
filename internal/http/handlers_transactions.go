package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

type createTransactionRequest struct {
	CategoryID  string          `json:"categoryId"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	IsRecurring bool            `json:"isRecurring"`
	Interval    string          `json:"recurringInterval"`
}

type createTransactionResponse struct {
	Transaction core.Transaction `json:"transaction"`
	Warning     string           `json:"warning,omitempty"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	date := time.Now()
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		date = parsed
	}

	result, err := s.transactions.Create(r.Context(), core.Transaction{
		UserID:      userID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Date:        date,
		Description: req.Description,
		IsRecurring: req.IsRecurring,
		Interval:    core.RecurringInterval(req.Interval),
	})
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Create transaction failed",
			applog.FieldUserID, userID,
			applog.FieldCategoryID, req.CategoryID,
			applog.FieldError, err)
		writeDomainError(w, err)
		return
	}

	s.invalidateStats(userID)
	writeJSON(w, http.StatusCreated, createTransactionResponse{
		Transaction: result.Transaction,
		Warning:     result.Warning,
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.transactions.List(r.Context(), userID, window)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "List transactions failed", applog.FieldUserID, userID, applog.FieldError, err)
		writeDomainError(w, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	id := chi.URLParam(r, "id")

	if err := s.transactions.Delete(r.Context(), userID, id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.invalidateStats(userID)
	w.WriteHeader(http.StatusNoContent)
}

// parseDate accepts RFC 3339 timestamps or bare YYYY-MM-DD dates.
func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t, nil
	}
	return time.Time{}, &dateError{value: v}
}

type dateError struct{ value string }

func (e *dateError) Error() string {
	return "invalid date " + e.value + ", want RFC 3339 or YYYY-MM-DD"
}
