package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

type setBudgetRequest struct {
	CategoryID string          `json:"categoryId"`
	Month      int             `json:"month"`
	Year       int             `json:"year"`
	Limit      decimal.Decimal `json:"limit"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	var req setBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	budget, err := s.budgets.Set(r.Context(), core.Budget{
		UserID:     userID,
		CategoryID: req.CategoryID,
		Month:      req.Month,
		Year:       req.Year,
		Limit:      req.Limit,
	})
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Set budget failed",
			applog.FieldUserID, userID,
			applog.FieldCategoryID, req.CategoryID,
			applog.FieldError, err)
		writeDomainError(w, err)
		return
	}

	s.invalidateStats(userID)
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	month, err := parseIntParam(r, "month", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	year, err := parseIntParam(r, "year", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	budgets, err := s.budgets.List(r.Context(), userID, month, year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	writeJSON(w, http.StatusOK, budgets)
}
