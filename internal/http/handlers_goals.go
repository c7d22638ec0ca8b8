package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type createGoalRequest struct {
	Title        string          `json:"title"`
	TargetAmount decimal.Decimal `json:"targetAmount"`
	Deadline     string          `json:"deadline"`
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	var req createGoalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	deadline, err := parseDate(req.Deadline)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	goal, err := s.goals.Create(r.Context(), core.Goal{
		UserID:       userID,
		Title:        req.Title,
		TargetAmount: req.TargetAmount,
		Deadline:     deadline,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	goals, err := s.goals.List(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if goals == nil {
		goals = []core.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	id := chi.URLParam(r, "id")

	if err := s.goals.Delete(r.Context(), userID, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.ListCategories(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if categories == nil {
		categories = []core.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}
