package http

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// overview bundles every aggregation view in a single response so
// dashboards can load with one round trip.
type overview struct {
	Summary      core.Summary             `json:"summary"`
	Breakdown    []core.CategoryBreakdown `json:"breakdown"`
	Trends       []core.DailyTrend        `json:"trends"`
	BudgetStatus []core.BudgetStatus      `json:"budgetStatus"`
	Forecast     core.Forecast            `json:"forecast"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := cache.Key("stats", userID, "summary", r.URL.RawQuery)
	if cached, ok := s.cachedView(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	summary, err := s.engine.Summary(r.Context(), userID, window)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Summary failed", applog.FieldUserID, userID, applog.FieldError, err)
		writeDomainError(w, err)
		return
	}
	s.cacheView(key, summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := cache.Key("stats", userID, "breakdown", r.URL.RawQuery)
	if cached, ok := s.cachedView(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	rows, err := s.engine.CategoryBreakdown(r.Context(), userID, window)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Breakdown failed", applog.FieldUserID, userID, applog.FieldError, err)
		writeDomainError(w, err)
		return
	}
	s.cacheView(key, rows)
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	days, err := parseIntParam(r, "days", s.trendDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := cache.Key("stats", userID, "trends", r.URL.RawQuery)
	if cached, ok := s.cachedView(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	trends, err := s.engine.DailyTrends(r.Context(), userID, days)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.cacheView(key, trends)
	writeJSON(w, http.StatusOK, trends)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	key := cache.Key("stats", userID, "budget-status")
	if cached, ok := s.cachedView(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	statuses, err := s.engine.BudgetStatus(r.Context(), userID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Budget status failed", applog.FieldUserID, userID, applog.FieldError, err)
		writeDomainError(w, err)
		return
	}
	s.cacheView(key, statuses)
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	key := cache.Key("stats", userID, "forecast")
	if cached, ok := s.cachedView(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	forecast, err := s.engine.Forecast(r.Context(), userID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Forecast failed", applog.FieldUserID, userID, applog.FieldError, err)
		writeDomainError(w, err)
		return
	}
	s.cacheView(key, forecast)
	writeJSON(w, http.StatusOK, forecast)
}

// handleOverview fans out to every view concurrently and fails as a whole
// if any of them fails.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	key := cache.Key("stats", userID, "overview")
	if cached, ok := s.cachedView(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	var ov overview
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		ov.Summary, err = s.engine.Summary(ctx, userID, nil)
		return err
	})
	g.Go(func() (err error) {
		ov.Breakdown, err = s.engine.CategoryBreakdown(ctx, userID, nil)
		return err
	})
	g.Go(func() (err error) {
		ov.Trends, err = s.engine.DailyTrends(ctx, userID, s.trendDays)
		return err
	})
	g.Go(func() (err error) {
		ov.BudgetStatus, err = s.engine.BudgetStatus(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		ov.Forecast, err = s.engine.Forecast(ctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(r.Context(), "Overview failed", applog.FieldUserID, userID, applog.FieldError, err)
		writeDomainError(w, err)
		return
	}
	s.cacheView(key, ov)
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) cachedView(key string) (any, bool) {
	if s.statsCache == nil {
		return nil, false
	}
	return s.statsCache.Get(key)
}

func (s *Server) cacheView(key string, v any) {
	if s.statsCache != nil {
		s.statsCache.Set(key, v)
	}
}
