// Package http exposes the JSON API: aggregation and forecast views,
// transaction intake, budgets, goals, and reference categories.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/stats"
)

// StatsEngine is the read side consumed by the stats handlers.
type StatsEngine interface {
	Summary(ctx context.Context, userID string, w *core.Window) (core.Summary, error)
	CategoryBreakdown(ctx context.Context, userID string, w *core.Window) ([]core.CategoryBreakdown, error)
	DailyTrends(ctx context.Context, userID string, days int) ([]core.DailyTrend, error)
	BudgetStatus(ctx context.Context, userID string) ([]core.BudgetStatus, error)
	Forecast(ctx context.Context, userID string) (core.Forecast, error)
}

// CategoryLister provides the reference category set.
type CategoryLister interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
}

type Server struct {
	http.Server

	logger       *applog.Logger
	engine       StatsEngine
	transactions *services.TransactionService
	budgets      *services.BudgetService
	goals        *services.GoalService
	categories   CategoryLister

	statsCache *cache.TTLCache[any]
	trendDays  int

	ready func(ctx context.Context) error
}

type Options struct {
	Addr         string
	Logger       *applog.Logger
	Engine       StatsEngine
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Goals        *services.GoalService
	Categories   CategoryLister

	// TrendDays is the default window for the daily trends view when the
	// request does not specify one.
	TrendDays int

	// StatsCacheTTL bounds how stale a cached stats view may be. Zero
	// disables caching.
	StatsCacheTTL time.Duration

	// Ready reports backend readiness for the /readyz probe.
	Ready func(ctx context.Context) error
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	trendDays := opts.TrendDays
	if trendDays <= 0 {
		trendDays = stats.DefaultTrendDays
	}

	s := &Server{
		logger:       logger.WithComponent(applog.ComponentHTTP),
		engine:       opts.Engine,
		transactions: opts.Transactions,
		budgets:      opts.Budgets,
		goals:        opts.Goals,
		categories:   opts.Categories,
		trendDays:    trendDays,
		ready:        opts.Ready,
	}
	if opts.StatsCacheTTL > 0 {
		s.statsCache = cache.New[any](256, opts.StatsCacheTTL)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(applog.Middleware(s.logger))
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUserID)

		r.Route("/stats", func(r chi.Router) {
			r.Get("/summary", s.handleSummary)
			r.Get("/breakdown", s.handleBreakdown)
			r.Get("/trends", s.handleTrends)
			r.Get("/budget-status", s.handleBudgetStatus)
			r.Get("/forecast", s.handleForecast)
			r.Get("/overview", s.handleOverview)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", s.handleCreateTransaction)
			r.Get("/", s.handleListTransactions)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Post("/", s.handleSetBudget)
			r.Get("/", s.handleListBudgets)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Post("/", s.handleCreateGoal)
			r.Get("/", s.handleListGoals)
			r.Delete("/{id}", s.handleDeleteGoal)
		})

		r.Get("/categories", s.handleListCategories)
	})

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// invalidateStats flushes all cached stats views for the user. Called after
// any write that changes aggregation inputs.
func (s *Server) invalidateStats(userID string) {
	if s.statsCache != nil {
		s.statsCache.InvalidatePrefix(cache.Key("stats", userID))
	}
}
