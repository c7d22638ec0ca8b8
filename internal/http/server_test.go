package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/services"
)

// fakeEngine serves canned views and counts calls so tests can observe
// cache hits.
type fakeEngine struct {
	mu    sync.Mutex
	calls map[string]int

	summaryErr error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{calls: make(map[string]int)}
}

func (f *fakeEngine) count(view string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[view]++
}

func (f *fakeEngine) callCount(view string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[view]
}

func (f *fakeEngine) Summary(ctx context.Context, userID string, w *core.Window) (core.Summary, error) {
	f.count("summary")
	if f.summaryErr != nil {
		return core.Summary{}, f.summaryErr
	}
	return core.Summary{
		TotalIncome:   decimal.NewFromInt(1000),
		TotalExpenses: decimal.NewFromInt(400),
		NetBalance:    decimal.NewFromInt(600),
	}, nil
}

func (f *fakeEngine) CategoryBreakdown(ctx context.Context, userID string, w *core.Window) ([]core.CategoryBreakdown, error) {
	f.count("breakdown")
	return []core.CategoryBreakdown{{Category: "Food", Total: decimal.NewFromInt(400), Icon: "🍔"}}, nil
}

func (f *fakeEngine) DailyTrends(ctx context.Context, userID string, days int) ([]core.DailyTrend, error) {
	f.count("trends")
	if days <= 0 {
		return nil, core.ErrInvalidDays
	}
	return []core.DailyTrend{{Date: "2026-08-01", Total: decimal.NewFromInt(10)}}, nil
}

func (f *fakeEngine) BudgetStatus(ctx context.Context, userID string) ([]core.BudgetStatus, error) {
	f.count("budget-status")
	return []core.BudgetStatus{}, nil
}

func (f *fakeEngine) Forecast(ctx context.Context, userID string) (core.Forecast, error) {
	f.count("forecast")
	return core.Forecast{DailyAverage: decimal.NewFromInt(20)}, nil
}

// memStore backs the write services in tests.
type memStore struct {
	mu           sync.Mutex
	categories   map[string]core.Category
	transactions []core.Transaction
	budgets      map[[4]any]core.Budget
	goals        []core.Goal
}

func newMemStore() *memStore {
	return &memStore{
		categories: map[string]core.Category{
			"cat-food": {ID: "cat-food", Name: "Food", Type: core.Expense, Icon: "🍔"},
		},
		budgets: make(map[[4]any]core.Budget),
	}
}

func (s *memStore) CreateTransaction(ctx context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, t)
	return nil
}

func (s *memStore) ListTransactions(ctx context.Context, userID string, w *core.Window) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.UserID != userID {
			continue
		}
		if w != nil && !w.Contains(t.Date) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *memStore) DeleteTransaction(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.transactions {
		if t.ID == id && t.UserID == userID {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *memStore) GetCategory(ctx context.Context, id string) (*core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.categories[id]; ok {
		return &c, nil
	}
	return nil, core.ErrCategoryNotFound
}

func (s *memStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		out = append(out, c)
	}
	return out, nil
}

func (s *memStore) UpsertBudget(ctx context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[[4]any{b.UserID, b.CategoryID, b.Month, b.Year}] = b
	return nil
}

func (s *memStore) ListBudgets(ctx context.Context, userID string, month, year int) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID != userID {
			continue
		}
		if month != 0 && b.Month != month {
			continue
		}
		if year != 0 && b.Year != year {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *memStore) CreateGoal(ctx context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = append(s.goals, g)
	return nil
}

func (s *memStore) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Goal
	for _, g := range s.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *memStore) DeleteGoal(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.goals {
		if g.ID == id && g.UserID == userID {
			s.goals = append(s.goals[:i], s.goals[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func newTestServer(t *testing.T, engine StatsEngine, ttl time.Duration) (*Server, *memStore) {
	t.Helper()
	store := newMemStore()
	norm := currency.New("TL", map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(35),
		"EUR": decimal.NewFromInt(38),
		"TL":  decimal.NewFromInt(1),
	})
	srv := NewServer(Options{
		Addr:          ":0",
		Engine:        engine,
		Transactions:  services.NewTransactionService(store, norm, nil),
		Budgets:       services.NewBudgetService(store),
		Goals:         services.NewGoalService(store),
		Categories:    store,
		StatsCacheTTL: ttl,
	})
	return srv, store
}

func doRequest(t *testing.T, h http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, newFakeEngine(), 0)

	rec := doRequest(t, srv.Handler, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}

	rec = doRequest(t, srv.Handler, http.MethodGet, "/readyz", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200", rec.Code)
	}
}

func TestMissingUserIDRejected(t *testing.T) {
	srv, _ := newTestServer(t, newFakeEngine(), 0)

	rec := doRequest(t, srv.Handler, http.MethodGet, "/api/stats/summary", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestSummary(t *testing.T) {
	srv, _ := newTestServer(t, newFakeEngine(), 0)

	rec := doRequest(t, srv.Handler, http.MethodGet, "/api/stats/summary", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got core.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.NetBalance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("netBalance = %s, want 600", got.NetBalance)
	}
}

func TestSummaryWindowValidation(t *testing.T) {
	srv, _ := newTestServer(t, newFakeEngine(), 0)

	tests := []struct {
		name  string
		query string
	}{
		{"start alone", "?start=2026-08-01"},
		{"malformed start", "?start=08/01/2026&end=2026-08-31"},
		{"inverted window", "?start=2026-08-31&end=2026-08-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv.Handler, http.MethodGet, "/api/stats/summary"+tt.query, "user-1", "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestStatsCaching(t *testing.T) {
	engine := newFakeEngine()
	srv, _ := newTestServer(t, engine, time.Minute)

	for i := 0; i < 3; i++ {
		rec := doRequest(t, srv.Handler, http.MethodGet, "/api/stats/summary", "user-1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	}
	if n := engine.callCount("summary"); n != 1 {
		t.Errorf("engine called %d times, want 1 (cached)", n)
	}

	// A different user misses the cache.
	doRequest(t, srv.Handler, http.MethodGet, "/api/stats/summary", "user-2", "")
	if n := engine.callCount("summary"); n != 2 {
		t.Errorf("engine called %d times after second user, want 2", n)
	}
}

func TestWriteInvalidatesStatsCache(t *testing.T) {
	engine := newFakeEngine()
	srv, _ := newTestServer(t, engine, time.Minute)

	doRequest(t, srv.Handler, http.MethodGet, "/api/stats/summary", "user-1", "")
	doRequest(t, srv.Handler, http.MethodPost, "/api/transactions/", "user-1",
		`{"categoryId":"cat-food","amount":"50","date":"2026-08-15"}`)
	doRequest(t, srv.Handler, http.MethodGet, "/api/stats/summary", "user-1", "")

	if n := engine.callCount("summary"); n != 2 {
		t.Errorf("engine called %d times, want 2 (cache invalidated by write)", n)
	}
}

func TestTrendsInvalidDays(t *testing.T) {
	srv, _ := newTestServer(t, newFakeEngine(), 0)

	rec := doRequest(t, srv.Handler, http.MethodGet, "/api/stats/trends?days=-1", "user-1", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, srv.Handler, http.MethodGet, "/api/stats/trends?days=abc", "user-1", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for non-numeric days", rec.Code)
	}
}

func TestOverview(t *testing.T) {
	srv, _ := newTestServer(t, newFakeEngine(), 0)

	rec := doRequest(t, srv.Handler, http.MethodGet, "/api/stats/overview", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got overview
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Summary.TotalIncome.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("overview summary income = %s, want 1000", got.Summary.TotalIncome)
	}
	if len(got.Breakdown) != 1 {
		t.Errorf("overview breakdown rows = %d, want 1", len(got.Breakdown))
	}
}

func TestOverviewFailsWhole(t *testing.T) {
	engine := newFakeEngine()
	engine.summaryErr = context.DeadlineExceeded
	srv, _ := newTestServer(t, engine, 0)

	rec := doRequest(t, srv.Handler, http.MethodGet, "/api/stats/overview", "user-1", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestCreateTransaction(t *testing.T) {
	srv, store := newTestServer(t, newFakeEngine(), 0)

	rec := doRequest(t, srv.Handler, http.MethodPost, "/api/transactions/", "user-1",
		`{"categoryId":"cat-food","amount":"120.50","currency":"USD","date":"2026-08-15","description":"groceries"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var got createTransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Transaction.ID == "" {
		t.Error("expected assigned transaction id")
	}
	if got.Transaction.Currency != "USD" {
		t.Errorf("currency = %s, want USD", got.Transaction.Currency)
	}
	if len(store.transactions) != 1 {
		t.Fatalf("stored %d transactions, want 1", len(store.transactions))
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv, _ := newTestServer(t, newFakeEngine(), 0)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", `{"categoryId":`, http.StatusBadRequest},
		{"unknown field", `{"categoryId":"cat-food","amount":"5","nope":1}`, http.StatusBadRequest},
		{"zero amount", `{"categoryId":"cat-food","amount":"0"}`, http.StatusBadRequest},
		{"missing category", `{"amount":"5"}`, http.StatusBadRequest},
		{"unknown category", `{"categoryId":"cat-nope","amount":"5"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"categoryId":"cat-food","amount":"5","date":"15/08/2026"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv.Handler, http.MethodPost, "/api/transactions/", "user-1", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestListAndDeleteTransaction(t *testing.T) {
	srv, store := newTestServer(t, newFakeEngine(), 0)

	doRequest(t, srv.Handler, http.MethodPost, "/api/transactions/", "user-1",
		`{"categoryId":"cat-food","amount":"10","date":"2026-08-10"}`)

	rec := doRequest(t, srv.Handler, http.MethodGet, "/api/transactions/?start=2026-08-01&end=2026-08-31", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var txs []core.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("listed %d transactions, want 1", len(txs))
	}

	rec = doRequest(t, srv.Handler, http.MethodDelete, "/api/transactions/"+txs[0].ID, "user-1", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	if len(store.transactions) != 0 {
		t.Errorf("stored %d transactions after delete, want 0", len(store.transactions))
	}

	rec = doRequest(t, srv.Handler, http.MethodDelete, "/api/transactions/"+txs[0].ID, "user-1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestBudgetUpsert(t *testing.T) {
	srv, store := newTestServer(t, newFakeEngine(), 0)

	body := `{"categoryId":"cat-food","month":8,"year":2026,"limit":"500"}`
	rec := doRequest(t, srv.Handler, http.MethodPost, "/api/budgets/", "user-1", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	// Same key again with a new limit updates in place.
	doRequest(t, srv.Handler, http.MethodPost, "/api/budgets/", "user-1",
		`{"categoryId":"cat-food","month":8,"year":2026,"limit":"750"}`)
	if len(store.budgets) != 1 {
		t.Fatalf("stored %d budgets, want 1", len(store.budgets))
	}

	rec = doRequest(t, srv.Handler, http.MethodGet, "/api/budgets/?month=8&year=2026", "user-1", "")
	var budgets []core.Budget
	if err := json.Unmarshal(rec.Body.Bytes(), &budgets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(budgets) != 1 || !budgets[0].Limit.Equal(decimal.NewFromInt(750)) {
		t.Errorf("budgets = %+v, want one row with limit 750", budgets)
	}
}

func TestBudgetValidation(t *testing.T) {
	srv, _ := newTestServer(t, newFakeEngine(), 0)

	rec := doRequest(t, srv.Handler, http.MethodPost, "/api/budgets/", "user-1",
		`{"categoryId":"cat-food","month":13,"year":2026,"limit":"500"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for month 13", rec.Code)
	}
}

func TestGoalLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, newFakeEngine(), 0)

	rec := doRequest(t, srv.Handler, http.MethodPost, "/api/goals/", "user-1",
		`{"title":"Vacation","targetAmount":"3000","deadline":"2027-06-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var goal core.Goal
	if err := json.Unmarshal(rec.Body.Bytes(), &goal); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doRequest(t, srv.Handler, http.MethodGet, "/api/goals/", "user-1", "")
	var goals []core.Goal
	if err := json.Unmarshal(rec.Body.Bytes(), &goals); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("listed %d goals, want 1", len(goals))
	}

	rec = doRequest(t, srv.Handler, http.MethodDelete, "/api/goals/"+goal.ID, "user-1", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
}

func TestListCategories(t *testing.T) {
	srv, _ := newTestServer(t, newFakeEngine(), 0)

	rec := doRequest(t, srv.Handler, http.MethodGet, "/api/categories", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var cats []core.Category
	if err := json.Unmarshal(rec.Body.Bytes(), &cats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cats) != 1 {
		t.Errorf("listed %d categories, want 1", len(cats))
	}
}
