// Package stats computes windowed financial aggregates and month-end
// forecasts from the transaction store. All amounts are normalized into
// the canonical currency unit before summation, and all engines are
// stateless: safe for concurrent callers without locking.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/currency"
)

// DefaultTrendDays is the trailing window used when the caller does not
// supply one.
const DefaultTrendDays = 30

// zeroLimitPercentage is reported for a zero-limit budget with spending
// against it. Large and finite so threshold alerting treats the budget as
// blown without a NaN or Infinity ever reaching callers.
var zeroLimitPercentage = decimal.RequireFromString("999999.99")

// Store is the read capability the engines need from the backing store.
// ListTransactions returns rows joined to their category; a nil Category
// means the referenced category was deleted.
type Store interface {
	ListTransactions(ctx context.Context, userID string, w *core.Window) ([]core.Transaction, error)
	ListBudgets(ctx context.Context, userID string, month, year int) ([]core.Budget, error)
}

// Engine evaluates the derived views of the data model. Aggregation happens
// in memory after a filtered fetch so currency conversion stays consistent
// across every view.
type Engine struct {
	store Store
	norm  *currency.Normalizer
	now   func() time.Time
}

func NewEngine(store Store, norm *currency.Normalizer) *Engine {
	return &Engine{
		store: store,
		norm:  norm,
		now:   time.Now,
	}
}

// Summary sums normalized amounts into income and expense totals for the
// window. A nil window means all time. Transactions whose category no
// longer resolves are excluded rather than failing the computation.
func (e *Engine) Summary(ctx context.Context, userID string, w *core.Window) (core.Summary, error) {
	var out core.Summary
	if userID == "" {
		return out, core.ErrMissingUserID
	}
	if w != nil {
		if err := w.Validate(); err != nil {
			return out, err
		}
	}

	txs, err := e.store.ListTransactions(ctx, userID, w)
	if err != nil {
		return out, fmt.Errorf("list transactions: %w", err)
	}

	income := decimal.Zero
	expenses := decimal.Zero
	for _, t := range txs {
		if t.Category == nil {
			continue
		}
		amount := e.norm.Normalize(t.Amount, t.Currency)
		switch t.Category.Type {
		case core.Income:
			income = income.Add(amount)
		case core.Expense:
			expenses = expenses.Add(amount)
		}
	}

	out.TotalIncome = income
	out.TotalExpenses = expenses
	out.NetBalance = income.Sub(expenses)
	return out, nil
}

// CategoryBreakdown groups normalized expense amounts by category name,
// sorted non-increasing by total. Ties keep first-seen input order, which
// is deterministic for identical input.
func (e *Engine) CategoryBreakdown(ctx context.Context, userID string, w *core.Window) ([]core.CategoryBreakdown, error) {
	if userID == "" {
		return nil, core.ErrMissingUserID
	}
	if w != nil {
		if err := w.Validate(); err != nil {
			return nil, err
		}
	}

	txs, err := e.store.ListTransactions(ctx, userID, w)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	totals := make(map[string]*core.CategoryBreakdown)
	var order []string
	for _, t := range txs {
		if t.Category == nil || t.Category.Type != core.Expense {
			continue
		}
		amount := e.norm.Normalize(t.Amount, t.Currency)
		row, ok := totals[t.Category.Name]
		if !ok {
			row = &core.CategoryBreakdown{
				Category: t.Category.Name,
				Total:    decimal.Zero,
				Icon:     t.Category.Icon,
			}
			totals[t.Category.Name] = row
			order = append(order, t.Category.Name)
		}
		row.Total = row.Total.Add(amount)
	}

	breakdown := make([]core.CategoryBreakdown, 0, len(order))
	for _, name := range order {
		breakdown = append(breakdown, *totals[name])
	}
	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].Total.GreaterThan(breakdown[j].Total)
	})
	return breakdown, nil
}

// DailyTrends returns the expense total for each calendar day in
// [today-days, today], ascending and zero-filled: days without spending
// appear with a zero total. Non-positive days is a caller error.
func (e *Engine) DailyTrends(ctx context.Context, userID string, days int) ([]core.DailyTrend, error) {
	if userID == "" {
		return nil, core.ErrMissingUserID
	}
	if days <= 0 {
		return nil, core.ErrInvalidDays
	}

	now := e.now()
	end := endOfDay(now)
	start := startOfDay(now.AddDate(0, 0, -days))
	w := core.Window{Start: start, End: end}

	txs, err := e.store.ListTransactions(ctx, userID, &w)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	totals := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if t.Category == nil || t.Category.Type != core.Expense {
			continue
		}
		if !w.Contains(t.Date) {
			continue
		}
		key := t.Date.Format("2006-01-02")
		totals[key] = totals[key].Add(e.norm.Normalize(t.Amount, t.Currency))
	}

	trends := make([]core.DailyTrend, 0, days+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		total, ok := totals[key]
		if !ok {
			total = decimal.Zero
		}
		trends = append(trends, core.DailyTrend{Date: key, Total: total})
	}
	return trends, nil
}

// BudgetStatus reports spent-vs-limit for every budget the user holds in
// the current calendar month. No budgets yields an empty slice, not an
// error.
func (e *Engine) BudgetStatus(ctx context.Context, userID string) ([]core.BudgetStatus, error) {
	if userID == "" {
		return nil, core.ErrMissingUserID
	}

	now := e.now()
	year, month := now.Year(), now.Month()

	budgets, err := e.store.ListBudgets(ctx, userID, int(month), year)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	if len(budgets) == 0 {
		return []core.BudgetStatus{}, nil
	}

	w := core.MonthWindow(year, month, now.Location())
	txs, err := e.store.ListTransactions(ctx, userID, &w)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	spentByCategory := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if t.Category == nil || t.Category.Type != core.Expense {
			continue
		}
		spentByCategory[t.CategoryID] = spentByCategory[t.CategoryID].Add(e.norm.Normalize(t.Amount, t.Currency))
	}

	statuses := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		name := b.CategoryID
		if b.Category != nil {
			name = b.Category.Name
		}
		spent := spentByCategory[b.CategoryID]
		pct := percentageOf(spent, b.Limit)
		statuses = append(statuses, core.BudgetStatus{
			Category:   name,
			Limit:      b.Limit,
			Spent:      spent,
			Remaining:  b.Limit.Sub(spent),
			Percentage: pct,
			Message:    fmt.Sprintf("You have spent %s%% of your %s budget", pct.Round(0), name),
		})
	}
	return statuses, nil
}

// percentageOf computes 100 * spent / limit, rounded to two decimals. A
// zero limit never reaches the division: nothing spent reports 0, anything
// spent reports the finite zero-limit sentinel.
func percentageOf(spent, limit decimal.Decimal) decimal.Decimal {
	if limit.IsZero() {
		if spent.IsZero() {
			return decimal.Zero
		}
		return zeroLimitPercentage
	}
	return spent.Div(limit).Mul(decimal.NewFromInt(100)).Round(2)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
