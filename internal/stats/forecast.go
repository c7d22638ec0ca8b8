package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Forecast extrapolates month-end spending from the elapsed-month spending
// rate and compares the current partial month against the same partial
// period last month. Always scoped to the current calendar month.
func (e *Engine) Forecast(ctx context.Context, userID string) (core.Forecast, error) {
	var out core.Forecast
	if userID == "" {
		return out, core.ErrMissingUserID
	}

	now := e.now()
	year, month, day := now.Year(), now.Month(), now.Day()
	daysInMonth := core.DaysInMonth(year, month)

	current, err := e.expenseTotal(ctx, userID, core.Window{
		Start: time.Date(year, month, 1, 0, 0, 0, 0, now.Location()),
		End:   endOfDay(now),
	})
	if err != nil {
		return out, fmt.Errorf("current period spending: %w", err)
	}

	// Linear extrapolation assuming uniform daily spend; deliberately not
	// adjusted for known seasonal spikes. day >= 1 always holds, but the
	// guard stays for robustness.
	dailyAverage := decimal.Zero
	if day > 0 {
		dailyAverage = current.Div(decimal.NewFromInt(int64(day)))
	}
	predicted := dailyAverage.Mul(decimal.NewFromInt(int64(daysInMonth)))

	budgets, err := e.store.ListBudgets(ctx, userID, int(month), year)
	if err != nil {
		return out, fmt.Errorf("list budgets: %w", err)
	}
	totalBudget := decimal.Zero
	for _, b := range budgets {
		totalBudget = totalBudget.Add(b.Limit)
	}

	lastPeriod, err := e.expenseTotal(ctx, userID, previousPartialMonth(now))
	if err != nil {
		return out, fmt.Errorf("last period spending: %w", err)
	}

	// No comparison basis when last month had no spending in the period.
	change := decimal.Zero
	if lastPeriod.IsPositive() {
		change = current.Sub(lastPeriod).Div(lastPeriod).Mul(decimal.NewFromInt(100))
	}

	out.CurrentSpending = current
	out.PredictedSpending = predicted
	out.RemainingBudget = totalBudget.Sub(predicted)
	out.DailyAverage = dailyAverage
	out.TotalBudget = totalBudget
	out.LastPeriodSpending = lastPeriod
	out.PercentageChange = change
	return out, nil
}

// previousPartialMonth returns day 1 through today's day-of-month of the
// previous calendar month. When the previous month is shorter than today's
// day-of-month, the cutoff clamps to its last day instead of rolling over
// into the following month.
func previousPartialMonth(now time.Time) core.Window {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prev := first.AddDate(0, -1, 0)

	cutoff := now.Day()
	if last := core.DaysInMonth(prev.Year(), prev.Month()); cutoff > last {
		cutoff = last
	}

	return core.Window{
		Start: prev,
		End:   endOfDay(time.Date(prev.Year(), prev.Month(), cutoff, 0, 0, 0, 0, now.Location())),
	}
}

func (e *Engine) expenseTotal(ctx context.Context, userID string, w core.Window) (decimal.Decimal, error) {
	txs, err := e.store.ListTransactions(ctx, userID, &w)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list transactions: %w", err)
	}
	total := decimal.Zero
	for _, t := range txs {
		if t.Category == nil || t.Category.Type != core.Expense {
			continue
		}
		total = total.Add(e.norm.Normalize(t.Amount, t.Currency))
	}
	return total, nil
}
