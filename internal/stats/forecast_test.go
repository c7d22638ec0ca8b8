package stats

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func TestForecastExtrapolation(t *testing.T) {
	// One EXPENSE of 100 USD at rate 35, on day 5 of a 30-day month.
	now := time.Date(2024, 4, 5, 18, 0, 0, 0, time.UTC)
	food := catFood
	store := &fakeStore{txs: []core.Transaction{
		tx("u1", &food, "100", "USD", time.Date(2024, 4, 3, 10, 0, 0, 0, time.UTC)),
	}}
	e := newTestEngine(store, now)

	got, err := e.Forecast(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	eq(t, "CurrentSpending", got.CurrentSpending, "3500")
	eq(t, "DailyAverage", got.DailyAverage, "700")
	eq(t, "PredictedSpending", got.PredictedSpending, "21000")
	eq(t, "TotalBudget", got.TotalBudget, "0")
	eq(t, "RemainingBudget", got.RemainingBudget, "-21000")
	// No spending last month: no comparison basis.
	eq(t, "PercentageChange", got.PercentageChange, "0")
}

func TestForecastBudgetHeadroom(t *testing.T) {
	now := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	food, rent := catFood, catRent
	store := &fakeStore{
		budgets: []core.Budget{
			{UserID: "u1", CategoryID: food.ID, Month: 4, Year: 2024, Limit: decimal.NewFromInt(5000), Category: &food},
			{UserID: "u1", CategoryID: rent.ID, Month: 4, Year: 2024, Limit: decimal.NewFromInt(20000), Category: &rent},
		},
		txs: []core.Transaction{
			tx("u1", &food, "1000", "TL", time.Date(2024, 4, 5, 9, 0, 0, 0, time.UTC)),
		},
	}
	e := newTestEngine(store, now)

	got, err := e.Forecast(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	eq(t, "TotalBudget", got.TotalBudget, "25000")
	// 1000 over 10 days -> 100/day -> 3000 predicted for the 30-day April.
	eq(t, "PredictedSpending", got.PredictedSpending, "3000")
	eq(t, "RemainingBudget", got.RemainingBudget, "22000")
}

func TestForecastPercentageChange(t *testing.T) {
	now := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	food := catFood
	store := &fakeStore{txs: []core.Transaction{
		// 150 this month vs 100 in the same partial period last month.
		tx("u1", &food, "150", "TL", time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)),
		tx("u1", &food, "100", "TL", time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC)),
		// Day 11 of March is past the day-10 cutoff.
		tx("u1", &food, "777", "TL", time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)),
	}}
	e := newTestEngine(store, now)

	got, err := e.Forecast(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	eq(t, "LastPeriodSpending", got.LastPeriodSpending, "100")
	eq(t, "PercentageChange", got.PercentageChange, "50")
}

func TestForecastPreviousMonthClamp(t *testing.T) {
	// July 31: the previous month has only 30 days, so the comparison
	// cutoff clamps to June 30 instead of rolling into July.
	now := time.Date(2024, 7, 31, 12, 0, 0, 0, time.UTC)

	w := previousPartialMonth(now)
	if w.Start.Month() != time.June || w.Start.Day() != 1 {
		t.Errorf("start = %v, want June 1", w.Start)
	}
	if w.End.Month() != time.June || w.End.Day() != 30 {
		t.Errorf("end = %v, want end of June 30", w.End)
	}

	food := catFood
	store := &fakeStore{txs: []core.Transaction{
		tx("u1", &food, "60", "TL", time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC)),
		tx("u1", &food, "40", "TL", time.Date(2024, 7, 1, 1, 0, 0, 0, time.UTC)),
	}}
	e := newTestEngine(store, now)

	got, err := e.Forecast(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	// Only the June 30 transaction counts toward the last period; the
	// July 1 one belongs to the current month.
	eq(t, "LastPeriodSpending", got.LastPeriodSpending, "60")
	eq(t, "CurrentSpending", got.CurrentSpending, "40")
}

func TestForecastMissingUser(t *testing.T) {
	e := newTestEngine(&fakeStore{}, time.Now())
	if _, err := e.Forecast(context.Background(), ""); err != core.ErrMissingUserID {
		t.Errorf("error = %v, want ErrMissingUserID", err)
	}
}
