package core

import "github.com/shopspring/decimal"

// Derived, non-persisted views produced by the aggregation and forecast
// engines. All monetary fields are in the canonical currency unit.
type (
	Summary struct {
		TotalIncome   decimal.Decimal `json:"totalIncome"`
		TotalExpenses decimal.Decimal `json:"totalExpenses"`
		NetBalance    decimal.Decimal `json:"netBalance"`
	}

	// CategoryBreakdown is one row of the expenses-by-category view,
	// ordered non-increasing by total.
	CategoryBreakdown struct {
		Category string          `json:"category"`
		Total    decimal.Decimal `json:"total"`
		Icon     string          `json:"icon"`
	}

	// DailyTrend is one calendar day of expense spending. The series is
	// zero-filled: every day in the requested window gets an entry.
	DailyTrend struct {
		Date  string          `json:"date"` // YYYY-MM-DD
		Total decimal.Decimal `json:"total"`
	}

	BudgetStatus struct {
		Category   string          `json:"category"`
		Limit      decimal.Decimal `json:"limit"`
		Spent      decimal.Decimal `json:"spent"`
		Remaining  decimal.Decimal `json:"remaining"`
		Percentage decimal.Decimal `json:"percentage"`
		Message    string          `json:"message"`
	}

	Forecast struct {
		CurrentSpending   decimal.Decimal `json:"currentSpending"`
		PredictedSpending decimal.Decimal `json:"predictedSpending"`
		RemainingBudget   decimal.Decimal `json:"remainingBudget"`
		DailyAverage      decimal.Decimal `json:"dailyAverage"`
		TotalBudget       decimal.Decimal `json:"totalBudget"`
		LastPeriodSpending decimal.Decimal `json:"lastPeriodSpending"`
		PercentageChange  decimal.Decimal `json:"percentageChange"`
	}
)
