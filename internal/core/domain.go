package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  CategoryType = "INCOME"
	Expense CategoryType = "EXPENSE"
)

const (
	// IntervalMonthly is the only supported recurrence interval. Templates
	// with an empty interval are treated as monthly.
	IntervalMonthly RecurringInterval = "MONTHLY"
)

type (
	CategoryType      string
	RecurringInterval string

	// Category is shared reference data, read-only from the engines'
	// perspective. The set of categories is managed via migrations.
	Category struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Type CategoryType `json:"type"`
		Icon string `json:"icon"`
	}

	// Transaction is immutable after creation. The sign of its meaning
	// (income vs expense) comes from the category type, not the amount.
	Transaction struct {
		ID          string            `json:"id"`
		UserID      string            `json:"userId"`
		CategoryID  string            `json:"categoryId"`
		Amount      decimal.Decimal   `json:"amount"`
		Currency    string            `json:"currency"`
		Date        time.Time         `json:"date"`
		Description string            `json:"description,omitempty"`
		IsRecurring bool              `json:"isRecurring"`
		Interval    RecurringInterval `json:"recurringInterval,omitempty"`

		// Category is joined in by the store. A nil category means the
		// referenced category was deleted; aggregation skips such rows.
		Category *Category `json:"category,omitempty"`
	}

	// Budget is a per-user, per-category, per-(month, year) spending
	// ceiling. At most one budget exists per composite key; creation is
	// an upsert.
	Budget struct {
		UserID     string          `json:"userId"`
		CategoryID string          `json:"categoryId"`
		Month      int             `json:"month"`
		Year       int             `json:"year"`
		Limit      decimal.Decimal `json:"limit"`

		Category *Category `json:"category,omitempty"`
	}

	// Goal is a savings target with a deadline.
	Goal struct {
		ID           string          `json:"id"`
		UserID       string          `json:"userId"`
		Title        string          `json:"title"`
		TargetAmount decimal.Decimal `json:"targetAmount"`
		Deadline     time.Time       `json:"deadline"`
	}

	// Window is an inclusive date range scoping an aggregation query.
	Window struct {
		Start time.Time
		End   time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrInvalidWindow    = errors.New("window start must not be after end")
	ErrInvalidDays      = errors.New("days must be a positive integer")
	ErrInvalidMonth     = errors.New("month must be between 1 and 12")
	ErrInvalidLimit     = errors.New("budget limit must not be negative")
	ErrInvalidInterval  = errors.New("unsupported recurring interval")
	ErrMissingUserID    = errors.New("missing user id")
	ErrMissingCategory  = errors.New("missing category id")
	ErrEmptyTitle       = errors.New("empty goal title")
	ErrCategoryNotFound = errors.New("category not found")
	ErrNotFound         = errors.New("not found")
)

func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return ErrInvalidWindow
	}
	if w.Start.After(w.End) {
		return ErrInvalidWindow
	}
	return nil
}

// Contains reports whether t falls inside the inclusive window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// MonthWindow returns the inclusive window covering the whole calendar
// month, from midnight on the 1st through the last instant of the last day.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

// DaysInMonth returns the number of calendar days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrMissingUserID
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrMissingCategory
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if t.Interval != "" && t.Interval != IntervalMonthly {
		return ErrInvalidInterval
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrMissingUserID
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrMissingCategory
	}
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidMonth
	}
	if b.Year < 1 {
		return errors.New("invalid year")
	}
	if b.Limit.IsNegative() {
		return ErrInvalidLimit
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.UserID) == "" {
		return ErrMissingUserID
	}
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.Deadline.IsZero() {
		return errors.New("deadline cannot be zero")
	}
	return nil
}
