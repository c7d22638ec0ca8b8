package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// MaterializerStore is the persistence capability the materializer needs.
// CreateRecurringInstance must run its duplicate check and insert with
// sufficient isolation that two concurrent ticks cannot both create an
// instance for the same template and period.
type MaterializerStore interface {
	ListRecurringTemplates(ctx context.Context) ([]core.Transaction, error)
	CreateRecurringInstance(ctx context.Context, t core.Transaction, w core.Window) (created bool, err error)
}

// Materializer turns recurring transaction templates into concrete monthly
// transactions. It is driven by a once-per-calendar-day tick and creates at
// most one instance per template per month: running the tick twice on the
// same day is safe.
//
// A template fires only when its day-of-month equals today's. Templates
// dated the 29th-31st therefore never fire in months too short to contain
// that day; this matches the recurrence contract and is not a bug.
type Materializer struct {
	store MaterializerStore
}

func NewMaterializer(store MaterializerStore) *Materializer {
	return &Materializer{store: store}
}

// ProcessDue materializes every template due on the day of now. Templates
// are processed independently: a store failure on one is logged and
// skipped, never fatal to the batch. Returns the number of transactions
// created.
func (m *Materializer) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if m.store == nil {
		return 0, fmt.Errorf("materializer not properly initialized")
	}

	templates, err := m.store.ListRecurringTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring templates: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring templates",
		"total", len(templates),
		"processing_date", now.Format("2006-01-02"))

	created := 0
	for _, tmpl := range templates {
		if tmpl.Date.Day() != now.Day() {
			continue
		}

		instance := instanceFor(tmpl, now)
		period := core.MonthWindow(now.Year(), now.Month(), now.Location())

		ok, err := m.store.CreateRecurringInstance(ctx, instance, period)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to materialize recurring template",
				"template_id", tmpl.ID,
				"user_id", tmpl.UserID,
				"description", tmpl.Description,
				"error", err)
			continue
		}
		if !ok {
			slog.DebugContext(ctx, "Template already materialized this period",
				"template_id", tmpl.ID)
			continue
		}

		created++
		slog.InfoContext(ctx, "Created transaction from recurring template",
			"template_id", tmpl.ID,
			"instance_id", instance.ID,
			"user_id", tmpl.UserID,
			"amount", tmpl.Amount.String(),
			"description", tmpl.Description)
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"created", created,
		"total_checked", len(templates))
	return created, nil
}

// instanceFor copies the template into a concrete transaction dated today,
// preserving the template's time of day and inheriting its recurrence
// flags.
func instanceFor(tmpl core.Transaction, now time.Time) core.Transaction {
	interval := tmpl.Interval
	if interval == "" {
		interval = core.IntervalMonthly
	}
	return core.Transaction{
		ID:          uuid.NewString(),
		UserID:      tmpl.UserID,
		CategoryID:  tmpl.CategoryID,
		Amount:      tmpl.Amount,
		Currency:    tmpl.Currency,
		Date: time.Date(now.Year(), now.Month(), now.Day(),
			tmpl.Date.Hour(), tmpl.Date.Minute(), tmpl.Date.Second(),
			tmpl.Date.Nanosecond(), now.Location()),
		Description: tmpl.Description,
		IsRecurring: true,
		Interval:    interval,
	}
}

// NextDayBoundary returns the first instant of the calendar day after now.
// The daily tick fires on day boundaries rather than a fixed 24h interval
// so DST shifts and clock drift cannot skip or double a day.
func NextDayBoundary(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
