// Package services holds the orchestration layer: transaction intake,
// budget and goal management, and the recurring materializer. Services
// validate input, talk to the store, and publish sync messages; they never
// render anything.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/currency"
)

// BudgetExceededWarning is attached to a create response when the month's
// spending for the transaction's category passes its budget limit.
const BudgetExceededWarning = "You have exceeded your monthly budget for this category!"

// TransactionStore is the persistence capability the transaction service
// needs.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) error
	ListTransactions(ctx context.Context, userID string, w *core.Window) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	GetCategory(ctx context.Context, id string) (*core.Category, error)
	ListBudgets(ctx context.Context, userID string, month, year int) ([]core.Budget, error)
}

// SyncPublisher publishes lightweight sync messages for the sheet mirror.
// A nil publisher disables mirroring.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, id string) error
}

// CreateResult is the outcome of a transaction creation, optionally
// carrying a budget warning.
type CreateResult struct {
	Transaction core.Transaction `json:"transaction"`
	Warning     string           `json:"warning,omitempty"`
}

// TransactionService owns the transaction write path.
type TransactionService struct {
	store     TransactionStore
	norm      *currency.Normalizer
	publisher SyncPublisher
}

func NewTransactionService(store TransactionStore, norm *currency.Normalizer, publisher SyncPublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		norm:      norm,
		publisher: publisher,
	}
}

// Create validates and persists a new transaction, then publishes a sync
// message for the mirror. Publish failures are logged, never returned: the
// transaction is already durably stored.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (CreateResult, error) {
	t.ID = uuid.NewString()
	if strings.TrimSpace(t.Currency) == "" {
		t.Currency = s.norm.Base()
	}
	if t.IsRecurring && t.Interval == "" {
		t.Interval = core.IntervalMonthly
	}
	if !t.IsRecurring {
		t.Interval = ""
	}
	if err := t.Validate(); err != nil {
		return CreateResult{}, err
	}

	cat, err := s.store.GetCategory(ctx, t.CategoryID)
	if err != nil {
		return CreateResult{}, fmt.Errorf("resolve category: %w", err)
	}
	t.Category = cat

	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return CreateResult{}, fmt.Errorf("create transaction: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionSync(ctx, t.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message",
				"id", t.ID, "error", err)
		}
	}

	result := CreateResult{Transaction: t}
	warned, err := s.budgetExceeded(ctx, t)
	if err != nil {
		// The warning is best effort; the write already succeeded.
		slog.WarnContext(ctx, "Budget warning check failed",
			"id", t.ID, "error", err)
		return result, nil
	}
	if warned {
		result.Warning = BudgetExceededWarning
	}
	return result, nil
}

// List returns the user's transactions, newest first, optionally windowed.
func (s *TransactionService) List(ctx context.Context, userID string, w *core.Window) ([]core.Transaction, error) {
	if userID == "" {
		return nil, core.ErrMissingUserID
	}
	if w != nil {
		if err := w.Validate(); err != nil {
			return nil, err
		}
	}
	return s.store.ListTransactions(ctx, userID, w)
}

// Delete removes a transaction owned by the user.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return core.ErrMissingUserID
	}
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// budgetExceeded reports whether the month's normalized category spend,
// including the just-created transaction, passes the configured limit.
func (s *TransactionService) budgetExceeded(ctx context.Context, t core.Transaction) (bool, error) {
	year, month := t.Date.Year(), t.Date.Month()

	budgets, err := s.store.ListBudgets(ctx, t.UserID, int(month), year)
	if err != nil {
		return false, fmt.Errorf("list budgets: %w", err)
	}
	var budget *core.Budget
	for i := range budgets {
		if budgets[i].CategoryID == t.CategoryID {
			budget = &budgets[i]
			break
		}
	}
	if budget == nil {
		return false, nil
	}

	w := core.MonthWindow(year, month, t.Date.Location())
	txs, err := s.store.ListTransactions(ctx, t.UserID, &w)
	if err != nil {
		return false, fmt.Errorf("list month transactions: %w", err)
	}

	spent := decimal.Zero
	for _, mt := range txs {
		if mt.CategoryID != t.CategoryID {
			continue
		}
		spent = spent.Add(s.norm.Normalize(mt.Amount, mt.Currency))
	}
	return spent.GreaterThan(budget.Limit), nil
}
