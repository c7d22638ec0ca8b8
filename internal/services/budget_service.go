package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

// BudgetStore is the persistence capability the budget service needs.
type BudgetStore interface {
	UpsertBudget(ctx context.Context, b core.Budget) error
	ListBudgets(ctx context.Context, userID string, month, year int) ([]core.Budget, error)
	GetCategory(ctx context.Context, id string) (*core.Category, error)
}

// BudgetService owns budget ceilings. Setting a budget is always an upsert
// on the (user, category, month, year) composite key; a second write for
// the same key updates the limit instead of duplicating the row.
type BudgetService struct {
	store BudgetStore
}

func NewBudgetService(store BudgetStore) *BudgetService {
	return &BudgetService{store: store}
}

// Set validates and upserts a budget, returning it with the category
// joined in.
func (s *BudgetService) Set(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	cat, err := s.store.GetCategory(ctx, b.CategoryID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("resolve category: %w", err)
	}
	b.Category = cat

	if err := s.store.UpsertBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return b, nil
}

// List returns the user's budgets, optionally filtered to one month. Month
// and year of zero mean all budgets.
func (s *BudgetService) List(ctx context.Context, userID string, month, year int) ([]core.Budget, error) {
	if userID == "" {
		return nil, core.ErrMissingUserID
	}
	if month != 0 && (month < 1 || month > 12) {
		return nil, core.ErrInvalidMonth
	}
	return s.store.ListBudgets(ctx, userID, month, year)
}
