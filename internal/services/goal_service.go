package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// GoalStore is the persistence capability the goal service needs.
type GoalStore interface {
	CreateGoal(ctx context.Context, g core.Goal) error
	ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
	DeleteGoal(ctx context.Context, userID, id string) error
}

// GoalService manages savings goals.
type GoalService struct {
	store GoalStore
}

func NewGoalService(store GoalStore) *GoalService {
	return &GoalService{store: store}
}

func (s *GoalService) Create(ctx context.Context, g core.Goal) (core.Goal, error) {
	g.ID = uuid.NewString()
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

// List returns the user's goals ordered by ascending deadline.
func (s *GoalService) List(ctx context.Context, userID string) ([]core.Goal, error) {
	if userID == "" {
		return nil, core.ErrMissingUserID
	}
	return s.store.ListGoals(ctx, userID)
}

func (s *GoalService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return core.ErrMissingUserID
	}
	return s.store.DeleteGoal(ctx, userID, id)
}
