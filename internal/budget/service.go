// Package budget manages the lifecycle of spending budgets.
package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/plansync/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidBudget is returned for a blank name or a non-positive amount.
var ErrInvalidBudget = errors.New("invalid budget")

// Store persists budgets.
type Store interface {
	Save(ctx context.Context, budget model.Budget) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Budget, error)
	FindMaxOrderNum(ctx context.Context) (float64, error)
	FlagDeleted(ctx context.Context, id uuid.UUID) error
}

// Data is the user-editable part of a budget.
type Data struct {
	Name        string
	Amount      decimal.Decimal
	CategoryIDs []uuid.UUID
	AccountIDs  []uuid.UUID
}

// Service creates, edits and deletes budgets. Every change leaves the budget
// unsynced so the next sync run uploads it.
type Service struct {
	store Store
}

// NewService creates a budget service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create stores a new budget ordered after all existing ones.
func (s *Service) Create(ctx context.Context, data Data) (model.Budget, error) {
	b := model.Budget{ID: model.NewID()}
	apply(&b, data)
	if !b.Valid() {
		return model.Budget{}, fmt.Errorf("%w: name %q amount %s", ErrInvalidBudget, data.Name, data.Amount)
	}

	maxOrder, err := s.store.FindMaxOrderNum(ctx)
	if err != nil {
		return model.Budget{}, fmt.Errorf("failed to find budget order: %w", err)
	}
	b.OrderNum = maxOrder + 1

	if err := s.store.Save(ctx, b); err != nil {
		return model.Budget{}, err
	}
	slog.Info("Created budget", "id", b.ID, "name", b.Name, "type", b.TypeLabel())
	return b, nil
}

// Edit replaces the budget's data, keeping its order.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, data Data) (model.Budget, error) {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return model.Budget{}, err
	}

	b := *existing
	apply(&b, data)
	if !b.Valid() {
		return model.Budget{}, fmt.Errorf("%w: name %q amount %s", ErrInvalidBudget, data.Name, data.Amount)
	}
	b.IsSynced = false

	if err := s.store.Save(ctx, b); err != nil {
		return model.Budget{}, err
	}
	return b, nil
}

// Delete flags the budget for deletion on the next sync.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return err
	}
	return s.store.FlagDeleted(ctx, id)
}

func apply(b *model.Budget, data Data) {
	b.Name = strings.TrimSpace(data.Name)
	b.Amount = data.Amount
	b.CategoryIDs = serialize(data.CategoryIDs)
	b.AccountIDs = serialize(data.AccountIDs)
}

func serialize(ids []uuid.UUID) *string {
	if len(ids) == 0 {
		return nil
	}
	s := model.SerializeIDs(ids)
	return &s
}
