package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/plansync/internal/common"
	"github.com/Veraticus/plansync/internal/model"
	"github.com/google/uuid"
)

const budgetsTable = "budgets"

const budgetColumns = `id, name, amount, category_ids, account_ids, order_num, is_synced, is_deleted, revision`

// BudgetRepository stores budgets.
type BudgetRepository struct {
	db queryable
}

// Save upserts a budget by id and bumps its revision.
func (r *BudgetRepository) Save(ctx context.Context, budget model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(budget.ID, "budget.ID"); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (`+budgetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			amount = excluded.amount,
			category_ids = excluded.category_ids,
			account_ids = excluded.account_ids,
			order_num = excluded.order_num,
			is_synced = excluded.is_synced,
			is_deleted = excluded.is_deleted,
			revision = revision + 1
	`,
		budget.ID,
		budget.Name,
		budget.Amount,
		nullString(budget.CategoryIDs),
		nullString(budget.AccountIDs),
		budget.OrderNum,
		budget.IsSynced,
		budget.IsDeleted,
	)
	if err != nil {
		return fmt.Errorf("failed to save budget %s: %w", budget.ID, err)
	}
	return nil
}

// FindByID returns the budget with the given id, deleted or not.
func (r *BudgetRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Budget, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	budget, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("budget %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

// FindAll returns every budget that is not soft-deleted, in display order.
func (r *BudgetRepository) FindAll(ctx context.Context) ([]model.Budget, error) {
	return r.query(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE is_deleted = 0 ORDER BY order_num`)
}

// FindMaxOrderNum returns the highest order number in use, or 0.
func (r *BudgetRepository) FindMaxOrderNum(ctx context.Context) (float64, error) {
	var maxOrder sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(order_num) FROM budgets WHERE is_deleted = 0`).Scan(&maxOrder); err != nil {
		return 0, fmt.Errorf("failed to query max budget order: %w", err)
	}
	return maxOrder.Float64, nil
}

// FindByIsSyncedAndIsDeleted returns the budgets matching both flags.
func (r *BudgetRepository) FindByIsSyncedAndIsDeleted(ctx context.Context, synced, deleted bool) ([]model.Budget, error) {
	return r.query(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE is_synced = ? AND is_deleted = ?`, synced, deleted)
}

// FlagDeleted soft-deletes the budget so the deletion can be replicated.
func (r *BudgetRepository) FlagDeleted(ctx context.Context, id uuid.UUID) error {
	return flagDeleted(ctx, r.db, budgetsTable, id)
}

// MarkSynced flags the budget synced if it is still at revision.
func (r *BudgetRepository) MarkSynced(ctx context.Context, id uuid.UUID, revision int64) (bool, error) {
	return markSynced(ctx, r.db, budgetsTable, id, revision)
}

// Delete physically removes a soft-deleted budget.
func (r *BudgetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteFlagged(ctx, r.db, budgetsTable, id)
}

func (r *BudgetRepository) query(ctx context.Context, query string, args ...any) ([]model.Budget, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, budget)
	}
	return budgets, rows.Err()
}

func scanBudget(row rowScanner) (model.Budget, error) {
	var (
		budget      model.Budget
		categoryIDs sql.NullString
		accountIDs  sql.NullString
	)

	err := row.Scan(
		&budget.ID,
		&budget.Name,
		&budget.Amount,
		&categoryIDs,
		&accountIDs,
		&budget.OrderNum,
		&budget.IsSynced,
		&budget.IsDeleted,
		&budget.Revision,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return budget, err
		}
		return budget, fmt.Errorf("failed to scan budget: %w", err)
	}

	budget.CategoryIDs = stringPtr(categoryIDs)
	budget.AccountIDs = stringPtr(accountIDs)
	return budget, nil
}
