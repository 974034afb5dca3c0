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

const accountsTable = "accounts"

const accountColumns = `id, name, currency, is_synced, is_deleted, revision`

// AccountRepository stores accounts.
type AccountRepository struct {
	db queryable
}

// Save upserts an account by id and bumps its revision.
func (r *AccountRepository) Save(ctx context.Context, account model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(account.ID, "account.ID"); err != nil {
		return err
	}
	if err := validateCurrency(account.Currency, "account.Currency"); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			currency = excluded.currency,
			is_synced = excluded.is_synced,
			is_deleted = excluded.is_deleted,
			revision = revision + 1
	`, account.ID, account.Name, account.Currency, account.IsSynced, account.IsDeleted)
	if err != nil {
		return fmt.Errorf("failed to save account %s: %w", account.ID, err)
	}
	return nil
}

// FindByID returns the account with the given id, deleted or not.
func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var account model.Account
	err := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id).
		Scan(&account.ID, &account.Name, &account.Currency, &account.IsSynced, &account.IsDeleted, &account.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// FindAll returns every account that is not soft-deleted.
func (r *AccountRepository) FindAll(ctx context.Context) ([]model.Account, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE is_deleted = 0 ORDER BY name`)
}

// FindByIsSyncedAndIsDeleted returns the accounts matching both flags.
func (r *AccountRepository) FindByIsSyncedAndIsDeleted(ctx context.Context, synced, deleted bool) ([]model.Account, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE is_synced = ? AND is_deleted = ?`, synced, deleted)
}

// FlagDeleted soft-deletes the account so the deletion can be replicated.
func (r *AccountRepository) FlagDeleted(ctx context.Context, id uuid.UUID) error {
	return flagDeleted(ctx, r.db, accountsTable, id)
}

// MarkSynced flags the account synced if it is still at revision.
func (r *AccountRepository) MarkSynced(ctx context.Context, id uuid.UUID, revision int64) (bool, error) {
	return markSynced(ctx, r.db, accountsTable, id, revision)
}

// Delete physically removes a soft-deleted account.
func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteFlagged(ctx, r.db, accountsTable, id)
}

func (r *AccountRepository) query(ctx context.Context, query string, args ...any) ([]model.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		var account model.Account
		if err := rows.Scan(&account.ID, &account.Name, &account.Currency, &account.IsSynced, &account.IsDeleted, &account.Revision); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}
