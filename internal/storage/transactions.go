package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/plansync/internal/common"
	"github.com/Veraticus/plansync/internal/model"
	"github.com/google/uuid"
)

const transactionColumns = `id, type, account_id, to_account_id, to_amount, category_id, amount,
	title, description, due_date, date_time, recurring_rule_id, is_synced, is_deleted, revision`

// SaveTransaction upserts a transaction by id and bumps its revision.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			account_id = excluded.account_id,
			to_account_id = excluded.to_account_id,
			to_amount = excluded.to_amount,
			category_id = excluded.category_id,
			amount = excluded.amount,
			title = excluded.title,
			description = excluded.description,
			due_date = excluded.due_date,
			date_time = excluded.date_time,
			recurring_rule_id = excluded.recurring_rule_id,
			is_synced = excluded.is_synced,
			is_deleted = excluded.is_deleted,
			revision = revision + 1
	`,
		txn.ID,
		string(txn.Type),
		txn.AccountID,
		nullUUID(txn.ToAccountID),
		txn.ToAmount,
		nullUUID(txn.CategoryID),
		txn.Amount,
		txn.Title,
		txn.Description,
		nullTime(txn.DueDate),
		nullTime(txn.DateTime),
		nullUUID(txn.RecurringRuleID),
		txn.IsSynced,
		txn.IsDeleted,
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
	}
	return nil
}

// FindTransactionByID returns the transaction with the given id.
func (s *SQLiteStorage) FindTransactionByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// FindAllByRecurringRuleID returns the non-deleted transactions generated
// from the given rule, pending and realized alike.
func (s *SQLiteStorage) FindAllByRecurringRuleID(ctx context.Context, ruleID uuid.UUID) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE recurring_rule_id = ? AND is_deleted = 0
		ORDER BY COALESCE(date_time, due_date)`, ruleID)
}

// FlagDeletedByRecurringRuleIDAndNoDateTime soft-deletes every pending
// instance of the rule. Realized instances are left alone.
func (s *SQLiteStorage) FlagDeletedByRecurringRuleIDAndNoDateTime(ctx context.Context, ruleID uuid.UUID) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE transactions
		SET is_deleted = 1, is_synced = 0, revision = revision + 1
		WHERE recurring_rule_id = ?
			AND date_time IS NULL
			AND due_date IS NOT NULL
			AND is_deleted = 0
	`, ruleID)
	if err != nil {
		return 0, fmt.Errorf("failed to flag pending transactions of rule %s: %w", ruleID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// FindPendingDue returns pending instances due in [from, to), soonest first.
func (s *SQLiteStorage) FindPendingDue(ctx context.Context, from, to time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if !from.Before(to) {
		return nil, ErrInvalidDateRange
	}
	return s.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE date_time IS NULL
			AND due_date IS NOT NULL
			AND due_date >= ? AND due_date < ?
			AND is_deleted = 0
		ORDER BY due_date, title`, from.UTC(), to.UTC())
}

// FindRealizedTransactions returns every transaction that has occurred.
func (s *SQLiteStorage) FindRealizedTransactions(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE date_time IS NOT NULL AND is_deleted = 0
		ORDER BY date_time`)
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var (
		txn             model.Transaction
		toAccountID     uuid.NullUUID
		categoryID      uuid.NullUUID
		recurringRuleID uuid.NullUUID
		dueDate         sql.NullTime
		dateTime        sql.NullTime
	)

	err := row.Scan(
		&txn.ID,
		&txn.Type,
		&txn.AccountID,
		&toAccountID,
		&txn.ToAmount,
		&categoryID,
		&txn.Amount,
		&txn.Title,
		&txn.Description,
		&dueDate,
		&dateTime,
		&recurringRuleID,
		&txn.IsSynced,
		&txn.IsDeleted,
		&txn.Revision,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return txn, err
		}
		return txn, fmt.Errorf("failed to scan transaction: %w", err)
	}

	txn.ToAccountID = uuidPtr(toAccountID)
	txn.CategoryID = uuidPtr(categoryID)
	txn.RecurringRuleID = uuidPtr(recurringRuleID)
	txn.DueDate = timePtr(dueDate)
	txn.DateTime = timePtr(dateTime)
	return txn, nil
}

func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if err := validateID(txn.ID, "transaction.ID"); err != nil {
		return err
	}
	if err := validateID(txn.AccountID, "transaction.AccountID"); err != nil {
		return err
	}
	if txn.DueDate == nil && txn.DateTime == nil {
		return fmt.Errorf("%w: transaction %s has neither due date nor date time", ErrInvalidRecord, txn.ID)
	}
	if txn.DueDate != nil && txn.DateTime != nil {
		return fmt.Errorf("%w: transaction %s has both due date and date time", ErrInvalidRecord, txn.ID)
	}
	return nil
}
