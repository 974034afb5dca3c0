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

const rulesTable = "planned_payment_rules"

const ruleColumns = `id, type, account_id, category_id, amount, title, description,
	one_time, start_date, interval_n, interval_type, is_synced, is_deleted, revision`

// RuleRepository stores planned payment rules.
type RuleRepository struct {
	db queryable
}

// Save upserts a rule by id and bumps its revision.
func (r *RuleRepository) Save(ctx context.Context, rule model.PlannedPaymentRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(rule.ID, "rule.ID"); err != nil {
		return err
	}

	var intervalN sql.NullInt64
	if rule.IntervalN != nil {
		intervalN = sql.NullInt64{Int64: int64(*rule.IntervalN), Valid: true}
	}
	var intervalType sql.NullString
	if rule.IntervalType != nil {
		intervalType = sql.NullString{String: string(*rule.IntervalType), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO planned_payment_rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			account_id = excluded.account_id,
			category_id = excluded.category_id,
			amount = excluded.amount,
			title = excluded.title,
			description = excluded.description,
			one_time = excluded.one_time,
			start_date = excluded.start_date,
			interval_n = excluded.interval_n,
			interval_type = excluded.interval_type,
			is_synced = excluded.is_synced,
			is_deleted = excluded.is_deleted,
			revision = revision + 1
	`,
		rule.ID,
		string(rule.Type),
		rule.AccountID,
		nullUUID(rule.CategoryID),
		rule.Amount,
		rule.Title,
		rule.Description,
		rule.OneTime,
		nullTime(rule.StartDate),
		intervalN,
		intervalType,
		rule.IsSynced,
		rule.IsDeleted,
	)
	if err != nil {
		return fmt.Errorf("failed to save rule %s: %w", rule.ID, err)
	}
	return nil
}

// FindByID returns the rule with the given id, deleted or not.
func (r *RuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PlannedPaymentRule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM planned_payment_rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// FindAll returns every rule that is not soft-deleted.
func (r *RuleRepository) FindAll(ctx context.Context) ([]model.PlannedPaymentRule, error) {
	return r.query(ctx, `SELECT `+ruleColumns+` FROM planned_payment_rules
		WHERE is_deleted = 0 ORDER BY start_date, title`)
}

// FindByIsSyncedAndIsDeleted returns the rules matching both flags.
func (r *RuleRepository) FindByIsSyncedAndIsDeleted(ctx context.Context, synced, deleted bool) ([]model.PlannedPaymentRule, error) {
	return r.query(ctx, `SELECT `+ruleColumns+` FROM planned_payment_rules
		WHERE is_synced = ? AND is_deleted = ?`, synced, deleted)
}

// FlagDeleted soft-deletes the rule so the deletion can be replicated.
func (r *RuleRepository) FlagDeleted(ctx context.Context, id uuid.UUID) error {
	return flagDeleted(ctx, r.db, rulesTable, id)
}

// MarkSynced flags the rule synced if it is still at revision.
func (r *RuleRepository) MarkSynced(ctx context.Context, id uuid.UUID, revision int64) (bool, error) {
	return markSynced(ctx, r.db, rulesTable, id, revision)
}

// Delete physically removes a soft-deleted rule.
func (r *RuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteFlagged(ctx, r.db, rulesTable, id)
}

func (r *RuleRepository) query(ctx context.Context, query string, args ...any) ([]model.PlannedPaymentRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.PlannedPaymentRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanRule(row rowScanner) (model.PlannedPaymentRule, error) {
	var (
		rule         model.PlannedPaymentRule
		categoryID   uuid.NullUUID
		startDate    sql.NullTime
		intervalN    sql.NullInt64
		intervalType sql.NullString
	)

	err := row.Scan(
		&rule.ID,
		&rule.Type,
		&rule.AccountID,
		&categoryID,
		&rule.Amount,
		&rule.Title,
		&rule.Description,
		&rule.OneTime,
		&startDate,
		&intervalN,
		&intervalType,
		&rule.IsSynced,
		&rule.IsDeleted,
		&rule.Revision,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rule, err
		}
		return rule, fmt.Errorf("failed to scan rule: %w", err)
	}

	rule.CategoryID = uuidPtr(categoryID)
	rule.StartDate = timePtr(startDate)
	if intervalN.Valid {
		n := int(intervalN.Int64)
		rule.IntervalN = &n
	}
	if intervalType.Valid {
		it := model.IntervalType(intervalType.String)
		rule.IntervalType = &it
	}
	return rule, nil
}
