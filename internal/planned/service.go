package planned

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/plansync/internal/common"
	"github.com/Veraticus/plansync/internal/model"
	"github.com/Veraticus/plansync/internal/service"
	"github.com/google/uuid"
)

// ErrAlreadyRealized is returned when paying a transaction that already occurred.
var ErrAlreadyRealized = errors.New("transaction already realized")

// RuleStore persists planned payment rules.
type RuleStore interface {
	Save(ctx context.Context, rule model.PlannedPaymentRule) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PlannedPaymentRule, error)
	FlagDeleted(ctx context.Context, id uuid.UUID) error
}

// Service manages the lifecycle of planned payment rules and their instances.
type Service struct {
	rules        RuleStore
	transactions service.TransactionStore
	generator    *Generator
}

// NewService creates a rule service.
func NewService(rules RuleStore, transactions service.TransactionStore, generator *Generator) *Service {
	return &Service{
		rules:        rules,
		transactions: transactions,
		generator:    generator,
	}
}

// CreateRule stores a new rule and materializes its instances.
func (s *Service) CreateRule(ctx context.Context, rule model.PlannedPaymentRule) (model.PlannedPaymentRule, error) {
	if rule.ID == uuid.Nil {
		rule.ID = model.NewID()
	}
	return rule, s.saveAndGenerate(ctx, rule)
}

// EditRule stores the changed rule and regenerates its pending instances.
func (s *Service) EditRule(ctx context.Context, rule model.PlannedPaymentRule) error {
	if rule.ID == uuid.Nil {
		return fmt.Errorf("%w: rule has no id", ErrInvalidRule)
	}
	return s.saveAndGenerate(ctx, rule)
}

func (s *Service) saveAndGenerate(ctx context.Context, rule model.PlannedPaymentRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w %s: %w", ErrInvalidRule, rule.ID, err)
	}

	rule.IsSynced = false
	rule.IsDeleted = false
	if err := s.rules.Save(ctx, rule); err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}

	return s.generator.Generate(ctx, rule)
}

// DeleteRule soft-deletes the rule and retires its pending instances.
// Realized instances stay and keep pointing at the deleted rule.
func (s *Service) DeleteRule(ctx context.Context, id uuid.UUID) error {
	if _, err := s.rules.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.rules.FlagDeleted(ctx, id); err != nil {
		return err
	}

	retired, err := s.transactions.FlagDeletedByRecurringRuleIDAndNoDateTime(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to retire pending instances: %w", err)
	}

	slog.Info("Deleted planned payment rule", "rule", id, "retired_instances", retired)
	return nil
}

// Pay turns a pending instance into a realized transaction dated at.
// Instances retired by a regenerate or a rule delete are reported as not found.
func (s *Service) Pay(ctx context.Context, txnID uuid.UUID, at time.Time) (*model.Transaction, error) {
	txn, err := s.transactions.FindTransactionByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if txn.IsDeleted {
		return nil, fmt.Errorf("transaction %s: %w", txnID, common.ErrNotFound)
	}
	if txn.IsRealized() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRealized, txnID)
	}

	txn.Realize(at)
	if err := s.transactions.SaveTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to save paid transaction: %w", err)
	}
	return txn, nil
}

// Upcoming returns the pending instances due in [from, to).
func (s *Service) Upcoming(ctx context.Context, from, to time.Time) ([]model.Transaction, error) {
	return s.transactions.FindPendingDue(ctx, from, to)
}
