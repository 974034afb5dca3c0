// Package planned turns planned payment rules into pending transaction
// instances and manages the rule lifecycle.
package planned

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/plansync/internal/metrics"
	"github.com/Veraticus/plansync/internal/model"
	"github.com/Veraticus/plansync/internal/service"
)

const (
	// MaxInstances bounds how many pending instances a single run may create.
	MaxInstances = 72
	// HorizonYears is how far past the start date occurrences are projected.
	HorizonYears = 3
)

// ErrInvalidRule is returned when a rule cannot be materialized.
var ErrInvalidRule = errors.New("invalid planned payment rule")

// Generator materializes rules into pending transactions.
type Generator struct {
	store   service.TransactionStore
	metrics metrics.Collector
}

// NewGenerator creates a generator writing to store.
func NewGenerator(store service.TransactionStore, collector metrics.Collector) *Generator {
	if collector == nil {
		collector = metrics.NoOp{}
	}
	return &Generator{store: store, metrics: collector}
}

// Generate replaces the rule's pending instances with a fresh projection.
// Realized instances are never touched; for recurring rules they consume the
// earliest occurrences so history is not duplicated.
func (g *Generator) Generate(ctx context.Context, rule model.PlannedPaymentRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w %s: %w", ErrInvalidRule, rule.ID, err)
	}

	if _, err := g.store.FlagDeletedByRecurringRuleIDAndNoDateTime(ctx, rule.ID); err != nil {
		return fmt.Errorf("failed to retire pending instances: %w", err)
	}

	existing, err := g.store.FindAllByRecurringRuleID(ctx, rule.ID)
	if err != nil {
		return fmt.Errorf("failed to load instances of rule %s: %w", rule.ID, err)
	}

	var created int
	if rule.OneTime {
		created, err = g.generateOneTime(ctx, rule, existing)
	} else {
		created, err = g.generateRecurring(ctx, rule, existing)
	}
	g.metrics.InstancesMaterialized(created)
	if err != nil {
		return err
	}

	slog.Debug("Materialized rule",
		"rule", rule.ID,
		"one_time", rule.OneTime,
		"created", created)
	return nil
}

func (g *Generator) generateOneTime(ctx context.Context, rule model.PlannedPaymentRule, existing []model.Transaction) (int, error) {
	// A one-time rule materializes at most once. Once its instance was paid
	// the rule is spent.
	if len(existing) > 0 {
		return 0, nil
	}
	if err := g.store.SaveTransaction(ctx, newInstance(rule, *rule.StartDate)); err != nil {
		return 0, fmt.Errorf("failed to save instance of rule %s: %w", rule.ID, err)
	}
	return 1, nil
}

func (g *Generator) generateRecurring(ctx context.Context, rule model.PlannedPaymentRule, existing []model.Transaction) (int, error) {
	skip := 0
	for i := range existing {
		if existing[i].IsRealized() {
			skip++
		}
	}

	start := *rule.StartDate
	horizon := Horizon(start)
	step := *rule.IntervalN
	interval := *rule.IntervalType

	created := 0
	for due := start; created < MaxInstances; due = interval.Advance(due, step) {
		if !due.Before(horizon) {
			break
		}
		if skip > 0 {
			skip--
			continue
		}
		if err := ctx.Err(); err != nil {
			return created, err
		}
		if err := g.store.SaveTransaction(ctx, newInstance(rule, due)); err != nil {
			return created, fmt.Errorf("failed to save instance of rule %s due %s: %w",
				rule.ID, due.Format(time.DateOnly), err)
		}
		created++
	}
	return created, nil
}

// Horizon returns the first instant past the projection window of a rule
// starting at start.
func Horizon(start time.Time) time.Time {
	return model.IntervalYear.Advance(start, HorizonYears)
}

func newInstance(rule model.PlannedPaymentRule, due time.Time) *model.Transaction {
	due = due.UTC()
	ruleID := rule.ID
	return &model.Transaction{
		ID:              model.NewID(),
		Type:            rule.Type,
		AccountID:       rule.AccountID,
		CategoryID:      rule.CategoryID,
		Amount:          rule.Amount,
		Title:           rule.Title,
		Description:     rule.Description,
		DueDate:         &due,
		RecurringRuleID: &ruleID,
	}
}
