// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/plansync/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntityKind names a replicated record type. It doubles as the cursor key.
type EntityKind string

// Replicated entity kinds.
const (
	KindPlannedPaymentRules EntityKind = "planned_payment_rules"
	KindBudgets             EntityKind = "budgets"
	KindAccounts            EntityKind = "accounts"
)

// Record is a locally stored row that takes part in replication.
type Record[T any] interface {
	SyncKey() uuid.UUID
	SyncRevision() int64
	Pulled() T
}

// LocalStore is the slice of the entity store the sync engine needs for one kind.
type LocalStore[T any] interface {
	// Save upserts by identifier and bumps the local revision.
	Save(ctx context.Context, item T) error
	FindByIsSyncedAndIsDeleted(ctx context.Context, synced, deleted bool) ([]T, error)
	// MarkSynced flags the row synced only if it is still at revision.
	// It reports whether the row was updated.
	MarkSynced(ctx context.Context, id uuid.UUID, revision int64) (bool, error)
	// Delete physically removes the row once its deletion reached the server.
	Delete(ctx context.Context, id uuid.UUID) error
}

// PullResult is one page of remote changes.
type PullResult[T any] struct {
	ServerTimestamp *time.Time
	Items           []T
}

// RemoteService is the server side of replication for one kind.
type RemoteService[T any] interface {
	Push(ctx context.Context, item T) error
	Delete(ctx context.Context, id uuid.UUID) error
	Pull(ctx context.Context, after time.Time) (PullResult[T], error)
}

// CursorStore persists the last successful pull per entity kind.
type CursorStore interface {
	// LastSync returns the zero time when no pull has completed yet.
	LastSync(ctx context.Context, kind EntityKind) (time.Time, error)
	SetLastSync(ctx context.Context, kind EntityKind, at time.Time) error
}

// Session reports whether remote calls can be made on behalf of a user.
type Session interface {
	IsLoggedIn() bool
}

// RateFetcher is the remote price service.
type RateFetcher interface {
	GetRates(ctx context.Context, baseCurrency string) (map[string]decimal.Decimal, error)
}

// ExchangeRateStore holds the most recent rate table.
type ExchangeRateStore interface {
	SaveExchangeRate(ctx context.Context, rate model.ExchangeRate) error
	// FindExchangeRate returns nil and no error when the pair is unknown.
	FindExchangeRate(ctx context.Context, baseCurrency, currency string) (*model.ExchangeRate, error)
}

// TransactionStore is the slice of the entity store the rule materializer needs.
type TransactionStore interface {
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	FindTransactionByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	// FindAllByRecurringRuleID returns the rule's instances that are not soft-deleted.
	FindAllByRecurringRuleID(ctx context.Context, ruleID uuid.UUID) ([]model.Transaction, error)
	// FlagDeletedByRecurringRuleIDAndNoDateTime soft-deletes the rule's pending
	// instances and returns how many were flagged.
	FlagDeletedByRecurringRuleIDAndNoDateTime(ctx context.Context, ruleID uuid.UUID) (int64, error)
	FindPendingDue(ctx context.Context, from, to time.Time) ([]model.Transaction, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
	Multiplier     float64
}

// WithDefaults fills unset fields.
func (o RetryOptions) WithDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 200 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 5 * time.Second
	}
	if o.Multiplier <= 0 {
		o.Multiplier = 2.0
	}
	return o
}

// PhaseStats counts per-item outcomes of one sync phase.
type PhaseStats struct {
	Err       error
	Succeeded int
	Failed    int
}

// SyncReport summarizes one sync run for one entity kind.
type SyncReport struct {
	StartedAt      time.Time
	Kind           EntityKind
	Upload         PhaseStats
	Delete         PhaseStats
	Pull           PhaseStats
	Duration       time.Duration
	Skipped        bool
	CursorAdvanced bool
}

// OK reports whether every phase completed without item failures.
func (r SyncReport) OK() bool {
	if r.Skipped {
		return true
	}
	for _, p := range []PhaseStats{r.Upload, r.Delete, r.Pull} {
		if p.Err != nil || p.Failed > 0 {
			return false
		}
	}
	return r.CursorAdvanced
}
