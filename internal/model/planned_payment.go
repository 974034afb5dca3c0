package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies the direction of money movement.
type TransactionType string

const (
	// TypeIncome is money coming into an account.
	TypeIncome TransactionType = "INCOME"
	// TypeExpense is money leaving an account.
	TypeExpense TransactionType = "EXPENSE"
	// TypeTransfer moves money between two accounts.
	TypeTransfer TransactionType = "TRANSFER"
)

// ParseTransactionType parses a case-insensitive transaction type.
func ParseTransactionType(s string) (TransactionType, error) {
	tt := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	switch tt {
	case TypeIncome, TypeExpense, TypeTransfer:
		return tt, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// Rule validation errors.
var (
	ErrRuleMissingStartDate = errors.New("rule has no start date")
	ErrRuleOneTimeInterval  = errors.New("one-time rule must not carry an interval")
	ErrRuleMissingInterval  = errors.New("recurring rule requires intervalN > 0 and an interval type")
	ErrRuleNegativeAmount   = errors.New("rule amount must not be negative")
)

// PlannedPaymentRule is a template for a one-time or recurring planned transaction.
type PlannedPaymentRule struct {
	StartDate    *time.Time      `json:"startDate,omitempty"`
	IntervalN    *int            `json:"intervalN,omitempty"`
	IntervalType *IntervalType   `json:"intervalType,omitempty"`
	CategoryID   *uuid.UUID      `json:"categoryId,omitempty"`
	Type         TransactionType `json:"type"`
	Title        string          `json:"title,omitempty"`
	Description  string          `json:"description,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	SyncState
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"accountId"`
	OneTime   bool      `json:"oneTime"`
}

// Validate checks the interval invariant and the presence of a start date.
func (r *PlannedPaymentRule) Validate() error {
	if r.StartDate == nil {
		return ErrRuleMissingStartDate
	}
	if r.Amount.IsNegative() {
		return ErrRuleNegativeAmount
	}
	if r.OneTime {
		if r.IntervalN != nil || r.IntervalType != nil {
			return ErrRuleOneTimeInterval
		}
		return nil
	}
	if r.IntervalN == nil || *r.IntervalN <= 0 || r.IntervalType == nil || !r.IntervalType.Valid() {
		return ErrRuleMissingInterval
	}
	return nil
}

// SyncKey identifies the rule for replication.
func (r PlannedPaymentRule) SyncKey() uuid.UUID {
	return r.ID
}

// Pulled returns a copy flagged as synced and not deleted.
func (r PlannedPaymentRule) Pulled() PlannedPaymentRule {
	r.SyncState = pulledState(r.SyncState)
	return r
}
