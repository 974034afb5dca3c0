package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a concrete money movement. Instances derived from a planned
// payment rule start out pending (DueDate set) and become realized once
// DateTime is set.
type Transaction struct {
	DueDate         *time.Time          `json:"dueDate,omitempty"`
	DateTime        *time.Time          `json:"dateTime,omitempty"`
	ToAccountID     *uuid.UUID          `json:"toAccountId,omitempty"`
	CategoryID      *uuid.UUID          `json:"categoryId,omitempty"`
	RecurringRuleID *uuid.UUID          `json:"recurringRuleId,omitempty"`
	ToAmount        decimal.NullDecimal `json:"toAmount"`
	Type            TransactionType     `json:"type"`
	Title           string              `json:"title,omitempty"`
	Description     string              `json:"description,omitempty"`
	Amount          decimal.Decimal     `json:"amount"`
	SyncState
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"accountId"`
}

// IsPending reports whether the transaction is a projected rule occurrence
// that has not happened yet.
func (t *Transaction) IsPending() bool {
	return t.RecurringRuleID != nil && t.DueDate != nil && t.DateTime == nil
}

// IsRealized reports whether the transaction has actually occurred.
func (t *Transaction) IsRealized() bool {
	return t.DateTime != nil
}

// Realize turns a due instance into an occurred transaction at the given time.
func (t *Transaction) Realize(at time.Time) {
	at = at.UTC()
	t.DateTime = &at
	t.DueDate = nil
	t.IsSynced = false
}
