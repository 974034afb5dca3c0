package testutil

import (
	"time"

	"github.com/Veraticus/plansync/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Account returns an unsynced account with a fresh id.
func Account(name, currency string) model.Account {
	return model.Account{ID: uuid.New(), Name: name, Currency: currency}
}

// OneTimeRule returns an expense rule that occurs once on start.
func OneTimeRule(accountID uuid.UUID, title string, amount int64, start time.Time) model.PlannedPaymentRule {
	return model.PlannedPaymentRule{
		ID:        uuid.New(),
		AccountID: accountID,
		Type:      model.TypeExpense,
		Title:     title,
		Amount:    decimal.NewFromInt(amount),
		StartDate: &start,
		OneTime:   true,
	}
}

// RecurringRule returns an expense rule repeating every n units from start.
func RecurringRule(accountID uuid.UUID, title string, amount int64, start time.Time, n int, unit model.IntervalType) model.PlannedPaymentRule {
	return model.PlannedPaymentRule{
		ID:           uuid.New(),
		AccountID:    accountID,
		Type:         model.TypeExpense,
		Title:        title,
		Amount:       decimal.NewFromInt(amount),
		StartDate:    &start,
		IntervalN:    &n,
		IntervalType: &unit,
	}
}
