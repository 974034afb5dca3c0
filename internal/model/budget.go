package model

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Budget caps spending over a set of categories and accounts.
// Empty id lists mean "all".
type Budget struct {
	CategoryIDs *string         `json:"categoryIdsSerialized,omitempty"`
	AccountIDs  *string         `json:"accountIdsSerialized,omitempty"`
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	OrderNum    float64         `json:"orderId"`
	SyncState
	ID uuid.UUID `json:"id"`
}

// SerializeIDs joins ids into the comma separated form stored on a budget.
func SerializeIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

// ParseCategoryIDs returns the budget's category ids, or an empty list when
// the stored value is missing or malformed.
func (b *Budget) ParseCategoryIDs() []uuid.UUID {
	return parseIDs(b.CategoryIDs)
}

// ParseAccountIDs returns the budget's account ids, or an empty list when
// the stored value is missing or malformed.
func (b *Budget) ParseAccountIDs() []uuid.UUID {
	return parseIDs(b.AccountIDs)
}

func parseIDs(serialized *string) []uuid.UUID {
	if serialized == nil {
		return []uuid.UUID{}
	}

	parts := strings.Split(*serialized, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			slog.Debug("Ignoring malformed id list", "value", *serialized, "error", err)
			return []uuid.UUID{}
		}
		ids = append(ids, id)
	}
	return ids
}

// Valid reports whether the budget has a name and a positive amount.
func (b *Budget) Valid() bool {
	return strings.TrimSpace(b.Name) != "" && b.Amount.IsPositive()
}

// TypeLabel describes the budget by how many categories it covers.
func (b *Budget) TypeLabel() string {
	switch n := len(b.ParseCategoryIDs()); n {
	case 0:
		return "Total Budget"
	case 1:
		return "Category Budget"
	default:
		return fmt.Sprintf("Multi-Category (%d) Budget", n)
	}
}

// SyncKey identifies the budget for replication.
func (b Budget) SyncKey() uuid.UUID {
	return b.ID
}

// Pulled returns a copy flagged as synced and not deleted.
func (b Budget) Pulled() Budget {
	b.SyncState = pulledState(b.SyncState)
	return b
}
