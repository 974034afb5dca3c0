package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Veraticus/plansync/internal/common"
	"github.com/Veraticus/plansync/internal/model"
	"github.com/Veraticus/plansync/internal/service"
	"github.com/google/uuid"
)

// Resource is one replicated collection on the sync server.
// Records are wrapped as {"<item>": record} on push and listed as
// {"<items>": [...]} on pull.
type Resource[T any] struct {
	client  *Client
	path    string
	itemKey string
	listKey string
}

// NewResource creates a resource rooted at path.
func NewResource[T any](client *Client, path, itemKey, listKey string) *Resource[T] {
	return &Resource[T]{
		client:  client,
		path:    path,
		itemKey: itemKey,
		listKey: listKey,
	}
}

// PlannedPaymentRules is the planned payment rule collection.
func PlannedPaymentRules(client *Client) *Resource[model.PlannedPaymentRule] {
	return NewResource[model.PlannedPaymentRule](client, "/wallet/planned-payment-rules", "rule", "rules")
}

// Budgets is the budget collection.
func Budgets(client *Client) *Resource[model.Budget] {
	return NewResource[model.Budget](client, "/wallet/budgets", "budget", "budgets")
}

// Accounts is the account collection.
func Accounts(client *Client) *Resource[model.Account] {
	return NewResource[model.Account](client, "/wallet/accounts", "account", "accounts")
}

// Push creates or replaces item on the server.
func (r *Resource[T]) Push(ctx context.Context, item T) error {
	body := map[string]T{r.itemKey: item}
	return r.client.do(ctx, http.MethodPost, r.path+"/update", nil, body, nil)
}

// Delete removes the record with the given id from the server.
func (r *Resource[T]) Delete(ctx context.Context, id uuid.UUID) error {
	query := url.Values{"id": []string{id.String()}}
	return r.client.do(ctx, http.MethodDelete, r.path+"/delete", query, nil, nil)
}

// Pull lists records changed after the given time. The zero time lists everything.
func (r *Resource[T]) Pull(ctx context.Context, after time.Time) (service.PullResult[T], error) {
	var query url.Values
	if !after.IsZero() {
		query = url.Values{"after": []string{strconv.FormatInt(after.Unix(), 10)}}
	}

	var raw map[string]json.RawMessage
	if err := r.client.do(ctx, http.MethodGet, r.path, query, nil, &raw); err != nil {
		return service.PullResult[T]{}, err
	}

	var result service.PullResult[T]
	if list, ok := raw[r.listKey]; ok && string(list) != "null" {
		if err := json.Unmarshal(list, &result.Items); err != nil {
			return service.PullResult[T]{}, common.Permanent(fmt.Errorf("failed to decode %s: %w", r.listKey, err))
		}
	}
	if ts, ok := raw["serverTimestamp"]; ok && string(ts) != "null" {
		var seconds int64
		if err := json.Unmarshal(ts, &seconds); err == nil {
			at := time.Unix(seconds, 0).UTC()
			result.ServerTimestamp = &at
		}
	}
	return result, nil
}

var (
	_ service.RemoteService[model.PlannedPaymentRule] = (*Resource[model.PlannedPaymentRule])(nil)
	_ service.RemoteService[model.Budget]             = (*Resource[model.Budget])(nil)
	_ service.RemoteService[model.Account]            = (*Resource[model.Account])(nil)
)
