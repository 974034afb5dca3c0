// Package currency converts amounts between account currencies and the
// user's base currency.
package currency

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/plansync/internal/model"
	"github.com/Veraticus/plansync/internal/service"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Normalizer converts amounts using the stored exchange rate table.
// Rates are looked up as (base, currency) where
// amountInBase = amountInCurrency / rate. A missing, non-positive or
// unreadable rate counts as 1.
type Normalizer struct {
	store   service.ExchangeRateStore
	fetcher service.RateFetcher
	cache   *ristretto.Cache[string, decimal.Decimal]
}

// NewNormalizer creates a normalizer. fetcher may be nil when rates are
// never refreshed.
func NewNormalizer(store service.ExchangeRateStore, fetcher service.RateFetcher) (*Normalizer, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, decimal.Decimal]{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     1000,  // one unit per currency pair
		BufferItems: 64,    // number of keys per Get buffer

		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate cache: %w", err)
	}

	return &Normalizer{
		store:   store,
		fetcher: fetcher,
		cache:   cache,
	}, nil
}

// Close releases the rate cache.
func (n *Normalizer) Close() {
	n.cache.Close()
}

// ToBase converts amount from amountCurrency into baseCurrency.
func (n *Normalizer) ToBase(ctx context.Context, amount decimal.Decimal, amountCurrency, baseCurrency string) decimal.Decimal {
	if amountCurrency == baseCurrency {
		return amount
	}
	return amount.Div(n.rate(ctx, baseCurrency, amountCurrency))
}

// Convert converts amount between two arbitrary currencies through baseCurrency.
func (n *Normalizer) Convert(ctx context.Context, amount decimal.Decimal, from, to, baseCurrency string) decimal.Decimal {
	if from == to {
		return amount
	}
	inBase := amount.Div(n.rate(ctx, baseCurrency, from))
	return inBase.Mul(n.rate(ctx, baseCurrency, to))
}

// RuleAmountInBase converts a rule's amount using its account's currency.
func (n *Normalizer) RuleAmountInBase(ctx context.Context, rule model.PlannedPaymentRule, accounts []model.Account, baseCurrency string) decimal.Decimal {
	return n.accountAmountInBase(ctx, rule.Amount, rule.AccountID, accounts, baseCurrency)
}

// TransactionAmountInBase converts a transaction's amount using its
// source account's currency.
func (n *Normalizer) TransactionAmountInBase(ctx context.Context, txn model.Transaction, accounts []model.Account, baseCurrency string) decimal.Decimal {
	return n.accountAmountInBase(ctx, txn.Amount, txn.AccountID, accounts, baseCurrency)
}

// TransferAmountInBase converts the amount a transfer lands with in its
// destination account. The destination amount is used when set.
func (n *Normalizer) TransferAmountInBase(ctx context.Context, txn model.Transaction, accounts []model.Account, baseCurrency string) decimal.Decimal {
	amount := txn.Amount
	if txn.ToAmount.Valid {
		amount = txn.ToAmount.Decimal
	}
	if txn.ToAccountID == nil {
		return amount
	}
	return n.accountAmountInBase(ctx, amount, *txn.ToAccountID, accounts, baseCurrency)
}

func (n *Normalizer) accountAmountInBase(ctx context.Context, amount decimal.Decimal, accountID uuid.UUID, accounts []model.Account, baseCurrency string) decimal.Decimal {
	account := model.FindAccount(accounts, accountID)
	if account == nil {
		// Unknown account: nothing to convert with.
		return amount
	}
	return n.ToBase(ctx, amount, account.Currency, baseCurrency)
}

// SumTransactionsInBase totals transaction amounts in baseCurrency.
func (n *Normalizer) SumTransactionsInBase(ctx context.Context, txns []model.Transaction, accounts []model.Account, baseCurrency string) decimal.Decimal {
	sum := decimal.Zero
	for i := range txns {
		sum = sum.Add(n.TransactionAmountInBase(ctx, txns[i], accounts, baseCurrency))
	}
	return sum
}

// SumRulesInBase totals rule amounts in baseCurrency.
func (n *Normalizer) SumRulesInBase(ctx context.Context, rules []model.PlannedPaymentRule, accounts []model.Account, baseCurrency string) decimal.Decimal {
	sum := decimal.Zero
	for i := range rules {
		sum = sum.Add(n.RuleAmountInBase(ctx, rules[i], accounts, baseCurrency))
	}
	return sum
}

// SyncRates refreshes the stored rate table for baseCurrency. Failures are
// logged and swallowed: stale rates are better than none.
func (n *Normalizer) SyncRates(ctx context.Context, baseCurrency string) {
	baseCurrency = strings.TrimSpace(baseCurrency)
	if baseCurrency == "" || n.fetcher == nil {
		return
	}

	rates, err := n.fetcher.GetRates(ctx, baseCurrency)
	if err != nil {
		slog.Warn("Failed to fetch exchange rates", "base", baseCurrency, "error", err)
		return
	}

	saved := 0
	for currency, rate := range rates {
		err := n.store.SaveExchangeRate(ctx, model.ExchangeRate{
			BaseCurrency: baseCurrency,
			Currency:     currency,
			Rate:         rate,
		})
		if err != nil {
			slog.Warn("Failed to save exchange rate", "base", baseCurrency, "currency", currency, "error", err)
			continue
		}
		n.cache.Set(cacheKey(baseCurrency, currency), rate, 1)
		saved++
	}
	n.cache.Wait()

	slog.Info("Synced exchange rates", "base", baseCurrency, "saved", saved, "received", len(rates))
}

func (n *Normalizer) rate(ctx context.Context, baseCurrency, currency string) decimal.Decimal {
	key := cacheKey(baseCurrency, currency)
	rate, ok := n.cache.Get(key)
	if !ok {
		stored, err := n.store.FindExchangeRate(ctx, baseCurrency, currency)
		if err != nil {
			slog.Debug("Exchange rate lookup failed, using identity",
				"base", baseCurrency, "currency", currency, "error", err)
			return one
		}
		if stored == nil {
			return one
		}
		rate = stored.Rate
		n.cache.Set(key, rate, 1)
	}

	if !rate.IsPositive() {
		return one
	}
	return rate
}

func cacheKey(baseCurrency, currency string) string {
	return baseCurrency + "/" + currency
}
