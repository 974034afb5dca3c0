package rates

import (
	"context"
	"sync"

	"github.com/Veraticus/plansync/internal/service"
	"github.com/shopspring/decimal"
)

// MockFetcher is a mock implementation of service.RateFetcher for testing.
type MockFetcher struct {
	// GetRatesFn controls the result when set.
	GetRatesFn func(ctx context.Context, baseCurrency string) (map[string]decimal.Decimal, error)

	// Rates is returned when GetRatesFn is nil.
	Rates map[string]decimal.Decimal

	calls []string
	mu    sync.Mutex
}

// GetRates implements service.RateFetcher.
func (m *MockFetcher) GetRates(ctx context.Context, baseCurrency string) (map[string]decimal.Decimal, error) {
	m.mu.Lock()
	m.calls = append(m.calls, baseCurrency)
	m.mu.Unlock()

	if m.GetRatesFn != nil {
		return m.GetRatesFn(ctx, baseCurrency)
	}
	return m.Rates, nil
}

// Calls returns the base currencies requested so far.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

var _ service.RateFetcher = (*MockFetcher)(nil)
