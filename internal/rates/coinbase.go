// Package rates fetches exchange rates from the Coinbase public API.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/plansync/internal/common"
	"github.com/Veraticus/plansync/internal/service"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the public Coinbase API.
const DefaultBaseURL = "https://api.coinbase.com"

// CoinbaseClient implements service.RateFetcher.
type CoinbaseClient struct {
	httpClient *http.Client
	baseURL    string
	retry      service.RetryOptions
}

type exchangeRatesResponse struct {
	Data struct {
		Rates    map[string]string `json:"rates"`
		Currency string            `json:"currency"`
	} `json:"data"`
}

// NewCoinbaseClient creates a client. An empty baseURL selects DefaultBaseURL.
func NewCoinbaseClient(baseURL string, timeout time.Duration, retry service.RetryOptions) *CoinbaseClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CoinbaseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retry: retry.WithDefaults(),
	}
}

// GetRates returns the rate of every currency quoted against baseCurrency.
// Entries whose rate cannot be parsed are dropped.
func (c *CoinbaseClient) GetRates(ctx context.Context, baseCurrency string) (map[string]decimal.Decimal, error) {
	var body exchangeRatesResponse
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		var fetchErr error
		body, fetchErr = c.fetch(ctx, baseCurrency)
		return fetchErr
	}, c.retry)
	if err != nil {
		return nil, err
	}

	rates := make(map[string]decimal.Decimal, len(body.Data.Rates))
	for currency, raw := range body.Data.Rates {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			slog.Debug("Skipping unparseable exchange rate", "currency", currency, "rate", raw, "error", err)
			continue
		}
		rates[currency] = rate
	}
	return rates, nil
}

func (c *CoinbaseClient) fetch(ctx context.Context, baseCurrency string) (exchangeRatesResponse, error) {
	var body exchangeRatesResponse

	u, err := url.Parse(c.baseURL + "/v2/exchange-rates")
	if err != nil {
		return body, common.Permanent(fmt.Errorf("failed to parse URL: %w", err))
	}
	q := u.Query()
	q.Set("currency", baseCurrency)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return body, common.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return body, &common.RetryableError{Err: fmt.Errorf("failed to fetch exchange rates: %w", err), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return body, fmt.Errorf("exchange rates: %w", common.ErrRateLimit)
	case resp.StatusCode >= 500:
		return body, fmt.Errorf("exchange rates returned %d: %w", resp.StatusCode, common.ErrRemoteUnavailable)
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return body, common.Permanent(fmt.Errorf("exchange rates returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return body, common.Permanent(fmt.Errorf("failed to decode exchange rates: %w", err))
	}
	return body, nil
}
