// Package remote talks to the sync server over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/plansync/internal/common"
	"github.com/Veraticus/plansync/internal/metrics"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
)

// Config holds the sync server connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// BreakerTimeout is how long the circuit stays open before a probe.
	BreakerTimeout time.Duration
	// BreakerFailures is the number of consecutive failures that opens the circuit.
	BreakerFailures uint32
}

// Client performs authenticated requests against the sync server behind a
// circuit breaker.
type Client struct {
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	metrics    metrics.Collector
	baseURL    string
}

// NewClient creates a client that authenticates with tokens from ts.
func NewClient(cfg Config, ts oauth2.TokenSource, collector metrics.Collector) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if collector == nil {
		collector = metrics.NoOp{}
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &oauth2.Transport{
				Source: ts,
				Base:   http.DefaultTransport,
			},
		},
		metrics: collector,
	}

	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "sync-server",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// Rejected requests say nothing about server health.
		IsSuccessful: func(err error) bool {
			return err == nil || !common.IsRetryable(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())

			var state metrics.CircuitState
			switch to {
			case gobreaker.StateClosed:
				state = metrics.CircuitClosed
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			}
			c.metrics.RecordCircuitState(name, state)
		},
	})

	return c
}

// do sends one request. body is JSON encoded when non-nil and the response
// is decoded into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, method, path, query, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return common.Permanent(fmt.Errorf("%s %s: %w", method, path, common.ErrCircuitOpen))
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return common.Permanent(fmt.Errorf("failed to encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return common.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s %s: %w: %w", method, path, common.ErrRemoteUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(method, path, resp); err != nil {
		return err
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return common.Permanent(fmt.Errorf("failed to decode %s %s response: %w", method, path, err))
	}
	return nil
}

func statusError(method, path string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	detail := strings.TrimSpace(string(msg))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return common.Permanent(fmt.Errorf("%s %s: %w", method, path, common.ErrUnauthorized))
	case resp.StatusCode == http.StatusNotFound:
		return common.Permanent(fmt.Errorf("%s %s: %w", method, path, common.ErrNotFound))
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s %s: %w", method, path, common.ErrRateLimit)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s %s returned %d: %w", method, path, resp.StatusCode, common.ErrRemoteUnavailable)
	default:
		return common.Permanent(fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, detail))
	}
}
