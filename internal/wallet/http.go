// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package wallet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/lanserve/lanserve/internal/config"
	"github.com/lanserve/lanserve/internal/logging"
	"github.com/lanserve/lanserve/internal/metrics"
)

const breakerName = "wallet-api"

// HTTPClient calls the external wallet service. All calls go through a
// circuit breaker so a slow or dead wallet service fails fast instead of
// tying up contract-completion requests.
//
// The breaker uses real time for its open/half-open transitions; tests that
// need determinism should exercise the MemoryClient or stub the HTTP server.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[float64]
}

// NewHTTPClient creates a wallet client for cfg.BaseURL.
func NewHTTPClient(cfg config.WalletConfig) *HTTPClient {
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	cb := gobreaker.NewCircuitBreaker[float64](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenFor,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Wallet circuit breaker state transition")
		},
	})

	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		cb:      cb,
	}
}

// creditRequest is the wallet service's credit body.
type creditRequest struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"`
	Note   string  `json:"note,omitempty"`
}

// balanceResponse is returned by both the credit and balance endpoints.
type balanceResponse struct {
	Balance float64 `json:"balance"`
}

// Credit posts a credit to the wallet service and returns the new balance.
func (c *HTTPClient) Credit(ctx context.Context, userID string, amount float64, note string) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("wallet: credit amount must be positive, got %v", amount)
	}

	body, err := json.Marshal(creditRequest{UserID: userID, Amount: amount, Note: note})
	if err != nil {
		return 0, fmt.Errorf("wallet: encode credit request: %w", err)
	}

	return c.execute(ctx, "credit", func(ctx context.Context) (float64, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/credit", bytes.NewReader(body))
		if err != nil {
			return 0, fmt.Errorf("wallet: build credit request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		return c.do(req)
	})
}

// Balance fetches the user's current balance.
func (c *HTTPClient) Balance(ctx context.Context, userID string) (float64, error) {
	return c.execute(ctx, "balance", func(ctx context.Context) (float64, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/balance/"+userID, nil)
		if err != nil {
			return 0, fmt.Errorf("wallet: build balance request: %w", err)
		}

		return c.do(req)
	})
}

// execute runs fn through the circuit breaker and records outcome metrics.
func (c *HTTPClient) execute(ctx context.Context, operation string, fn func(context.Context) (float64, error)) (float64, error) {
	balance, err := c.cb.Execute(func() (float64, error) {
		return fn(ctx)
	})

	switch {
	case err == nil:
		metrics.WalletRequestsTotal.WithLabelValues(operation, "success").Inc()
		return balance, nil
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.WalletRequestsTotal.WithLabelValues(operation, "rejected").Inc()
		logging.CtxErr(ctx, err).Str("operation", operation).Msg("Wallet request rejected by circuit breaker")
		return 0, fmt.Errorf("wallet: %s rejected: %w", operation, err)
	default:
		metrics.WalletRequestsTotal.WithLabelValues(operation, "failure").Inc()
		logging.CtxErr(ctx, err).Str("operation", operation).Msg("Wallet request failed")
		return 0, err
	}
}

// do sends the request and decodes the balance response. Any non-2xx status
// counts as a breaker failure.
func (c *HTTPClient) do(req *http.Request) (float64, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("wallet: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for the error message.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return 0, fmt.Errorf("wallet: %s %s: status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("wallet: decode response: %w", err)
	}

	return out.Balance, nil
}

// stateToString converts a breaker state to its log label.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
