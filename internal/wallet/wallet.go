// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

// Package wallet talks to the payments ledger. Contract completion credits
// the freelancer through a Client; the HTTP implementation wraps the upstream
// wallet service with a circuit breaker, and the memory implementation backs
// standalone deployments and tests.
package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/lanserve/lanserve/internal/config"
)

// Client credits user wallets. Implementations must be safe for concurrent use.
type Client interface {
	// Credit adds amount to the user's wallet and returns the balance after
	// the credit. A non-nil error means the ledger was NOT updated and the
	// caller must fail its own operation.
	Credit(ctx context.Context, userID string, amount float64, note string) (float64, error)

	// Balance returns the user's current wallet balance.
	Balance(ctx context.Context, userID string) (float64, error)
}

// New builds a Client according to cfg.Mode.
func New(cfg config.WalletConfig) (Client, error) {
	switch cfg.Mode {
	case "http":
		return NewHTTPClient(cfg), nil
	case "memory":
		return NewMemoryClient(), nil
	default:
		return nil, fmt.Errorf("wallet: unknown mode %q", cfg.Mode)
	}
}

// MemoryClient keeps balances in process memory. Used in standalone mode and
// in tests; balances start at zero and are lost on restart.
type MemoryClient struct {
	mu       sync.Mutex
	balances map[string]float64
}

// NewMemoryClient creates an empty in-memory ledger.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{balances: make(map[string]float64)}
}

// Credit adds amount to the user's balance.
func (m *MemoryClient) Credit(_ context.Context, userID string, amount float64, _ string) (float64, error) {
	if userID == "" {
		return 0, fmt.Errorf("wallet: user id is required")
	}
	if amount <= 0 {
		return 0, fmt.Errorf("wallet: credit amount must be positive, got %v", amount)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances[userID] += amount
	return m.balances[userID], nil
}

// Balance returns the user's balance, zero for unknown users.
func (m *MemoryClient) Balance(_ context.Context, userID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.balances[userID], nil
}
