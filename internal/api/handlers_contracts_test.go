// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/lanserve/lanserve/internal/dispatcher"
	"github.com/lanserve/lanserve/internal/models"
)

// brokenWallet fails every credit, simulating an open circuit breaker.
type brokenWallet struct{}

func (brokenWallet) Credit(context.Context, string, float64, string) (float64, error) {
	return 0, errors.New("wallet: credit rejected: circuit breaker is open")
}

func (brokenWallet) Balance(context.Context, string) (float64, error) {
	return 0, errors.New("wallet: circuit breaker is open")
}

// acceptContract runs the proposal flow to an Active contract.
func acceptContract(t *testing.T, ts *testServer) *models.Contract {
	t.Helper()

	ts.seedUser(t, clientID, "Client")
	ts.seedUser(t, freelancerID, "Freelancer")
	project := ts.seedProject(t, clientID, "Build an API")
	p := createProposal(t, ts, project.ID)

	rec := ts.request(t, http.MethodPost, "/api/v1/proposals/"+p.ID+"/accept", clientID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Contract models.Contract `json:"contract"`
	}
	decode(t, rec, &result)
	return &result.Contract
}

func TestCompleteContract(t *testing.T) {
	ts := newTestServer(t)
	c := acceptContract(t, ts)

	rec := ts.request(t, http.MethodPost, "/api/v1/contracts/"+c.ID+"/complete", clientID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Contract    models.Contract           `json:"contract"`
		Transaction *models.WalletTransaction `json:"transaction"`
	}
	decode(t, rec, &result)

	if result.Contract.Status != models.ContractCompleted {
		t.Errorf("contract status = %q, want Completed", result.Contract.Status)
	}
	if result.Contract.CompletedAt == nil {
		t.Error("completedAt must be set")
	}
	if result.Transaction == nil || result.Transaction.Amount != c.AgreedAmount {
		t.Errorf("transaction = %+v, want payout of %v", result.Transaction, c.AgreedAmount)
	}

	// The freelancer got paid.
	balance, err := ts.wallet.Balance(context.Background(), freelancerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != c.AgreedAmount {
		t.Errorf("freelancer balance = %v, want %v", balance, c.AgreedAmount)
	}

	// The project is done too.
	project, err := ts.marketplace.GetProject(context.Background(), c.ProjectID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if project.Status != models.ProjectCompleted {
		t.Errorf("project status = %q, want Completed", project.Status)
	}

	if got := ts.events.byTopic(dispatcher.TopicContractCompleted); len(got) != 1 {
		t.Errorf("expected 1 ContractCompleted event, got %d", len(got))
	}
}

func TestCompleteContractWalletFailure(t *testing.T) {
	ts := newTestServer(t)
	c := acceptContract(t, ts)
	ts.useWallet(brokenWallet{})

	rec := ts.request(t, http.MethodPost, "/api/v1/contracts/"+c.ID+"/complete", clientID, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	// The contract must stay Active and no completion event fires.
	got, err := ts.marketplace.GetContract(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("get contract: %v", err)
	}
	if got.Status != models.ContractActive {
		t.Errorf("contract status = %q, want Active after wallet failure", got.Status)
	}
	if events := ts.events.byTopic(dispatcher.TopicContractCompleted); len(events) != 0 {
		t.Errorf("expected no ContractCompleted events, got %d", len(events))
	}
}

func TestCompleteContractResponseOmitsMissingTransaction(t *testing.T) {
	// When recording the payout fails after a successful credit, the
	// response must not carry "transaction": null, which clients would
	// misread as "no payout happened".
	body, err := json.Marshal(completeContractResponse{
		Contract: &models.Contract{ID: "c1", Status: models.ContractCompleted},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(body), "transaction") {
		t.Errorf("response should omit the transaction field, got %s", body)
	}

	withTx, err := json.Marshal(completeContractResponse{
		Contract:    &models.Contract{ID: "c1"},
		Transaction: &models.WalletTransaction{ID: "t1", Amount: 450},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(withTx), `"transaction"`) {
		t.Errorf("response should carry the recorded transaction, got %s", withTx)
	}
}

func TestCompleteContractClientOnly(t *testing.T) {
	ts := newTestServer(t)
	c := acceptContract(t, ts)

	rec := ts.request(t, http.MethodPost, "/api/v1/contracts/"+c.ID+"/complete", freelancerID, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCompleteContractActiveOnly(t *testing.T) {
	ts := newTestServer(t)
	c := acceptContract(t, ts)

	if rec := ts.request(t, http.MethodPost, "/api/v1/contracts/"+c.ID+"/complete", clientID, nil); rec.Code != http.StatusOK {
		t.Fatalf("first complete: status = %d", rec.Code)
	}
	if rec := ts.request(t, http.MethodPost, "/api/v1/contracts/"+c.ID+"/complete", clientID, nil); rec.Code != http.StatusConflict {
		t.Errorf("second complete: status = %d, want 409", rec.Code)
	}
}

func TestGetContractPartiesOnly(t *testing.T) {
	ts := newTestServer(t)
	c := acceptContract(t, ts)

	for _, userID := range []string{clientID, freelancerID} {
		rec := ts.request(t, http.MethodGet, "/api/v1/contracts/"+c.ID, userID, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("party %s: status = %d, want 200", userID, rec.Code)
		}
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/contracts/"+c.ID, userCarol, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("outsider: status = %d, want 403", rec.Code)
	}
}
