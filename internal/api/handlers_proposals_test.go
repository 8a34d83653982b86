// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/lanserve/lanserve/internal/conversation"
	"github.com/lanserve/lanserve/internal/dispatcher"
	"github.com/lanserve/lanserve/internal/models"
)

const (
	clientID     = "0198f1a2-0000-7000-8000-0000000000c1"
	freelancerID = "0198f1a2-0000-7000-8000-0000000000f1"
)

// createProposal drives the full POST /proposals flow and returns the
// created proposal.
func createProposal(t *testing.T, ts *testServer, projectID string) *models.Proposal {
	t.Helper()

	rec := ts.request(t, http.MethodPost, "/api/v1/proposals", freelancerID, map[string]interface{}{
		"projectId":   projectID,
		"coverLetter": "I can build this",
		"bidAmount":   450.0,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create proposal: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var p models.Proposal
	decode(t, rec, &p)
	return &p
}

// cardsFor returns the synthetic card messages for a proposal in the
// client-freelancer conversation.
func cardsFor(t *testing.T, ts *testServer, projectID, proposalID string) []*models.Message {
	t.Helper()

	key := conversation.DeriveKey(projectID, clientID, freelancerID)
	msgs, err := ts.messages.ListByConversation(context.Background(), key)
	if err != nil {
		t.Fatalf("list conversation: %v", err)
	}

	var cards []*models.Message
	for _, m := range msgs {
		if m.SystemEntityID == proposalID {
			cards = append(cards, m)
		}
	}
	return cards
}

func TestCreateProposalInsertsCardAndEvents(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, clientID, "Client")
	ts.seedUser(t, freelancerID, "Freelancer")
	project := ts.seedProject(t, clientID, "Build an API")

	p := createProposal(t, ts, project.ID)
	if p.Status != models.ProposalPending {
		t.Errorf("status = %q, want Pending", p.Status)
	}
	if p.FreelancerID != freelancerID {
		t.Errorf("freelancerId = %q, want caller %q", p.FreelancerID, freelancerID)
	}

	cards := cardsFor(t, ts, project.ID, p.ID)
	if len(cards) != 1 {
		t.Fatalf("got %d card messages, want 1", len(cards))
	}
	card := cards[0]
	if card.SenderID != freelancerID || card.ReceiverID != clientID {
		t.Errorf("card direction = %q->%q, want freelancer->client", card.SenderID, card.ReceiverID)
	}
	if !strings.Contains(card.Text, "data-proposal-id='"+p.ID+"'") {
		t.Errorf("card text missing the proposal marker: %s", card.Text)
	}
	if !strings.Contains(card.Text, "data-status='Pending'") {
		t.Errorf("card text missing pending status: %s", card.Text)
	}

	events := ts.events.byTopic(dispatcher.TopicProposalCreated)
	if len(events) != 1 {
		t.Fatalf("expected 1 ProposalCreated event, got %d", len(events))
	}
	ev := events[0].(dispatcher.ProposalCreated)
	if ev.ProjectOwnerID != clientID || ev.ProjectTitle != "Build an API" {
		t.Errorf("event = %+v, want resolved owner and title", ev)
	}
}

func TestCreateProposalOwnProjectForbidden(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, clientID, "Client")
	project := ts.seedProject(t, clientID, "Self serve")

	rec := ts.request(t, http.MethodPost, "/api/v1/proposals", clientID, map[string]interface{}{
		"projectId": project.ID,
		"bidAmount": 100.0,
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCreateProposalClosedProjectConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, clientID, "Client")
	project := ts.seedProject(t, clientID, "Closed project")

	if err := ts.marketplace.UpdateProjectStatus(context.Background(), project.ID, models.ProjectClosed); err != nil {
		t.Fatalf("close project: %v", err)
	}

	rec := ts.request(t, http.MethodPost, "/api/v1/proposals", freelancerID, map[string]interface{}{
		"projectId": project.ID,
		"bidAmount": 100.0,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestEditProposalRefreshesCard(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, clientID, "Client")
	ts.seedUser(t, freelancerID, "Freelancer")
	project := ts.seedProject(t, clientID, "Build an API")
	p := createProposal(t, ts, project.ID)

	rec := ts.request(t, http.MethodPut, "/api/v1/proposals/"+p.ID+"/edit", freelancerID, map[string]interface{}{
		"bidAmount": 600.0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated models.Proposal
	decode(t, rec, &updated)
	if updated.BidAmount != 600 {
		t.Errorf("bidAmount = %v, want 600", updated.BidAmount)
	}

	cards := cardsFor(t, ts, project.ID, p.ID)
	if len(cards) != 1 {
		t.Fatalf("got %d card messages after edit, want exactly 1 fresh card", len(cards))
	}
	if !strings.Contains(cards[0].Text, "600.00") {
		t.Errorf("fresh card must carry the new bid: %s", cards[0].Text)
	}
}

func TestEditProposalWrongUser(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, clientID, "Client")
	ts.seedUser(t, freelancerID, "Freelancer")
	project := ts.seedProject(t, clientID, "Build an API")
	p := createProposal(t, ts, project.ID)

	rec := ts.request(t, http.MethodPut, "/api/v1/proposals/"+p.ID+"/edit", clientID, map[string]interface{}{
		"bidAmount": 1.0,
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCancelProposal(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, clientID, "Client")
	ts.seedUser(t, freelancerID, "Freelancer")
	project := ts.seedProject(t, clientID, "Build an API")
	p := createProposal(t, ts, project.ID)

	rec := ts.request(t, http.MethodPost, "/api/v1/proposals/"+p.ID+"/cancel", freelancerID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var cancelled models.Proposal
	decode(t, rec, &cancelled)
	if cancelled.Status != models.ProposalCancelled {
		t.Errorf("status = %q, want Cancelled", cancelled.Status)
	}

	cards := cardsFor(t, ts, project.ID, p.ID)
	if len(cards) != 1 || !strings.Contains(cards[0].Text, "data-status='Cancelled'") {
		t.Errorf("expected a single cancelled card, got %+v", cards)
	}

	if got := ts.events.byTopic(dispatcher.TopicProposalCancelled); len(got) != 1 {
		t.Errorf("expected 1 ProposalCancelled event, got %d", len(got))
	}

	// Cancelling twice conflicts.
	rec = ts.request(t, http.MethodPost, "/api/v1/proposals/"+p.ID+"/cancel", freelancerID, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second cancel: status = %d, want 409", rec.Code)
	}
}

func TestAcceptProposalFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, clientID, "Client")
	ts.seedUser(t, freelancerID, "Freelancer")
	project := ts.seedProject(t, clientID, "Build an API")
	p := createProposal(t, ts, project.ID)

	rec := ts.request(t, http.MethodPost, "/api/v1/proposals/"+p.ID+"/accept", clientID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Proposal   models.Proposal `json:"proposal"`
		ContractID string          `json:"contractId"`
		Contract   models.Contract `json:"contract"`
	}
	decode(t, rec, &result)

	if result.Proposal.Status != models.ProposalAccepted {
		t.Errorf("proposal status = %q, want Accepted", result.Proposal.Status)
	}
	if result.Contract.Status != models.ContractActive {
		t.Errorf("contract status = %q, want Active", result.Contract.Status)
	}
	if result.Contract.AgreedAmount != p.BidAmount {
		t.Errorf("agreedAmount = %v, want bid %v", result.Contract.AgreedAmount, p.BidAmount)
	}
	if result.Contract.ClientID != clientID || result.Contract.FreelancerID != freelancerID {
		t.Errorf("contract parties = %q/%q", result.Contract.ClientID, result.Contract.FreelancerID)
	}

	gotProject, err := ts.marketplace.GetProject(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if gotProject.Status != models.ProjectInProgress {
		t.Errorf("project status = %q, want InProgress", gotProject.Status)
	}

	// The pending card is retracted; one accepted card remains.
	cards := cardsFor(t, ts, project.ID, p.ID)
	if len(cards) != 1 {
		t.Fatalf("got %d cards after accept, want 1", len(cards))
	}
	if !strings.Contains(cards[0].Text, "data-status='Accepted'") ||
		!strings.Contains(cards[0].Text, "data-contract-id='"+result.ContractID+"'") {
		t.Errorf("accepted card = %s", cards[0].Text)
	}

	events := ts.events.byTopic(dispatcher.TopicProposalAccepted)
	if len(events) != 1 {
		t.Fatalf("expected 1 ProposalAccepted event, got %d", len(events))
	}
	ev := events[0].(dispatcher.ProposalAccepted)
	if ev.ContractID != result.ContractID || ev.ClientID != clientID {
		t.Errorf("event = %+v", ev)
	}
	wantKey := conversation.DeriveKey(project.ID, clientID, freelancerID)
	if ev.ConversationKey != wantKey {
		t.Errorf("event conversationKey = %q, want %q", ev.ConversationKey, wantKey)
	}
}

func TestAcceptProposalOwnerOnly(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, clientID, "Client")
	ts.seedUser(t, freelancerID, "Freelancer")
	project := ts.seedProject(t, clientID, "Build an API")
	p := createProposal(t, ts, project.ID)

	rec := ts.request(t, http.MethodPost, "/api/v1/proposals/"+p.ID+"/accept", freelancerID, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestAcceptProposalPendingOnly(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, clientID, "Client")
	ts.seedUser(t, freelancerID, "Freelancer")
	project := ts.seedProject(t, clientID, "Build an API")
	p := createProposal(t, ts, project.ID)

	if rec := ts.request(t, http.MethodPost, "/api/v1/proposals/"+p.ID+"/accept", clientID, nil); rec.Code != http.StatusOK {
		t.Fatalf("first accept: status = %d", rec.Code)
	}
	if rec := ts.request(t, http.MethodPost, "/api/v1/proposals/"+p.ID+"/accept", clientID, nil); rec.Code != http.StatusConflict {
		t.Errorf("second accept: status = %d, want 409", rec.Code)
	}
}

func TestProposalListings(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, clientID, "Client")
	ts.seedUser(t, freelancerID, "Freelancer")
	project := ts.seedProject(t, clientID, "Build an API")
	p := createProposal(t, ts, project.ID)

	rec := ts.request(t, http.MethodGet, "/api/v1/proposals/by-project/"+project.ID, clientID, nil)
	var byProject []models.Proposal
	decode(t, rec, &byProject)
	if len(byProject) != 1 || byProject[0].ID != p.ID {
		t.Errorf("by-project = %+v", byProject)
	}

	rec = ts.request(t, http.MethodGet, "/api/v1/proposals/by-freelancer/"+freelancerID, freelancerID, nil)
	var byFreelancer []models.Proposal
	decode(t, rec, &byFreelancer)
	if len(byFreelancer) != 1 || byFreelancer[0].ID != p.ID {
		t.Errorf("by-freelancer = %+v", byFreelancer)
	}
}
