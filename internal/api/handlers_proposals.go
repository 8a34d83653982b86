// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package api

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/lanserve/lanserve/internal/auth"
	"github.com/lanserve/lanserve/internal/conversation"
	"github.com/lanserve/lanserve/internal/dispatcher"
	"github.com/lanserve/lanserve/internal/logging"
	"github.com/lanserve/lanserve/internal/models"
	"github.com/lanserve/lanserve/internal/store"
	"github.com/lanserve/lanserve/internal/validation"
)

type createProposalRequest struct {
	ProjectID   string  `json:"projectId" validate:"required,uuid"`
	CoverLetter string  `json:"coverLetter" validate:"max=10000"`
	BidAmount   float64 `json:"bidAmount" validate:"required,gt=0"`
}

type editProposalRequest struct {
	BidAmount float64 `json:"bidAmount" validate:"required,gt=0"`
}

// proposalCard renders the synthetic conversation message for a proposal.
// The data-proposal-id attribute doubles as the legacy retraction marker, so
// its exact quoting must not change.
func proposalCard(p *models.Proposal, status, contractID string) string {
	contractAttr := ""
	if contractID != "" {
		contractAttr = fmt.Sprintf(" data-contract-id='%s'", contractID)
	}
	return fmt.Sprintf(
		"<div class='proposal-card' data-proposal-id='%s' data-project-id='%s' data-status='%s'%s>"+
			"<p>%s</p><p class='bid'>Bid: $%.2f</p></div>",
		p.ID, p.ProjectID, status, contractAttr, html.EscapeString(p.CoverLetter), p.BidAmount)
}

// insertProposalCard appends the proposal's card message into the
// client-freelancer conversation. Card writes are secondary to the proposal
// document: a failure is logged, never surfaced.
func (s *Server) insertProposalCard(r *http.Request, p *models.Proposal, senderID, receiverID, status, contractID string) {
	key := conversation.DeriveKey(p.ProjectID, senderID, receiverID)
	_, err := s.messages.Append(r.Context(), &models.Message{
		ConversationKey: key,
		ProjectID:       p.ProjectID,
		SenderID:        senderID,
		ReceiverID:      receiverID,
		Text:            proposalCard(p, status, contractID),
		SystemEntityID:  p.ID,
	})
	if err != nil {
		logging.CtxErr(r.Context(), err).
			Str("proposal_id", p.ID).
			Msg("Failed to insert proposal card message")
	}
}

// retractProposalCards deletes every card message for the proposal before a
// fresh card is written. Failures are logged and tolerated; the stale card
// stays visible until the next refresh.
func (s *Server) retractProposalCards(r *http.Request, proposalID string) {
	if _, err := s.messages.DeleteByProposal(r.Context(), proposalID); err != nil {
		logging.CtxErr(r.Context(), err).
			Str("proposal_id", proposalID).
			Msg("Failed to retract proposal card messages")
	}
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	freelancerID := auth.UserIDFromContext(r.Context())

	var req createProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	project, err := s.marketplace.GetProject(r.Context(), req.ProjectID)
	if errors.Is(err, store.ErrNotFound) {
		rw.NotFound("project not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if project.OwnerID == freelancerID {
		rw.Forbidden("cannot submit a proposal to your own project")
		return
	}
	if project.Status != models.ProjectOpen {
		rw.Conflict("project is not open for proposals")
		return
	}

	created, err := s.marketplace.InsertProposal(r.Context(), &models.Proposal{
		ProjectID:    req.ProjectID,
		FreelancerID: freelancerID,
		CoverLetter:  req.CoverLetter,
		BidAmount:    req.BidAmount,
	})
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	s.insertProposalCard(r, created, freelancerID, project.OwnerID, string(models.ProposalPending), "")

	s.events.Publish(r.Context(), dispatcher.ProposalCreated{
		Proposal:       *created,
		ProjectOwnerID: project.OwnerID,
		ProjectTitle:   project.Title,
	})

	rw.Created(created)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	p, err := s.marketplace.GetProposal(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		rw.NotFound("proposal not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(p)
}

func (s *Server) handleProposalsByProject(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	list, err := s.marketplace.ListProposalsByProject(r.Context(), chi.URLParam(r, "projectId"))
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(list)
}

func (s *Server) handleProposalsByFreelancer(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	list, err := s.marketplace.ListProposalsByFreelancer(r.Context(), chi.URLParam(r, "freelancerId"))
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(list)
}

// handleEditProposal updates the bid and refreshes the card message: the
// stale card is retracted and a fresh pending card inserted.
func (s *Server) handleEditProposal(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	callerID := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req editProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	p, err := s.marketplace.GetProposal(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		rw.NotFound("proposal not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if p.FreelancerID != callerID {
		rw.Forbidden("only the proposal's freelancer can edit it")
		return
	}
	if p.Status != models.ProposalPending {
		rw.Conflict("only pending proposals can be edited")
		return
	}

	p.BidAmount = req.BidAmount
	if err := s.marketplace.UpdateProposal(r.Context(), p); err != nil {
		rw.DatabaseError(err)
		return
	}

	project, err := s.marketplace.GetProject(r.Context(), p.ProjectID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	s.retractProposalCards(r, p.ID)
	s.insertProposalCard(r, p, p.FreelancerID, project.OwnerID, string(models.ProposalPending), "")

	rw.Success(p)
}

// handleCancelProposal flips the proposal to Cancelled and refreshes the
// card message.
func (s *Server) handleCancelProposal(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	callerID := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	p, err := s.marketplace.GetProposal(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		rw.NotFound("proposal not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if p.FreelancerID != callerID {
		rw.Forbidden("only the proposal's freelancer can cancel it")
		return
	}
	if p.Status != models.ProposalPending {
		rw.Conflict("only pending proposals can be cancelled")
		return
	}

	p.Status = models.ProposalCancelled
	if err := s.marketplace.UpdateProposal(r.Context(), p); err != nil {
		rw.DatabaseError(err)
		return
	}

	project, err := s.marketplace.GetProject(r.Context(), p.ProjectID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	s.retractProposalCards(r, p.ID)
	s.insertProposalCard(r, p, p.FreelancerID, project.OwnerID, string(models.ProposalCancelled), "")

	s.events.Publish(r.Context(), dispatcher.ProposalCancelled{Proposal: *p})

	rw.Success(p)
}

// handleAcceptProposal is owner-only and Pending-only: it flips the
// proposal, creates the contract, moves the project to InProgress,
// refreshes the card and fans out ProposalAccepted to both parties.
func (s *Server) handleAcceptProposal(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	callerID := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	p, err := s.marketplace.GetProposal(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		rw.NotFound("proposal not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	project, err := s.marketplace.GetProject(r.Context(), p.ProjectID)
	if errors.Is(err, store.ErrNotFound) {
		rw.NotFound("project not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if project.OwnerID != callerID {
		rw.Forbidden("only the project owner can accept a proposal")
		return
	}
	if p.Status != models.ProposalPending {
		rw.Conflict("only pending proposals can be accepted")
		return
	}

	p.Status = models.ProposalAccepted
	if err := s.marketplace.UpdateProposal(r.Context(), p); err != nil {
		rw.DatabaseError(err)
		return
	}

	contract, err := s.marketplace.InsertContract(r.Context(), &models.Contract{
		ProjectID:    p.ProjectID,
		ProposalID:   p.ID,
		ClientID:     callerID,
		FreelancerID: p.FreelancerID,
		AgreedAmount: p.BidAmount,
	})
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	if err := s.marketplace.UpdateProjectStatus(r.Context(), p.ProjectID, models.ProjectInProgress); err != nil {
		logging.CtxErr(r.Context(), err).
			Str("project_id", p.ProjectID).
			Msg("Failed to move project to in-progress")
	}

	// Replace the pending card with an accepted card carrying the contract
	// reference. The client is the sender here.
	s.retractProposalCards(r, p.ID)
	s.insertProposalCard(r, p, callerID, p.FreelancerID, string(models.ProposalAccepted), contract.ID)

	s.events.Publish(r.Context(), dispatcher.ProposalAccepted{
		Proposal:        *p,
		ContractID:      contract.ID,
		ClientID:        callerID,
		ConversationKey: conversation.DeriveKey(p.ProjectID, callerID, p.FreelancerID),
	})

	rw.Success(map[string]interface{}{
		"proposal":   p,
		"contractId": contract.ID,
		"contract":   contract,
	})
}
