// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lanserve/lanserve/internal/auth"
	"github.com/lanserve/lanserve/internal/dispatcher"
	"github.com/lanserve/lanserve/internal/logging"
	"github.com/lanserve/lanserve/internal/models"
	"github.com/lanserve/lanserve/internal/store"
)

// completeContractResponse omits the transaction when recording it failed
// after a successful credit, so clients can distinguish "record missing"
// from "no payout happened".
type completeContractResponse struct {
	Contract    *models.Contract          `json:"contract"`
	Transaction *models.WalletTransaction `json:"transaction,omitempty"`
}

func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	c, err := s.marketplace.GetContract(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		rw.NotFound("contract not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	callerID := auth.UserIDFromContext(r.Context())
	if c.ClientID != callerID && c.FreelancerID != callerID {
		rw.Forbidden("contract belongs to other parties")
		return
	}

	rw.Success(c)
}

// handleCompleteContract settles an active contract: the freelancer is
// credited through the wallet service, the payout is recorded, and contract
// and project flip to Completed. The wallet credit is a primary write - if
// it fails the contract stays Active and the request fails. The fan-out to
// both parties is best-effort as always.
func (s *Server) handleCompleteContract(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	callerID := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	c, err := s.marketplace.GetContract(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		rw.NotFound("contract not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if c.ClientID != callerID {
		rw.Forbidden("only the client can complete a contract")
		return
	}
	if c.Status != models.ContractActive {
		rw.Conflict("contract is not active")
		return
	}

	note := fmt.Sprintf("Payout for contract %s", c.ID)
	balance, err := s.wallet.Credit(r.Context(), c.FreelancerID, c.AgreedAmount, note)
	if err != nil {
		rw.WalletError(err)
		return
	}

	tx, err := s.marketplace.InsertWalletTransaction(r.Context(), &models.WalletTransaction{
		UserID:       c.FreelancerID,
		Type:         "ContractPayout",
		Amount:       c.AgreedAmount,
		BalanceAfter: balance,
		Note:         note,
	})
	if err != nil {
		// The credit already happened; record loss is logged, not fatal.
		logging.CtxErr(r.Context(), err).
			Str("contract_id", c.ID).
			Msg("Failed to record wallet transaction")
	}

	now := time.Now().UTC()
	c.Status = models.ContractCompleted
	c.CompletedAt = &now
	if err := s.marketplace.UpdateContract(r.Context(), c); err != nil {
		rw.DatabaseError(err)
		return
	}

	if err := s.marketplace.UpdateProjectStatus(r.Context(), c.ProjectID, models.ProjectCompleted); err != nil {
		logging.CtxErr(r.Context(), err).
			Str("project_id", c.ProjectID).
			Msg("Failed to move project to completed")
	}

	s.events.Publish(r.Context(), dispatcher.ContractCompleted{Contract: *c})

	rw.Success(completeContractResponse{Contract: c, Transaction: tx})
}
