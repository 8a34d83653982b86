// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/lanserve/lanserve/internal/auth"
	"github.com/lanserve/lanserve/internal/conversation"
	"github.com/lanserve/lanserve/internal/dispatcher"
	"github.com/lanserve/lanserve/internal/models"
	"github.com/lanserve/lanserve/internal/store"
	"github.com/lanserve/lanserve/internal/validation"
)

// sendMessageRequest is the POST /messages body. ConversationKey is derived
// from the participants when absent.
type sendMessageRequest struct {
	ConversationKey string `json:"conversationKey" validate:"omitempty,max=200"`
	ReceiverID      string `json:"receiverId" validate:"required,uuid"`
	ProjectID       string `json:"projectId" validate:"omitempty,uuid"`
	Text            string `json:"text" validate:"required,max=5000"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	senderID := auth.UserIDFromContext(r.Context())

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	// A caller-supplied key must match the one derived from the verified
	// sender, the receiver, and the project, or threads fragment and
	// messages land in conversations the receiver is not part of.
	key := req.ConversationKey
	if key == "" {
		key = conversation.DeriveKey(req.ProjectID, senderID, req.ReceiverID)
	} else {
		pid := req.ProjectID
		if pid == "" {
			pid = conversation.ProjectSegment(key)
		}
		if key != conversation.DeriveKey(pid, senderID, req.ReceiverID) {
			rw.Forbidden("not a participant in this conversation")
			return
		}
		req.ProjectID = pid
	}

	created, err := s.messages.Append(r.Context(), &models.Message{
		ConversationKey: key,
		ProjectID:       req.ProjectID,
		SenderID:        senderID,
		ReceiverID:      req.ReceiverID,
		Text:            req.Text,
	})
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	// Fan-out only after the append is durable.
	s.events.Publish(r.Context(), dispatcher.MessageSent{Message: *created})

	rw.Created(created)
}

func (s *Server) handleMyMessages(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := auth.UserIDFromContext(r.Context())

	msgs, err := s.messages.ListByUser(r.Context(), userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(msgs)
}

func (s *Server) handleMyConversations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := auth.UserIDFromContext(r.Context())

	summaries, err := s.aggregator.ConversationsForUser(r.Context(), userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(summaries)
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := auth.UserIDFromContext(r.Context())
	key := chi.URLParam(r, "conversationKey")

	if conversation.PartnerID(key, userID) == "" {
		rw.Forbidden("not a participant in this conversation")
		return
	}

	msgs, err := s.messages.ListByConversation(r.Context(), key)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(msgs)
}

func (s *Server) handleProjectMessages(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	projectID := chi.URLParam(r, "projectId")

	msgs, err := s.messages.ListByProject(r.Context(), projectID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(msgs)
}

func (s *Server) handleMarkMessageRead(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	msg, err := s.messages.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		rw.NotFound("message not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if msg.ReceiverID != userID {
		rw.Forbidden("only the receiver can mark a message read")
		return
	}

	changed, err := s.messages.MarkRead(r.Context(), id)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]bool{"changed": changed})
}

func (s *Server) handleMarkConversationRead(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := auth.UserIDFromContext(r.Context())
	key := chi.URLParam(r, "conversationKey")

	if conversation.PartnerID(key, userID) == "" {
		rw.Forbidden("not a participant in this conversation")
		return
	}

	count, err := s.messages.MarkAllReadInConversation(r.Context(), key, userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]int{"marked": count})
}
