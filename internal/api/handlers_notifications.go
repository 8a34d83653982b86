// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lanserve/lanserve/internal/auth"
	"github.com/lanserve/lanserve/internal/store"
)

func (s *Server) handleMyNotifications(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := auth.UserIDFromContext(r.Context())

	list, err := s.notifications.ListByUser(r.Context(), userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(list)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	n, err := s.notifications.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		rw.NotFound("notification not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if n.UserID != userID {
		rw.Forbidden("notification belongs to another user")
		return
	}

	changed, err := s.notifications.MarkRead(r.Context(), id)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]bool{"changed": changed})
}

// handleDeleteNotification removes a notification document outright. The
// owner can dismiss their own notifications; there is no undo.
func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	n, err := s.notifications.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		rw.NotFound("notification not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if n.UserID != userID {
		rw.Forbidden("notification belongs to another user")
		return
	}

	deleted, err := s.notifications.Delete(r.Context(), id)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]bool{"deleted": deleted})
}
