// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/lanserve/lanserve/internal/auth"
	"github.com/lanserve/lanserve/internal/models"
)

// handleGetSettings returns the caller's settings, creating the default
// document on first access.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := auth.UserIDFromContext(r.Context())

	settings, err := s.settings.Ensure(r.Context(), userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(settings)
}

type updateSettingsRequest struct {
	NotificationSettings models.NotificationSettings `json:"notificationSettings"`
	PrivacySettings      models.PrivacySettings      `json:"privacySettings"`
}

// handleUpdateSettings replaces both settings sections in one request.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := auth.UserIDFromContext(r.Context())

	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}

	if _, err := s.settings.UpdateNotificationSettings(r.Context(), userID, req.NotificationSettings); err != nil {
		rw.DatabaseError(err)
		return
	}
	updated, err := s.settings.UpdatePrivacySettings(r.Context(), userID, req.PrivacySettings)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(updated)
}

func (s *Server) handleUpdateNotificationSettings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := auth.UserIDFromContext(r.Context())

	var ns models.NotificationSettings
	if err := json.NewDecoder(r.Body).Decode(&ns); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}

	updated, err := s.settings.UpdateNotificationSettings(r.Context(), userID, ns)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(updated)
}

func (s *Server) handleUpdatePrivacySettings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := auth.UserIDFromContext(r.Context())

	var ps models.PrivacySettings
	if err := json.NewDecoder(r.Body).Decode(&ps); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}

	updated, err := s.settings.UpdatePrivacySettings(r.Context(), userID, ps)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(updated)
}
