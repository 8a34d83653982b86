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
	"github.com/lanserve/lanserve/internal/dispatcher"
	"github.com/lanserve/lanserve/internal/models"
	"github.com/lanserve/lanserve/internal/store"
	"github.com/lanserve/lanserve/internal/validation"
)

type createProjectRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"required,max=10000"`
	Budget      float64 `json:"budget" validate:"required,gt=0"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ownerID := auth.UserIDFromContext(r.Context())

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	created, err := s.marketplace.InsertProject(r.Context(), &models.Project{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
	})
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	// Broadcast fan-out fires after the insert is durable.
	s.events.Publish(r.Context(), dispatcher.ProjectCreated{Project: *created})

	rw.Created(created)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	project, err := s.marketplace.GetProject(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		rw.NotFound("project not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(project)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := models.ProjectStatus(r.URL.Query().Get("status"))
	projects, err := s.marketplace.ListProjects(r.Context(), status)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(projects)
}
