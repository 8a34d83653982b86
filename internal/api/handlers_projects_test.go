// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/lanserve/lanserve/internal/dispatcher"
	"github.com/lanserve/lanserve/internal/models"
)

func TestCreateProjectPublishesBroadcast(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodPost, "/api/v1/projects", clientID, map[string]interface{}{
		"title":       "Landing page",
		"description": "Five sections, responsive",
		"budget":      800.0,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var project models.Project
	decode(t, rec, &project)
	if project.OwnerID != clientID {
		t.Errorf("ownerId = %q, want caller", project.OwnerID)
	}
	if project.Status != models.ProjectOpen {
		t.Errorf("status = %q, want Open", project.Status)
	}

	events := ts.events.byTopic(dispatcher.TopicProjectCreated)
	if len(events) != 1 {
		t.Fatalf("expected 1 ProjectCreated event, got %d", len(events))
	}
	if ev := events[0].(dispatcher.ProjectCreated); ev.Project.ID != project.ID {
		t.Errorf("event project = %q, want %q", ev.Project.ID, project.ID)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodPost, "/api/v1/projects", clientID, map[string]interface{}{
		"title": "missing fields",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(ts.events.all()) != 0 {
		t.Error("rejected request must not publish events")
	}
}

func TestListProjectsStatusFilter(t *testing.T) {
	ts := newTestServer(t)

	open := ts.seedProject(t, clientID, "Open one")
	other := ts.seedProject(t, clientID, "Soon closed")
	if err := ts.marketplace.UpdateProjectStatus(context.Background(), other.ID, models.ProjectClosed); err != nil {
		t.Fatalf("close project: %v", err)
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/projects?status=Open", userCarol, nil)
	var openList []models.Project
	decode(t, rec, &openList)
	if len(openList) != 1 || openList[0].ID != open.ID {
		t.Fatalf("open projects = %+v, want just %q", openList, open.ID)
	}

	rec = ts.request(t, http.MethodGet, "/api/v1/projects?status=Closed", userCarol, nil)
	var closedList []models.Project
	decode(t, rec, &closedList)
	if len(closedList) != 1 || closedList[0].ID != other.ID {
		t.Errorf("closed projects = %+v, want just %q", closedList, other.ID)
	}

	// No filter returns everything.
	rec = ts.request(t, http.MethodGet, "/api/v1/projects", userCarol, nil)
	var all []models.Project
	decode(t, rec, &all)
	if len(all) != 2 {
		t.Errorf("all projects = %d, want 2", len(all))
	}
}

func TestGetProjectNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/v1/projects/0198f1a2-0000-7000-8000-00000000dead", userCarol, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
