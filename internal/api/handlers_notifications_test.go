// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/lanserve/lanserve/internal/models"
)

func seedNotification(t *testing.T, ts *testServer, userID, title string) *models.Notification {
	t.Helper()

	n, err := ts.notifications.Insert(context.Background(), &models.Notification{
		UserID: userID,
		Type:   models.NotificationNewMessage,
		Title:  title,
	})
	if err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	return n
}

func TestMyNotificationsNewestFirst(t *testing.T) {
	ts := newTestServer(t)

	seedNotification(t, ts, userAlice, "older")
	seedNotification(t, ts, userAlice, "newer")
	seedNotification(t, ts, userBob, "not yours")

	rec := ts.request(t, http.MethodGet, "/api/v1/notifications/my", userAlice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var list []models.Notification
	decode(t, rec, &list)
	if len(list) != 2 {
		t.Fatalf("got %d notifications, want 2", len(list))
	}
	if list[0].Title != "newer" || list[1].Title != "older" {
		t.Errorf("order = [%q, %q], want newest first", list[0].Title, list[1].Title)
	}
}

func TestMarkNotificationReadOwnership(t *testing.T) {
	ts := newTestServer(t)
	n := seedNotification(t, ts, userAlice, "for alice")

	rec := ts.request(t, http.MethodPost, "/api/v1/notifications/"+n.ID+"/read", userBob, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign mark read: status = %d, want 403", rec.Code)
	}

	rec = ts.request(t, http.MethodPost, "/api/v1/notifications/"+n.ID+"/read", userAlice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("own mark read: status = %d", rec.Code)
	}
	var result map[string]bool
	decode(t, rec, &result)
	if !result["changed"] {
		t.Error("first mark read must report changed = true")
	}
}

func TestDeleteNotification(t *testing.T) {
	ts := newTestServer(t)
	n := seedNotification(t, ts, userAlice, "to delete")

	rec := ts.request(t, http.MethodDelete, "/api/v1/notifications/"+n.ID, userAlice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var result map[string]bool
	decode(t, rec, &result)
	if !result["deleted"] {
		t.Error("delete must report deleted = true")
	}

	rec = ts.request(t, http.MethodDelete, "/api/v1/notifications/"+n.ID, userAlice, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", rec.Code)
	}
}
