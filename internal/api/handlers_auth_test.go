// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package api

import (
	"context"
	"net/http"
	"testing"
)

// Tokens are minted by an external identity service, so the local user
// registry is populated from verified claims as a side effect of
// authentication. Without that, the new-project broadcast would have no
// recipients and notification text would lose sender names.
func TestAuthenticatedRequestSyncsUserRegistry(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	// No seedUser calls: the registry starts empty.
	if users, err := ts.marketplace.ListUsers(ctx); err != nil || len(users) != 0 {
		t.Fatalf("registry should start empty, got %d users, err %v", len(users), err)
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/notifications/my", userAlice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	u, err := ts.marketplace.GetUser(ctx, userAlice)
	if err != nil {
		t.Fatalf("user not synced from token claims: %v", err)
	}
	if u.FullName != "Test User "+userAlice {
		t.Errorf("fullName = %q, want claim value", u.FullName)
	}

	ts.request(t, http.MethodGet, "/api/v1/notifications/my", userBob, nil)

	users, err := ts.marketplace.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("registry should hold both callers, got %d", len(users))
	}
}
