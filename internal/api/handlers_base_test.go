// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lanserve/lanserve/internal/auth"
	"github.com/lanserve/lanserve/internal/config"
	"github.com/lanserve/lanserve/internal/dispatcher"
	"github.com/lanserve/lanserve/internal/models"
	"github.com/lanserve/lanserve/internal/realtime"
	"github.com/lanserve/lanserve/internal/store"
	"github.com/lanserve/lanserve/internal/wallet"
)

const testJWTSecret = "test-secret-test-secret-test-secret!"

// capturedEvents records published events instead of running a dispatcher.
type capturedEvents struct {
	mu     sync.Mutex
	events []dispatcher.Event
}

func (c *capturedEvents) Publish(_ context.Context, e dispatcher.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *capturedEvents) all() []dispatcher.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]dispatcher.Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *capturedEvents) byTopic(topic string) []dispatcher.Event {
	var out []dispatcher.Event
	for _, e := range c.all() {
		if e.Topic() == topic {
			out = append(out, e)
		}
	}
	return out
}

type testServer struct {
	srv      *Server
	handler  http.Handler
	events   *capturedEvents
	cfg      *config.Config
	verifier *auth.Verifier

	store         *store.Store
	messages      *store.MessageStore
	notifications *store.NotificationStore
	settings      *store.SettingsStore
	marketplace   *store.MarketplaceStore
	wallet        *wallet.MemoryClient
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{
		Security: config.SecurityConfig{
			JWTSecret:         testJWTSecret,
			RateLimitDisabled: true,
			CORSOrigins:       []string{"*"},
		},
		Realtime: config.RealtimeConfig{
			SendBuffer:     8,
			WriteTimeout:   time.Second,
			PongTimeout:    time.Second,
			MaxMessageSize: 1024,
		},
	}

	verifier, err := auth.NewVerifier(cfg.Security)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	ts := &testServer{
		events:        &capturedEvents{},
		cfg:           cfg,
		verifier:      verifier,
		store:         st,
		messages:      store.NewMessageStore(st),
		notifications: store.NewNotificationStore(st),
		settings:      store.NewSettingsStore(st),
		marketplace:   store.NewMarketplaceStore(st),
		wallet:        wallet.NewMemoryClient(),
	}

	ts.srv = NewServer(Deps{
		Config:        cfg,
		Verifier:      verifier,
		Store:         st,
		Messages:      ts.messages,
		Notifications: ts.notifications,
		Settings:      ts.settings,
		Marketplace:   ts.marketplace,
		Events:        ts.events,
		Hub:           realtime.NewHub(),
		Wallet:        ts.wallet,
	})
	ts.handler = ts.srv.Routes()

	return ts
}

// useWallet rebuilds the server around a different wallet client.
func (ts *testServer) useWallet(w wallet.Client) {
	ts.srv = NewServer(Deps{
		Config:        ts.cfg,
		Verifier:      ts.verifier,
		Store:         ts.store,
		Messages:      ts.messages,
		Notifications: ts.notifications,
		Settings:      ts.settings,
		Marketplace:   ts.marketplace,
		Events:        ts.events,
		Hub:           realtime.NewHub(),
		Wallet:        w,
	})
	ts.handler = ts.srv.Routes()
}

// token signs a short-lived HS256 token for the given user.
func token(t *testing.T, userID string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":  userID,
		"name": "Test User " + userID,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// request performs an authenticated JSON request against the test server.
func (ts *testServer) request(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// decode unpacks the envelope's data field into out.
func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) *APIResponse {
	t.Helper()

	var resp APIResponse
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, rec.Body.String())
	}
	resp.Success = envelope.Success
	resp.Error = envelope.Error

	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			t.Fatalf("decode data: %v (body: %s)", err, rec.Body.String())
		}
	}
	return &resp
}

// seedUser inserts a marketplace user document.
func (ts *testServer) seedUser(t *testing.T, id, name string) *models.User {
	t.Helper()

	u := &models.User{ID: id, FullName: name, Email: id + "@example.com", Role: "User"}
	if err := ts.marketplace.PutUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// seedProject inserts an open project.
func (ts *testServer) seedProject(t *testing.T, ownerID, title string) *models.Project {
	t.Helper()

	p, err := ts.marketplace.InsertProject(context.Background(), &models.Project{
		OwnerID:     ownerID,
		Title:       title,
		Description: "a project",
		Budget:      1000,
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return p
}
