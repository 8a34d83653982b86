// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lanserve/lanserve/internal/auth"
	"github.com/lanserve/lanserve/internal/config"
	"github.com/lanserve/lanserve/internal/conversation"
	"github.com/lanserve/lanserve/internal/dispatcher"
	"github.com/lanserve/lanserve/internal/middleware"
	"github.com/lanserve/lanserve/internal/realtime"
	"github.com/lanserve/lanserve/internal/store"
	"github.com/lanserve/lanserve/internal/wallet"
)

// EventPublisher hands domain events to the fan-out dispatcher. Publishing
// is fire-and-forget: handlers call it only after their primary write is
// durable, and a publish failure never fails the request.
type EventPublisher interface {
	Publish(ctx context.Context, e dispatcher.Event)
}

// Server holds the HTTP surface and its collaborators.
type Server struct {
	cfg      *config.Config
	verifier *auth.Verifier

	db            *store.Store
	messages      *store.MessageStore
	notifications *store.NotificationStore
	settings      *store.SettingsStore
	marketplace   *store.MarketplaceStore
	aggregator    *conversation.Aggregator

	events EventPublisher
	hub    *realtime.Hub
	wallet wallet.Client
}

// Deps collects everything the server needs. All fields are required.
type Deps struct {
	Config        *config.Config
	Verifier      *auth.Verifier
	Store         *store.Store
	Messages      *store.MessageStore
	Notifications *store.NotificationStore
	Settings      *store.SettingsStore
	Marketplace   *store.MarketplaceStore
	Events        EventPublisher
	Hub           *realtime.Hub
	Wallet        wallet.Client
}

// NewServer creates the HTTP server surface.
func NewServer(deps Deps) *Server {
	return &Server{
		cfg:           deps.Config,
		verifier:      deps.Verifier,
		db:            deps.Store,
		messages:      deps.Messages,
		notifications: deps.Notifications,
		settings:      deps.Settings,
		marketplace:   deps.Marketplace,
		aggregator:    conversation.NewAggregator(deps.Messages),
		events:        deps.Events,
		hub:           deps.Hub,
		wallet:        deps.Wallet,
	}
}

// Routes builds the chi router with the full middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Unauthenticated surface: health checks and metrics.
	r.Get("/api/v1/health/live", s.handleHealthLive)
	r.Get("/api/v1/health/ready", s.handleHealthReady)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated API.
	r.Route("/api/v1", func(r chi.Router) {
		if !s.cfg.Security.RateLimitDisabled {
			r.Use(httprate.LimitByRealIP(s.cfg.Security.RateLimitReqs, s.cfg.Security.RateLimitWindow))
		}
		r.Use(middleware.Prometheus)
		r.Use(middleware.Authenticate(s.verifier, s.marketplace))

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", s.handleSendMessage)
			r.Get("/my", s.handleMyMessages)
			r.Get("/my-conversations", s.handleMyConversations)
			r.Get("/thread/{conversationKey}", s.handleThread)
			r.Get("/project/{projectId}", s.handleProjectMessages)
			r.Post("/{id}/read", s.handleMarkMessageRead)
			r.Post("/conversation/{conversationKey}/read-all", s.handleMarkConversationRead)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/my", s.handleMyNotifications)
			r.Post("/{id}/read", s.handleMarkNotificationRead)
			r.Delete("/{id}", s.handleDeleteNotification)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Put("/", s.handleUpdateSettings)
			r.Put("/notifications", s.handleUpdateNotificationSettings)
			r.Put("/privacy", s.handleUpdatePrivacySettings)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", s.handleCreateProject)
			r.Get("/", s.handleListProjects)
			r.Get("/{id}", s.handleGetProject)
		})

		r.Route("/proposals", func(r chi.Router) {
			r.Post("/", s.handleCreateProposal)
			r.Get("/{id}", s.handleGetProposal)
			r.Get("/by-project/{projectId}", s.handleProposalsByProject)
			r.Get("/by-freelancer/{freelancerId}", s.handleProposalsByFreelancer)
			r.Put("/{id}/edit", s.handleEditProposal)
			r.Post("/{id}/cancel", s.handleCancelProposal)
			r.Post("/{id}/accept", s.handleAcceptProposal)
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Get("/{id}", s.handleGetContract)
			r.Post("/{id}/complete", s.handleCompleteContract)
		})

		// Websocket upgrades authenticate like any other route; browser
		// clients pass the token in the access_token query parameter.
		r.Get("/ws/messages", s.handleWebSocket)
		r.Get("/ws/notifications", s.handleWebSocket)
	})

	return r
}
