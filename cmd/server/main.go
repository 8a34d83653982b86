// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

// Package main is the entry point for the LanServe server.
//
// LanServe is a freelance marketplace backend: clients post projects,
// freelancers send proposals, accepted proposals become contracts, and the
// parties talk over per-project conversations with realtime push delivery.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load from defaults, config file, and environment (Koanf v2)
//  2. Store: Badger document store for messages, notifications, and marketplace entities
//  3. Realtime hub: WebSocket push delivery to connected users
//  4. Dispatcher: Watermill event router fanning domain events out to
//     notifications and realtime push
//  5. Wallet client: payout credits on contract completion
//  6. HTTP server: REST API plus WebSocket endpoints
//
// Long-lived components run under a suture supervisor tree so a crash in
// one layer restarts in isolation. Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lanserve/lanserve/internal/api"
	"github.com/lanserve/lanserve/internal/auth"
	"github.com/lanserve/lanserve/internal/config"
	"github.com/lanserve/lanserve/internal/dispatcher"
	"github.com/lanserve/lanserve/internal/logging"
	"github.com/lanserve/lanserve/internal/realtime"
	"github.com/lanserve/lanserve/internal/store"
	"github.com/lanserve/lanserve/internal/supervisor"
	"github.com/lanserve/lanserve/internal/supervisor/services"
	"github.com/lanserve/lanserve/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("db_path", cfg.Database.Path).
		Str("wallet_mode", cfg.Wallet.Mode).
		Msg("Starting LanServe")

	db, err := store.Open(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	messages := store.NewMessageStore(db)
	notifications := store.NewNotificationStore(db)
	settings := store.NewSettingsStore(db)
	marketplace := store.NewMarketplaceStore(db)

	hub := realtime.NewHub()

	events, err := dispatcher.New(cfg.Dispatcher, notifications, settings, marketplace, hub)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create event dispatcher")
	}
	defer func() {
		if err := events.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event dispatcher")
		}
	}()

	walletClient, err := wallet.New(cfg.Wallet)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create wallet client")
	}

	verifier, err := auth.NewVerifier(cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token verifier")
	}

	srv := api.NewServer(api.Deps{
		Config:        cfg,
		Verifier:      verifier,
		Store:         db,
		Messages:      messages,
		Notifications: notifications,
		Settings:      settings,
		Marketplace:   marketplace,
		Events:        events,
		Hub:           hub,
		Wallet:        walletClient,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Bridge zerolog to slog for sutureslog.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddMessagingService(services.NewDispatcherService(events))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped gracefully")
}
