// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package services

import (
	"context"
)

// ContextHub matches realtime.Hub's RunWithContext method without importing
// the realtime package.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// HubService wraps the realtime push hub as a supervised service. The hub's
// RunWithContext already follows the suture.Service pattern, so this only
// delegates and provides a name for logging.
type HubService struct {
	hub  ContextHub
	name string
}

// NewHubService creates a supervised wrapper around the realtime hub.
func NewHubService(hub ContextHub) *HubService {
	return &HubService{
		hub:  hub,
		name: "realtime-hub",
	}
}

// Serve implements suture.Service. Returns ctx.Err() on normal shutdown.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String identifies the service in supervisor log messages.
func (s *HubService) String() string {
	return s.name
}
