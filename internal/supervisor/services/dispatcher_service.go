// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package services

import (
	"context"
)

// EventRunner matches dispatcher.Dispatcher's Run method without importing
// the dispatcher package.
type EventRunner interface {
	Run(ctx context.Context) error
}

// DispatcherService wraps the event dispatcher's router loop as a supervised
// service. Run blocks until the context is canceled; final resource cleanup
// (Close) stays with the caller that built the dispatcher.
type DispatcherService struct {
	runner EventRunner
	name   string
}

// NewDispatcherService creates a supervised wrapper around the dispatcher.
func NewDispatcherService(runner EventRunner) *DispatcherService {
	return &DispatcherService{
		runner: runner,
		name:   "event-dispatcher",
	}
}

// Serve implements suture.Service.
func (s *DispatcherService) Serve(ctx context.Context) error {
	return s.runner.Run(ctx)
}

// String identifies the service in supervisor log messages.
func (s *DispatcherService) String() string {
	return s.name
}
