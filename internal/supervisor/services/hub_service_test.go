// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/lanserve/lanserve/internal/realtime"
)

type mockHub struct {
	started chan struct{}
	err     error
}

func (m *mockHub) RunWithContext(ctx context.Context) error {
	close(m.started)
	if m.err != nil {
		return m.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestHubServiceInterface(t *testing.T) {
	var _ suture.Service = (*HubService)(nil)
	var _ ContextHub = (*realtime.Hub)(nil)
}

func TestHubServiceDelegates(t *testing.T) {
	hub := &mockHub{started: make(chan struct{})}
	svc := NewHubService(hub)

	if svc.String() != "realtime-hub" {
		t.Errorf("expected 'realtime-hub', got %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Serve(ctx)
	}()

	select {
	case <-hub.started:
	case <-time.After(time.Second):
		t.Fatal("hub did not start")
	}

	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestHubServicePropagatesError(t *testing.T) {
	runErr := errors.New("hub crashed")
	hub := &mockHub{started: make(chan struct{}), err: runErr}
	svc := NewHubService(hub)

	if err := svc.Serve(context.Background()); !errors.Is(err, runErr) {
		t.Errorf("expected hub error, got %v", err)
	}
}

func TestDispatcherServiceDelegates(t *testing.T) {
	runner := &mockRunner{started: make(chan struct{})}
	svc := NewDispatcherService(runner)

	if svc.String() != "event-dispatcher" {
		t.Errorf("expected 'event-dispatcher', got %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Serve(ctx)
	}()

	<-runner.started
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
}

type mockRunner struct {
	started chan struct{}
}

func (m *mockRunner) Run(ctx context.Context) error {
	close(m.started)
	<-ctx.Done()
	return ctx.Err()
}
