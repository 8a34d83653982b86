// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

// Package metrics defines the Prometheus instruments exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API metrics

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "In-flight HTTP requests",
		},
	)

	// Realtime gateway metrics

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections",
			Help: "Open websocket connections",
		},
	)

	WebSocketUsersOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_users_online",
			Help: "Distinct users with at least one open connection",
		},
	)

	PushAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_push_attempts_total",
			Help: "Best-effort push attempts by event name and outcome",
		},
		[]string{"event", "outcome"},
	)

	// Dispatcher metrics

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Notification records created by type",
		},
		[]string{"type"},
	)

	NotificationsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_skipped_total",
			Help: "Notifications skipped by recipient preference, by type",
		},
		[]string{"type"},
	)

	DispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_failures_total",
			Help: "Swallowed fan-out side-effect failures by topic",
		},
		[]string{"topic"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Domain events published by topic",
		},
		[]string{"topic"},
	)

	// Wallet client metrics

	WalletRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_requests_total",
			Help: "External wallet calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
)
