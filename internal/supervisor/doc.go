// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

// Package supervisor builds the suture supervision tree that runs the
// long-lived components: the realtime hub, the event dispatcher, and the
// HTTP server. Each layer restarts independently with exponential backoff.
package supervisor
