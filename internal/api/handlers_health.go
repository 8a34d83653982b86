// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package api

import (
	"net/http"

	badger "github.com/dgraph-io/badger/v4"
)

// handleHealthLive reports process liveness. It always succeeds while the
// server is able to serve requests.
func (s *Server) handleHealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// handleHealthReady reports readiness: the document store must answer a
// read transaction and the realtime hub must be constructed.
func (s *Server) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if err := s.db.DB().View(func(*badger.Txn) error { return nil }); err != nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "document store not ready")
		return
	}

	rw.Success(map[string]interface{}{
		"status":      "ready",
		"connections": s.hub.ConnectionCount(),
	})
}
