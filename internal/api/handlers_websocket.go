// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package api

import (
	"net/http"

	"github.com/lanserve/lanserve/internal/auth"
	"github.com/lanserve/lanserve/internal/logging"
	"github.com/lanserve/lanserve/internal/realtime"
)

// handleWebSocket upgrades the connection and registers it under the
// caller's identity. The Authenticate middleware has already verified the
// token (bearer header or access_token query parameter), so every
// connection is keyed by a trusted user ID.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	upgrader := realtime.Upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.CtxErr(r.Context(), err).Str("user_id", userID).Msg("WebSocket upgrade failed")
		return
	}

	realtime.NewClient(s.hub, conn, userID, s.cfg.Realtime).Start()
}
