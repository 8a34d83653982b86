// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/lanserve/lanserve/internal/auth"
	"github.com/lanserve/lanserve/internal/logging"
	"github.com/lanserve/lanserve/internal/models"
	"github.com/lanserve/lanserve/internal/store"
)

// UserSyncer mirrors verified identities into the local user registry.
// Satisfied by *store.MarketplaceStore.
type UserSyncer interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	PutUser(ctx context.Context, u *models.User) error
}

// Authenticate rejects requests without a valid token and stores the
// verified identity on the context. The token comes from the Authorization
// header or, for websocket connects, the access_token query parameter.
//
// Token issuance lives in an external identity service, so the local user
// registry (broadcast recipients, sender display names) is populated here:
// every verified identity is upserted on first sight or claim change.
// Sync failures are logged and never block the request.
func Authenticate(verifier *auth.Verifier, users UserSyncer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromRequest(r)
			if token == "" {
				unauthorized(w, "MISSING_TOKEN", "Authentication token required")
				return
			}
			claims, err := verifier.ValidateToken(token)
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("Token validation failed")
				unauthorized(w, "INVALID_TOKEN", "Authentication token is invalid or expired")
				return
			}
			ctx := auth.ContextWithIdentity(r.Context(), claims)
			syncUser(ctx, users, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func syncUser(ctx context.Context, users UserSyncer, claims *auth.Claims) {
	if users == nil {
		return
	}
	existing, err := users.GetUser(ctx, claims.Subject)
	if err == nil && existing.FullName == claims.FullName &&
		existing.Email == claims.Email && existing.Role == claims.Role {
		return
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		logging.Ctx(ctx).Warn().Err(err).Msg("User registry read failed")
		return
	}
	u := &models.User{
		ID:       claims.Subject,
		FullName: claims.FullName,
		Email:    claims.Email,
		Role:     claims.Role,
	}
	if err := users.PutUser(ctx, u); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", u.ID).Msg("User registry sync failed")
	}
}

func unauthorized(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}
