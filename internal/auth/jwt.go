// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

// Package auth validates caller identity. Token issuance is owned by an
// external identity service; this service only verifies HS256 tokens signed
// with the shared secret and exposes the subject claim as the verified user
// id.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lanserve/lanserve/internal/config"
)

// Errors surfaced by token validation.
var (
	ErrMissingToken = errors.New("missing authentication token")
	ErrInvalidToken = errors.New("invalid authentication token")
)

// Claims are the verified token claims. Subject is the user id.
type Claims struct {
	FullName string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier from the configured shared secret.
func NewVerifier(cfg config.SecurityConfig) (*Verifier, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &Verifier{secret: []byte(cfg.JWTSecret)}, nil
}

// ValidateToken parses and verifies a token string, returning its claims.
func (v *Verifier) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

type contextKey string

const identityKey contextKey = "identity"

// ContextWithIdentity stores verified claims on the context.
func ContextWithIdentity(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, identityKey, claims)
}

// IdentityFromContext returns the verified claims, or nil outside an
// authenticated request.
func IdentityFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(identityKey).(*Claims)
	return claims
}

// UserIDFromContext returns the verified caller id, or "".
func UserIDFromContext(ctx context.Context) string {
	if claims := IdentityFromContext(ctx); claims != nil {
		return claims.Subject
	}
	return ""
}

// TokenFromRequest extracts the token from the Authorization header or,
// for websocket connects where browsers cannot set headers, from the
// access_token query parameter.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimPrefix(h, "Bearer ")
		}
	}
	return r.URL.Query().Get("access_token")
}
