// Package middleware provides HTTP middleware for identity resolution,
// CORS handling, rate limiting, and request context management.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/karafriends/backend/internal/logging"
	"github.com/karafriends/backend/internal/services"
	"github.com/karafriends/backend/internal/session"
)

type contextKey string

const (
	// ClaimsKey is the context key for storing identity claims.
	ClaimsKey contextKey = "claims"
)

// tokenFromRequest reads a bearer token from the Authorization header, or
// from the token query parameter for EventSource and WebSocket clients that
// cannot set headers.
func tokenFromRequest(r *http.Request) (string, bool, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		token := r.URL.Query().Get("token")
		return token, token != "", true
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", true, false
	}
	return parts[1], true, true
}

// AuthMiddleware validates identity tokens and adds claims to the request
// context. Returns 401 for missing/invalid tokens.
func AuthMiddleware(identity *services.IdentityService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, present, wellFormed := tokenFromRequest(r)
			if !present {
				logging.LogSecurityEvent(r.Context(), logging.SecurityEventMissingAuth, "missing identity token")
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}
			if !wellFormed {
				logging.LogSecurityEvent(r.Context(), logging.SecurityEventInvalidAuthFmt, "invalid authorization header format")
				http.Error(w, `{"error":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			claims, err := identity.ValidateToken(token)
			if err != nil {
				logging.LogSecurityEvent(r.Context(), logging.SecurityEventInvalidJWT, "invalid or expired token")
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims retrieves the identity claims from the request context.
// Returns nil if no claims are present (e.g., unauthenticated request).
func GetClaims(ctx context.Context) *services.Claims {
	claims, _ := ctx.Value(ClaimsKey).(*services.Claims)
	return claims
}

// GetIdentity returns the requester's identity and whether one was set.
func GetIdentity(ctx context.Context) (session.UserIdentity, bool) {
	claims := GetClaims(ctx)
	if claims == nil {
		return session.UserIdentity{}, false
	}
	return claims.Identity(), true
}

// WithClaims stores claims in ctx, as AuthMiddleware does.
func WithClaims(ctx context.Context, claims *services.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}
