package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yourorg/tillpoint/internal/security/auth"
)

type ClaimsContextKey struct{}
type RequestIDContextKey struct{}

// ClaimsFrom returns the authenticated claims attached to a request, if any
func ClaimsFrom(r *http.Request) *auth.Claims {
	if c, ok := r.Context().Value(ClaimsContextKey{}).(*auth.Claims); ok {
		return c
	}
	return nil
}

// publicPath reports whether a path is served without a session token
func publicPath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics" ||
		path == "/api/login" ||
		strings.HasPrefix(path, "/ws/")
}

// JWTMiddleware authenticates requests and attaches the claims to the context
func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.Validate(tokenString)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware tags each request with a random id for log correlation
func RequestIDMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buf := make([]byte, 8)
			if _, err := rand.Read(buf); err == nil {
				id := hex.EncodeToString(buf)
				w.Header().Set("X-Request-ID", id)
				ctx := context.WithValue(r.Context(), RequestIDContextKey{}, id)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}
