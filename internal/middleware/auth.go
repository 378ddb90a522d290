// Package middleware holds the HTTP middleware shared by the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/nexcart/storefront/internal/auth"
	"github.com/nexcart/storefront/pkg/logger"
)

type contextKey string

const usernameKey contextKey = "username"

// UsernameFromContext returns the authenticated username stored by Auth, or
// an empty string when the request was not authenticated.
func UsernameFromContext(ctx context.Context) string {
	username, _ := ctx.Value(usernameKey).(string)
	return username
}

// WithUsername stores the authenticated username on the context. Exposed for
// handler tests.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// Auth validates the session token from the Authorization header or the
// session cookie and stores the authenticated username on the request
// context. Paths listed in skipPaths pass through unauthenticated.
func Auth(manager *auth.Manager, log *logger.Logger, skipPaths ...string) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewDefault("auth-middleware")
	}
	skipped := func(path string) bool {
		for _, p := range skipPaths {
			if path == p || strings.HasPrefix(path, p+"/") {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipped(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				unauthorized(w, "missing authorization")
				return
			}

			username, err := manager.Validate(token)
			if err != nil {
				log.WithError(err).Debug("rejected session token")
				unauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), username)))
		})
	}
}

func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	if cookie, err := r.Cookie(auth.TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
