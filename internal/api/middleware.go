// Package api implements the wiki REST API using chi.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/veleda/ansuz/internal/token"
)

type contextKey string

const usernameKey contextKey = "username"

// RequireAuth returns middleware that validates a Bearer access token and
// stores the authenticated username on the request context. Stale, forged,
// and missing tokens are all 401.
func RequireAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			claims, err := token.Parse(strings.TrimPrefix(auth, "Bearer "), token.Access, secret)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			ctx := context.WithValue(r.Context(), usernameKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// usernameFrom returns the authenticated username placed by RequireAuth.
func usernameFrom(ctx context.Context) string {
	u, _ := ctx.Value(usernameKey).(string)
	return u
}
