package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kiwari-pos/terminal/internal/auth"
	"go.uber.org/zap"
)

type contextKey string

const claimsKey contextKey = "claims"

// SessionReader returns the claims of the active session.
// Satisfied by *auth.Session.
type SessionReader interface {
	Claims(ctx context.Context) (*auth.Claims, error)
}

// RequireSession rejects requests while nobody is logged in at the
// terminal, and puts the session claims in the request context.
func RequireSession(sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := sessions.Claims(r.Context())
			switch {
			case errors.Is(err, auth.ErrSessionExpired):
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session expired"})
				return
			case err != nil:
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not logged in"})
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows the request through only when the session's role is
// one of roles. It must run after RequireSession.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not logged in"})
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
		})
	}
}

// ClaimsFromContext returns the session claims stored by RequireSession, or
// nil when there are none.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// WithClaims returns a context carrying claims, as RequireSession does.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode JSON response", zap.Error(err))
	}
}
