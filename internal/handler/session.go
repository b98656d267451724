package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/terminal/internal/auth"
	"go.uber.org/zap"
)

// SessionManager starts and ends the terminal's login session.
// Satisfied by *auth.Session; narrow interface for testability.
type SessionManager interface {
	Start(ctx context.Context, token string) (*auth.Claims, error)
	End(ctx context.Context) error
}

// CartResetter clears the order under construction. Satisfied by *cart.Cart.
type CartResetter interface {
	Reset()
}

// SessionHandler handles session endpoints.
type SessionHandler struct {
	sessions SessionManager
	cart     CartResetter
	log      *zap.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions SessionManager, c CartResetter, log *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, cart: c, log: log}
}

// RegisterRoutes registers session endpoints on the given Chi router.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Start)
	r.Delete("/", h.End)
}

type startSessionRequest struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// Start stores the token handed over by the login screen.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}

	claims, err := h.sessions.Start(r.Context(), req.Token)
	switch {
	case errors.Is(err, auth.ErrMalformedToken):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid token"})
		return
	case errors.Is(err, auth.ErrSessionExpired):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
		return
	case err != nil:
		writeError(w, h.log, err)
		return
	}

	// A new login never inherits the previous user's order.
	h.cart.Reset()

	resp := sessionResponse{Username: claims.Username, Role: claims.Role}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// End logs out and clears every session-scoped entry.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(r.Context()); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.cart.Reset()
	w.WriteHeader(http.StatusNoContent)
}
