// Package handler serves the terminal's local API to the UI.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kiwari-pos/terminal/internal/cart"
	"github.com/kiwari-pos/terminal/internal/remote"
	"github.com/kiwari-pos/terminal/internal/service"
	"github.com/kiwari-pos/terminal/internal/split"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode JSON response", zap.Error(err))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// writeError maps an error to a response. Errors raised locally keep their
// message; errors from the service carry the service's message; anything
// else is logged and hidden.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		pse *service.PrintStatusError
		ue  *split.UnbalancedError
		re  *remote.Error
	)

	switch {
	case errors.As(err, &pse):
		// The receipt is on paper; staff must not print it again.
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "receipt printed, but failed to update print status",
			"code":  "print_status_failed",
		})
	case errors.As(err, &ue):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":     ue.Error(),
			"code":      "split_unbalanced",
			"remaining": ue.Remaining.String(),
		})
	case errors.Is(err, cart.ErrTableRequired):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error(), "code": "table_required"})
	case errors.Is(err, service.ErrOrderPrinted), service.IsConflict(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, remote.ErrMenuItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case service.IsValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, remote.ErrNotAuthenticated):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not logged in"})
	case errors.As(err, &re):
		log.Warn("remote call failed", zap.String("path", re.Path), zap.Int("status", re.StatusCode), zap.String("message", re.Message))
		status := http.StatusBadGateway
		if re.StatusCode == http.StatusUnauthorized {
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, map[string]string{"error": re.Message})
	default:
		log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
