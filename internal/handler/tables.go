package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/terminal/internal/occupancy"
	"github.com/kiwari-pos/terminal/internal/remote"
	"go.uber.org/zap"
)

// OccupancyReader lists tables with their open-order counts.
// Satisfied by *occupancy.Tracker; narrow interface for testability.
type OccupancyReader interface {
	Tables(ctx context.Context, tables []string) ([]occupancy.TableOccupancy, error)
	Seed(ctx context.Context, lister occupancy.PendingLister) error
	EnsureSeeded(ctx context.Context, lister occupancy.PendingLister) error
}

// SettingsReader returns the business settings. Satisfied by *remote.Client.
type SettingsReader interface {
	Settings(ctx context.Context) (*remote.Settings, error)
}

// TableHandler handles table selection endpoints.
type TableHandler struct {
	tracker  OccupancyReader
	settings SettingsReader
	pending  occupancy.PendingLister
	log      *zap.Logger
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(tracker OccupancyReader, settings SettingsReader, pending occupancy.PendingLister, log *zap.Logger) *TableHandler {
	return &TableHandler{tracker: tracker, settings: settings, pending: pending, log: log}
}

// RegisterRoutes registers table endpoints on the given Chi router.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/refresh", h.Refresh)
}

type tablesResponse struct {
	UsesTables bool                       `json:"usesTables"`
	Tables     []occupancy.TableOccupancy `json:"tables"`
}

// List returns the physical tables, free ones first. The first listing of a
// session seeds occupancy from the service; if that fails the local counts
// are served and the next listing tries again.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Settings(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.tracker.EnsureSeeded(r.Context(), h.pending); err != nil {
		h.log.Warn("serving unseeded table occupancy", zap.Error(err))
	}
	tables, err := h.tracker.Tables(r.Context(), settings.Tables())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if tables == nil {
		tables = []occupancy.TableOccupancy{}
	}
	writeJSON(w, http.StatusOK, tablesResponse{UsesTables: settings.UsesTables(), Tables: tables})
}

// Refresh reseeds occupancy from the service's pending orders.
func (h *TableHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Seed(r.Context(), h.pending); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.List(w, r)
}
