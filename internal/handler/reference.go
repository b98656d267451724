package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/middleware"
	"github.com/kiwari-pos/terminal/internal/remote"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReferenceStore reads and writes the slow-changing data that prices an
// order. Satisfied by *remote.Client; narrow interface for testability.
type ReferenceStore interface {
	Settings(ctx context.Context) (*remote.Settings, error)
	SaveSettings(ctx context.Context, s remote.Settings) (*remote.Settings, error)
	MenuItems(ctx context.Context) ([]remote.MenuItem, error)
	CreateMenuItem(ctx context.Context, in remote.MenuItemInput) (*remote.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id remote.ID, in remote.MenuItemInput) (*remote.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id remote.ID) error
}

// ReferenceHandler handles business settings and menu endpoints.
type ReferenceHandler struct {
	store ReferenceStore
	log   *zap.Logger
}

// NewReferenceHandler creates a new ReferenceHandler.
func NewReferenceHandler(store ReferenceStore, log *zap.Logger) *ReferenceHandler {
	return &ReferenceHandler{store: store, log: log}
}

// RegisterSettingsRoutes registers /settings endpoints. Writes need the
// admin role.
func (h *ReferenceHandler) RegisterSettingsRoutes(r chi.Router) {
	r.Get("/", h.GetSettings)
	r.With(middleware.RequireRole(enum.RoleAdmin)).Put("/", h.SaveSettings)
}

// RegisterMenuRoutes registers /menu endpoints. Writes need the admin role.
func (h *ReferenceHandler) RegisterMenuRoutes(r chi.Router) {
	r.Get("/", h.ListMenu)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.RoleAdmin))
		r.Post("/", h.CreateMenuItem)
		r.Put("/{id}", h.UpdateMenuItem)
		r.Delete("/{id}", h.DeleteMenuItem)
	})
}

// --- Settings ---

func (h *ReferenceHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Settings(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *ReferenceHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var req remote.Settings
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := validateSettings(req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	saved, err := h.store.SaveSettings(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

var hundred = decimal.NewFromInt(100)

func validateSettings(s remote.Settings) string {
	if strings.TrimSpace(s.BusinessName) == "" {
		return "businessName is required"
	}
	switch s.BusinessType {
	case enum.BusinessTypeBar, enum.BusinessTypeRestaurant, enum.BusinessTypeCafe, enum.BusinessTypeRetail:
	default:
		return "invalid businessType"
	}
	if !validPercentage(s.TaxPercentage) {
		return "taxPercentage must be between 0 and 100"
	}
	if !validPercentage(s.ServiceCharge) {
		return "serviceCharge must be between 0 and 100"
	}
	if s.NumberOfTables < 0 {
		return "numberOfTables must be >= 0"
	}
	return ""
}

func validPercentage(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}

// --- Menu ---

func (h *ReferenceHandler) ListMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.MenuItems(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ReferenceHandler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeMenuItem(w, r)
	if !ok {
		return
	}
	item, err := h.store.CreateMenuItem(r.Context(), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *ReferenceHandler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeMenuItem(w, r)
	if !ok {
		return
	}
	item, err := h.store.UpdateMenuItem(r.Context(), remote.ID(chi.URLParam(r, "id")), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ReferenceHandler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteMenuItem(r.Context(), remote.ID(chi.URLParam(r, "id"))); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeMenuItem(w http.ResponseWriter, r *http.Request) (remote.MenuItemInput, bool) {
	var in remote.MenuItemInput
	if !decodeJSON(w, r, &in) {
		return in, false
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return in, false
	}
	if in.Price.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be >= 0"})
		return in, false
	}
	return in, true
}
