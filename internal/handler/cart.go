package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/terminal/internal/cart"
	"github.com/kiwari-pos/terminal/internal/middleware"
	"github.com/kiwari-pos/terminal/internal/pricing"
	"github.com/kiwari-pos/terminal/internal/remote"
	"github.com/kiwari-pos/terminal/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartReference reads the data needed to fill and price the cart.
// Satisfied by *remote.Client; narrow interface for testability.
type CartReference interface {
	Settings(ctx context.Context) (*remote.Settings, error)
	MenuItem(ctx context.Context, id remote.ID) (*remote.MenuItem, error)
}

// Submitter persists the cart. Satisfied by *service.OrderService.
type Submitter interface {
	Submit(ctx context.Context, username string) (*remote.Order, error)
}

// CartHandler handles the order under construction.
type CartHandler struct {
	cart      *cart.Cart
	ref       CartReference
	submitter Submitter
	log       *zap.Logger
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(c *cart.Cart, ref CartReference, submitter Submitter, log *zap.Logger) *CartHandler {
	return &CartHandler{cart: c, ref: ref, submitter: submitter, log: log}
}

// RegisterRoutes registers cart endpoints on the given Chi router.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Post("/open", h.Open)
	r.Put("/table", h.SelectTable)
	r.Post("/lines", h.AddLine)
	r.Post("/lines/{idx}/increase", h.Increase)
	r.Post("/lines/{idx}/decrease", h.Decrease)
	r.Put("/lines/{idx}/notes", h.SetNotes)
	r.Delete("/lines/{idx}", h.RemoveLine)
	r.Post("/submit", h.Submit)
}

type cartResponse struct {
	cart.Snapshot
	OrderType     string          `json:"orderType"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	ServiceCharge decimal.Decimal `json:"serviceCharge"`
	Total         decimal.Decimal `json:"total"`
}

// respond writes the current cart priced with the current settings.
func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, status int) {
	settings, err := h.ref.Settings(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	snap := h.cart.Snapshot()
	if snap.Lines == nil {
		snap.Lines = []cart.Line{}
	}
	orderType := service.ResolveOrderType(snap.OrderType, snap.TableNumber)
	priced := pricing.Price(snap.PricingLines(), settings.Rates(), orderType)

	writeJSON(w, status, cartResponse{
		Snapshot:      snap,
		OrderType:     orderType,
		Subtotal:      priced.Subtotal,
		Tax:           priced.Tax,
		ServiceCharge: priced.ServiceCharge,
		Total:         priced.Total,
	})
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK)
}

// Open starts a fresh order. The UI calls it whenever the order screen is
// entered so no lines leak from an earlier order.
func (h *CartHandler) Open(w http.ResponseWriter, r *http.Request) {
	h.cart.Reset()
	h.respond(w, r, http.StatusOK)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.cart.Reset()
	h.respond(w, r, http.StatusOK)
}

type selectTableRequest struct {
	TableNumber string `json:"tableNumber"`
	OrderType   string `json:"orderType"`
}

func (h *CartHandler) SelectTable(w http.ResponseWriter, r *http.Request) {
	var req selectTableRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.cart.SelectTable(req.TableNumber, req.OrderType); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.respond(w, r, http.StatusOK)
}

type addLineRequest struct {
	ItemID string `json:"itemId"`
}

// AddLine adds one unit of a menu item. Price and name come from the menu,
// never from the request.
func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		writeError(w, h.log, cart.ErrInvalidItem)
		return
	}

	settings, err := h.ref.Settings(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	item, err := h.ref.MenuItem(r.Context(), remote.ID(req.ItemID))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	err = h.cart.AddLine(cart.MenuItem{ID: item.ID.String(), Name: item.Name, Price: item.Price}, settings.UsesTables())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.respond(w, r, http.StatusOK)
}

func (h *CartHandler) Increase(w http.ResponseWriter, r *http.Request) {
	h.lineOp(w, r, h.cart.IncreaseQuantity)
}

func (h *CartHandler) Decrease(w http.ResponseWriter, r *http.Request) {
	h.lineOp(w, r, h.cart.DecreaseQuantity)
}

func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	h.lineOp(w, r, h.cart.RemoveLine)
}

type setNotesRequest struct {
	Notes string `json:"notes"`
}

func (h *CartHandler) SetNotes(w http.ResponseWriter, r *http.Request) {
	var req setNotesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.lineOp(w, r, func(i int) error { return h.cart.SetNotes(i, req.Notes) })
}

func (h *CartHandler) lineOp(w http.ResponseWriter, r *http.Request, op func(int) error) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid line index"})
		return
	}
	if err := op(idx); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.respond(w, r, http.StatusOK)
}

// Submit creates the order, or updates it when the cart was loaded for
// editing.
func (h *CartHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not logged in"})
		return
	}

	order, err := h.submitter.Submit(r.Context(), claims.Username)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}
