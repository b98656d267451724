package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/terminal/internal/cart"
	"github.com/kiwari-pos/terminal/internal/remote"
	"github.com/kiwari-pos/terminal/internal/service"
	"github.com/kiwari-pos/terminal/internal/split"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderServicer edits and closes pending orders.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	BeginEdit(ctx context.Context, id remote.ID) (cart.Snapshot, error)
	Close(ctx context.Context, id remote.ID) (*remote.Order, error)
}

// PrintServicer prints receipts. Satisfied by *service.PrintService.
type PrintServicer interface {
	Print(ctx context.Context, id remote.ID) (*remote.Order, error)
	SplitFor(id remote.ID, allocations []split.Allocation) (split.Split, error)
	PrintSplit(ctx context.Context, id remote.ID, allocations []split.Allocation) ([]split.Share, error)
}

// PendingBoard is the local list of pending orders. Satisfied by
// *service.Board.
type PendingBoard interface {
	View() service.BoardView
	Refresh(ctx context.Context) (service.BoardView, error)
}

// OrderHandler handles pending-order endpoints.
type OrderHandler struct {
	orders OrderServicer
	prints PrintServicer
	board  PendingBoard
	log    *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders OrderServicer, prints PrintServicer, board PendingBoard, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, prints: prints, board: board, log: log}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/pending", h.Pending)
	r.Route("/{id}", func(r chi.Router) {
		r.Post("/edit", h.Edit)
		r.Post("/close", h.Close)
		r.Post("/print", h.Print)
		r.Post("/split", h.Split)
		r.Post("/split/print", h.PrintSplit)
	})
}

func orderID(r *http.Request) remote.ID {
	return remote.ID(chi.URLParam(r, "id"))
}

// Pending lists pending orders. ?refresh=true reloads them from the service
// first.
func (h *OrderHandler) Pending(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		view, err := h.board.Refresh(r.Context())
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}
	writeJSON(w, http.StatusOK, h.board.View())
}

// Edit loads an unprinted pending order into the cart.
func (h *OrderHandler) Edit(w http.ResponseWriter, r *http.Request) {
	snap, err := h.orders.BeginEdit(r.Context(), orderID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *OrderHandler) Close(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Close(r.Context(), orderID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Print(w http.ResponseWriter, r *http.Request) {
	order, err := h.prints.Print(r.Context(), orderID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// splitRequest asks for an equal split across Payers, or reconciles the
// given Allocations.
type splitRequest struct {
	Payers      int                `json:"payers"`
	Allocations []split.Allocation `json:"allocations"`
}

type splitResponse struct {
	Total       decimal.Decimal `json:"total"`
	Allocated   decimal.Decimal `json:"allocated"`
	Remaining   decimal.Decimal `json:"remaining"`
	Confirmable bool            `json:"confirmable"`
	Shares      []split.Share   `json:"shares,omitempty"`
}

// Split previews a split bill. It never prints and never changes the order.
func (h *OrderHandler) Split(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sp, err := h.prints.SplitFor(orderID(r), req.Allocations)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	if len(req.Allocations) == 0 {
		shares, err := split.EqualSplit(sp.Total, req.Payers)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeJSON(w, http.StatusOK, splitResponse{
			Total:       sp.Total,
			Allocated:   sp.Total,
			Remaining:   decimal.Zero,
			Confirmable: true,
			Shares:      shares,
		})
		return
	}

	writeJSON(w, http.StatusOK, splitResponse{
		Total:       sp.Total,
		Allocated:   sp.Allocated(),
		Remaining:   sp.Remaining(),
		Confirmable: sp.Confirmable(),
	})
}

// PrintSplit prints a split receipt. An equal split is expanded into
// allocations first.
func (h *OrderHandler) PrintSplit(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	allocations := req.Allocations
	if len(allocations) == 0 {
		sp, err := h.prints.SplitFor(orderID(r), nil)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		shares, err := split.EqualSplit(sp.Total, req.Payers)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		for _, s := range shares {
			allocations = append(allocations, split.Allocation{
				Person: s.Person,
				Amount: decimal.NewNullDecimal(s.Amount),
			})
		}
	}

	shares, err := h.prints.PrintSplit(r.Context(), orderID(r), allocations)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shares": shares})
}
