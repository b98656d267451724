package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/remote"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PendingLister returns every pending order known to the service.
// Satisfied by *remote.Client.
type PendingLister interface {
	PendingOrders(ctx context.Context) (*remote.OrderList, error)
}

// PendingOrder is a board entry with the actions the UI may offer for it.
type PendingOrder struct {
	remote.Order
	PrintState string `json:"printState"`
	CanEdit    bool   `json:"canEdit"`
}

// BoardView is a consistent copy of the board.
type BoardView struct {
	Orders             []PendingOrder  `json:"orders"`
	TotalPendingAmount decimal.Decimal `json:"totalPendingAmount"`
	TotalPendingOrders int             `json:"totalPendingOrders"`
}

// Board is the terminal's local list of pending orders. Print state is
// applied here optimistically and rolled back by the print workflow.
type Board struct {
	lister PendingLister
	log    *zap.Logger

	mu       sync.RWMutex
	orders   map[remote.ID]remote.Order
	printing map[remote.ID]bool
}

// NewBoard creates an empty board.
func NewBoard(lister PendingLister, log *zap.Logger) *Board {
	return &Board{
		lister:   lister,
		log:      log,
		orders:   make(map[remote.ID]remote.Order),
		printing: make(map[remote.ID]bool),
	}
}

// Refresh replaces the board with the service's pending orders. On failure
// the board is left as it was.
func (b *Board) Refresh(ctx context.Context) (BoardView, error) {
	list, err := b.lister.PendingOrders(ctx)
	if err != nil {
		return BoardView{}, fmt.Errorf("refresh pending orders: %w", err)
	}

	orders := make(map[remote.ID]remote.Order, len(list.Orders))
	for _, o := range list.Orders {
		if o.Pending() {
			orders[o.ID] = o
		}
	}

	b.mu.Lock()
	b.orders = orders
	// A print in progress keeps its optimistic flag until the workflow
	// settles it.
	for id := range b.printing {
		if o, ok := b.orders[id]; ok {
			o.IsPrinted = true
			b.orders[id] = o
		}
	}
	b.mu.Unlock()

	b.log.Debug("pending orders refreshed", zap.Int("count", len(orders)))
	return b.View(), nil
}

// View returns the board ordered by creation time, oldest first.
func (b *Board) View() BoardView {
	b.mu.RLock()
	defer b.mu.RUnlock()

	view := BoardView{
		Orders:             make([]PendingOrder, 0, len(b.orders)),
		TotalPendingAmount: decimal.Zero,
	}
	for id, o := range b.orders {
		view.Orders = append(view.Orders, PendingOrder{
			Order:      o,
			PrintState: b.printState(id, o),
			CanEdit:    !o.IsPrinted,
		})
		view.TotalPendingAmount = view.TotalPendingAmount.Add(o.TotalAmount)
	}
	view.TotalPendingOrders = len(view.Orders)

	sort.Slice(view.Orders, func(i, j int) bool {
		a, c := view.Orders[i], view.Orders[j]
		if !a.CreatedAt.Equal(c.CreatedAt) {
			return a.CreatedAt.Before(c.CreatedAt)
		}
		return a.ID < c.ID
	})
	return view
}

// Get returns the pending order with the given id.
func (b *Board) Get(id remote.ID) (remote.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	return o, ok
}

// Upsert adds or replaces an order. Orders that are no longer pending are
// removed instead.
func (b *Board) Upsert(o remote.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o.Status != "" && !o.Pending() {
		delete(b.orders, o.ID)
		return
	}
	if o.Status == "" {
		o.Status = enum.OrderStatusPending
	}
	b.orders[o.ID] = o
}

// Remove drops an order from the board.
func (b *Board) Remove(id remote.ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.orders, id)
	delete(b.printing, id)
}

// beginPrint marks the order as printing and optimistically printed. It
// returns the order as it was before the mark.
func (b *Board) beginPrint(id remote.ID) (remote.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[id]
	if !ok {
		return remote.Order{}, ErrOrderNotFound
	}
	if b.printing[id] {
		return remote.Order{}, ErrPrintInProgress
	}
	b.printing[id] = true

	marked := o
	marked.IsPrinted = true
	b.orders[id] = marked
	return o, nil
}

// endPrint settles a print attempt. isPrinted is the flag the order should
// carry afterwards.
func (b *Board) endPrint(id remote.ID, isPrinted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.printing, id)
	if o, ok := b.orders[id]; ok {
		o.IsPrinted = isPrinted
		b.orders[id] = o
	}
}

func (b *Board) printState(id remote.ID, o remote.Order) string {
	switch {
	case b.printing[id]:
		return enum.PrintStatePrinting
	case o.IsPrinted:
		return enum.PrintStatePrinted
	default:
		return enum.PrintStateUnprinted
	}
}
