package service

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/cart"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/pricing"
	"github.com/kiwari-pos/terminal/internal/remote"
	"go.uber.org/zap"
)

// OrderAPI is the part of the remote service that persists orders.
// Satisfied by *remote.Client.
type OrderAPI interface {
	SaveOrder(ctx context.Context, body remote.SaveOrderRequest) (*remote.Order, error)
	UpdateOrder(ctx context.Context, orderID remote.ID, data remote.SaveOrderRequest) (*remote.Order, error)
	CloseOrder(ctx context.Context, orderID remote.ID, status string) (*remote.Order, error)
}

// SettingsSource returns the current business settings.
// Satisfied by *remote.Client.
type SettingsSource interface {
	Settings(ctx context.Context) (*remote.Settings, error)
}

// OccupancyRecorder tracks open orders per table.
// Satisfied by *occupancy.Tracker.
type OccupancyRecorder interface {
	RecordOrderOpened(ctx context.Context, tableNumber string) error
	RecordOrderClosed(ctx context.Context, tableNumber string) error
}

// Notifier pushes events to connected UIs. Satisfied by *ws.Hub.
type Notifier interface {
	Notify(topic, eventType string, payload any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, any) {}

// NewReceiptNumber mints a six-digit receipt number.
func NewReceiptNumber() string {
	return strconv.Itoa(100000 + rand.Intn(900000))
}

// OrderOptions tunes the order service.
type OrderOptions struct {
	// ReissueReceiptOnUpdate mints a new receipt number every time an order
	// is edited. By default an edited order keeps its receipt number.
	ReissueReceiptOnUpdate bool
	// MintReceipt overrides NewReceiptNumber.
	MintReceipt func() string
}

// OrderService submits the cart to the service and closes orders.
type OrderService struct {
	cart     *cart.Cart
	orders   OrderAPI
	settings SettingsSource
	tables   OccupancyRecorder
	board    *Board
	notify   Notifier
	log      *zap.Logger

	reissue bool
	mint    func() string

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewOrderService creates an OrderService. notify may be nil.
func NewOrderService(c *cart.Cart, orders OrderAPI, settings SettingsSource, tables OccupancyRecorder, board *Board, notify Notifier, opts OrderOptions, log *zap.Logger) *OrderService {
	if notify == nil {
		notify = nopNotifier{}
	}
	mint := opts.MintReceipt
	if mint == nil {
		mint = NewReceiptNumber
	}
	return &OrderService{
		cart:     c,
		orders:   orders,
		settings: settings,
		tables:   tables,
		board:    board,
		notify:   notify,
		log:      log,
		reissue:  opts.ReissueReceiptOnUpdate,
		mint:     mint,
		inFlight: make(map[string]struct{}),
	}
}

// Submit persists the cart. A cart loaded for editing updates its order;
// any other cart creates a new one.
//
// Nothing local changes unless the service accepts the order. On success
// the cart is reset, unless it was already reset while the call was in
// flight.
func (s *OrderService) Submit(ctx context.Context, username string) (*remote.Order, error) {
	snap := s.cart.Snapshot()
	if snap.IsEmpty() {
		return nil, ErrEmptyCart
	}

	key := "cart:" + snap.SessionID.String()
	if !s.acquire(key) {
		return nil, ErrSubmissionInFlight
	}
	defer s.release(key)

	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	orderType := ResolveOrderType(snap.OrderType, snap.TableNumber)
	if settings.UsesTables() && snap.TableNumber == "" && orderType != enum.OrderTypeTakeaway {
		return nil, cart.ErrTableRequired
	}

	priced := pricing.Price(snap.PricingLines(), settings.Rates(), orderType)
	body := remote.SaveOrderRequest{
		Username:      username,
		TableNumber:   snap.TableNumber,
		OrderType:     orderType,
		Items:         orderItems(snap.Lines),
		TotalAmount:   priced.Total,
		Subtotal:      priced.Subtotal,
		Tax:           priced.Tax,
		ServiceCharge: priced.ServiceCharge,
	}

	if snap.Editing != nil {
		return s.update(ctx, snap, body)
	}
	return s.create(ctx, snap, body)
}

func (s *OrderService) create(ctx context.Context, snap cart.Snapshot, body remote.SaveOrderRequest) (*remote.Order, error) {
	body.ReceiptNumber = s.mint()

	order, err := s.orders.SaveOrder(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// The order exists remotely from here on, so local bookkeeping
	// failures are logged rather than returned.
	if err := s.tables.RecordOrderOpened(ctx, snap.TableNumber); err != nil {
		s.log.Warn("record table occupancy", zap.String("table", snap.TableNumber), zap.Error(err))
	}
	s.board.Upsert(*order)
	s.finish(snap.SessionID, order)

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("receipt_number", order.ReceiptNumber),
		zap.String("table", snap.TableNumber),
	)
	s.notify.Notify(enum.TopicOrders, enum.EventOrderSubmitted, order)
	return order, nil
}

func (s *OrderService) update(ctx context.Context, snap cart.Snapshot, body remote.SaveOrderRequest) (*remote.Order, error) {
	body.ReceiptNumber = snap.Editing.ReceiptNumber
	if s.reissue || body.ReceiptNumber == "" {
		body.ReceiptNumber = s.mint()
	}

	id := remote.ID(snap.Editing.OrderID)
	order, err := s.orders.UpdateOrder(ctx, id, body)
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", id, err)
	}

	s.board.Upsert(*order)
	s.finish(snap.SessionID, order)

	s.log.Info("order updated",
		zap.String("order_id", order.ID.String()),
		zap.String("receipt_number", order.ReceiptNumber),
	)
	s.notify.Notify(enum.TopicOrders, enum.EventOrderSubmitted, order)
	return order, nil
}

func (s *OrderService) finish(session uuid.UUID, order *remote.Order) {
	if !s.cart.ResetIfSession(session) {
		s.log.Debug("cart changed while order was in flight; leaving it untouched",
			zap.String("order_id", order.ID.String()))
	}
}

// BeginEdit loads a pending order into the cart. Printed orders cannot be
// edited.
func (s *OrderService) BeginEdit(ctx context.Context, id remote.ID) (cart.Snapshot, error) {
	order, ok := s.board.Get(id)
	if !ok {
		return cart.Snapshot{}, ErrOrderNotFound
	}
	if order.IsPrinted {
		return cart.Snapshot{}, ErrOrderPrinted
	}

	lines := make([]cart.Line, 0, len(order.OrderItems))
	for _, item := range order.OrderItems {
		lines = append(lines, cart.Line{
			ItemID:    item.MenuItemID.String(),
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  item.Quantity,
			Notes:     item.Notes,
		})
	}

	s.cart.LoadForEdit(cart.EditTarget{
		OrderID:       order.ID.String(),
		ReceiptNumber: order.ReceiptNumber,
		TableNumber:   order.TableNumber,
	}, ResolveOrderType(order.OrderType, order.TableNumber), lines)

	return s.cart.Snapshot(), nil
}

// Close completes a pending order and frees its table.
func (s *OrderService) Close(ctx context.Context, id remote.ID) (*remote.Order, error) {
	pending, ok := s.board.Get(id)
	if !ok {
		return nil, ErrOrderNotFound
	}

	key := "close:" + id.String()
	if !s.acquire(key) {
		return nil, ErrSubmissionInFlight
	}
	defer s.release(key)

	closed, err := s.orders.CloseOrder(ctx, id, enum.OrderStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("close order %s: %w", id, err)
	}

	if err := s.tables.RecordOrderClosed(ctx, pending.TableNumber); err != nil {
		s.log.Warn("release table occupancy", zap.String("table", pending.TableNumber), zap.Error(err))
	}
	s.board.Remove(id)

	s.log.Info("order closed", zap.String("order_id", id.String()))
	s.notify.Notify(enum.TopicOrders, enum.EventOrderClosed, closed)
	return closed, nil
}

func (s *OrderService) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *OrderService) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}

// ResolveOrderType defaults an unset order type from the table: an order
// with a table is eaten in, anything else is takeaway.
func ResolveOrderType(orderType, tableNumber string) string {
	if orderType != "" {
		return orderType
	}
	if tableNumber != "" {
		return enum.OrderTypeSitIn
	}
	return enum.OrderTypeTakeaway
}

func orderItems(lines []cart.Line) []remote.OrderItem {
	items := make([]remote.OrderItem, len(lines))
	for i, l := range lines {
		items[i] = remote.OrderItem{
			MenuItemID: remote.ID(l.ItemID),
			Name:       l.Name,
			Price:      l.UnitPrice,
			Quantity:   l.Quantity,
			Notes:      l.Notes,
		}
	}
	return items
}
