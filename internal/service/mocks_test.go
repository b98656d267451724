package service

import (
	"context"
	"sync"

	"github.com/kiwari-pos/terminal/internal/receipt"
	"github.com/kiwari-pos/terminal/internal/remote"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

type mockOrderAPI struct {
	saveFn   func(ctx context.Context, body remote.SaveOrderRequest) (*remote.Order, error)
	updateFn func(ctx context.Context, id remote.ID, data remote.SaveOrderRequest) (*remote.Order, error)
	closeFn  func(ctx context.Context, id remote.ID, status string) (*remote.Order, error)
}

func (m *mockOrderAPI) SaveOrder(ctx context.Context, body remote.SaveOrderRequest) (*remote.Order, error) {
	return m.saveFn(ctx, body)
}
func (m *mockOrderAPI) UpdateOrder(ctx context.Context, id remote.ID, data remote.SaveOrderRequest) (*remote.Order, error) {
	return m.updateFn(ctx, id, data)
}
func (m *mockOrderAPI) CloseOrder(ctx context.Context, id remote.ID, status string) (*remote.Order, error) {
	return m.closeFn(ctx, id, status)
}

type mockSettings struct {
	settings remote.Settings
	err      error
}

func (m *mockSettings) Settings(ctx context.Context) (*remote.Settings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := m.settings
	return &s, nil
}

// restaurantSettings is a table-service business with 10% tax and a 5%
// service charge.
func restaurantSettings() *mockSettings {
	return &mockSettings{settings: remote.Settings{
		BusinessName:         "Warung Kiwari",
		BusinessType:         "restaurant",
		Currency:             "Rp",
		TaxPercentage:        decimal.NewFromInt(10),
		ServiceCharge:        decimal.NewFromInt(5),
		ServiceChargeEnabled: true,
		NumberOfTables:       8,
	}}
}

type mockLister struct {
	pendingFn func(ctx context.Context) (*remote.OrderList, error)
}

func (m *mockLister) PendingOrders(ctx context.Context) (*remote.OrderList, error) {
	return m.pendingFn(ctx)
}

func staticLister(orders ...remote.Order) *mockLister {
	return &mockLister{pendingFn: func(ctx context.Context) (*remote.OrderList, error) {
		return &remote.OrderList{Orders: orders}, nil
	}}
}

type mockMarker struct {
	markFn func(ctx context.Context, id remote.ID, isPrinted bool) error
}

func (m *mockMarker) MarkPrinted(ctx context.Context, id remote.ID, isPrinted bool) error {
	return m.markFn(ctx, id, isPrinted)
}

type mockPrinter struct {
	printFn func(ctx context.Context, doc receipt.Document) error
}

func (m *mockPrinter) Print(ctx context.Context, doc receipt.Document) error {
	return m.printFn(ctx, doc)
}

type event struct {
	topic, eventType string
	payload          any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (n *recordingNotifier) Notify(topic, eventType string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event{topic, eventType, payload})
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.eventType
	}
	return out
}
