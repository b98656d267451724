// Package cart holds the order currently being assembled at the terminal.
//
// Exactly one Cart exists per terminal session. It is only mutated through
// its methods; callers read it through Snapshot.
package cart

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/pricing"
	"github.com/shopspring/decimal"
)

// Errors returned by the cart.
var (
	ErrTableRequired    = errors.New("select a table before adding items")
	ErrLineNotFound     = errors.New("order line not found")
	ErrInvalidOrderType = errors.New("invalid order type")
	ErrInvalidItem      = errors.New("menu item id is required")
)

// MenuItem is the part of a menu item the cart copies into a line.
type MenuItem struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// Line is one menu item and its quantity. Quantity is always >= 1.
type Line struct {
	ItemID    string          `json:"itemId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Notes     string          `json:"notes,omitempty"`
}

// EditTarget identifies the persisted order a cart is editing.
type EditTarget struct {
	OrderID       string `json:"orderId"`
	ReceiptNumber string `json:"receiptNumber"`
	TableNumber   string `json:"tableNumber"`
}

// Snapshot is an immutable copy of the cart's state.
type Snapshot struct {
	// SessionID changes on every reset, so a response that belongs to an
	// earlier cart can be recognised.
	SessionID   uuid.UUID   `json:"sessionId"`
	TableNumber string      `json:"tableNumber"`
	OrderType   string      `json:"orderType"`
	Lines       []Line      `json:"lines"`
	Editing     *EditTarget `json:"editing,omitempty"`
}

// PricingLines converts the snapshot lines for the price calculator.
func (s Snapshot) PricingLines() []pricing.Line {
	out := make([]pricing.Line, len(s.Lines))
	for i, l := range s.Lines {
		out[i] = pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	return out
}

// IsEmpty reports whether the snapshot has no lines.
func (s Snapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Cart is the mutable, process-lifetime order under construction.
type Cart struct {
	mu          sync.Mutex
	sessionID   uuid.UUID
	tableNumber string
	orderType   string
	lines       []Line
	editing     *EditTarget
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{sessionID: uuid.New()}
}

// SelectTable sets the table and order type. An empty orderType leaves the
// current one unchanged.
func (c *Cart) SelectTable(tableNumber, orderType string) error {
	if orderType != "" && !validOrderType(orderType) {
		return ErrInvalidOrderType
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableNumber = tableNumber
	if orderType != "" {
		c.orderType = orderType
	}
	return nil
}

// AddLine adds one unit of item. If a line for the same item exists its
// quantity is incremented; otherwise a new line with quantity 1 is appended.
// When requireTable is set and no table is selected the cart is left
// untouched and ErrTableRequired is returned, so the UI can redirect to
// table selection.
func (c *Cart) AddLine(item MenuItem, requireTable bool) error {
	if item.ID == "" {
		return ErrInvalidItem
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if requireTable && c.tableNumber == "" {
		return ErrTableRequired
	}
	for i := range c.lines {
		if c.lines[i].ItemID == item.ID {
			c.lines[i].Quantity++
			return nil
		}
	}
	c.lines = append(c.lines, Line{
		ItemID:    item.ID,
		Name:      item.Name,
		UnitPrice: item.Price,
		Quantity:  1,
	})
	return nil
}

// IncreaseQuantity adds one unit to the line at index.
func (c *Cart) IncreaseQuantity(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.validIndex(index) {
		return ErrLineNotFound
	}
	c.lines[index].Quantity++
	return nil
}

// DecreaseQuantity removes one unit from the line at index, stopping at 1.
// Use RemoveLine to drop the line.
func (c *Cart) DecreaseQuantity(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.validIndex(index) {
		return ErrLineNotFound
	}
	if c.lines[index].Quantity > 1 {
		c.lines[index].Quantity--
	}
	return nil
}

// SetNotes replaces the kitchen notes on the line at index.
func (c *Cart) SetNotes(index int, notes string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.validIndex(index) {
		return ErrLineNotFound
	}
	c.lines[index].Notes = notes
	return nil
}

// RemoveLine drops the line at index.
func (c *Cart) RemoveLine(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.validIndex(index) {
		return ErrLineNotFound
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return nil
}

// Reset clears lines, table, order type and edit target, and starts a new
// cart session.
func (c *Cart) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// ResetIfSession resets the cart only if it still belongs to sessionID and
// reports whether it did.
func (c *Cart) ResetIfSession(sessionID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID != sessionID {
		return false
	}
	c.reset()
	return true
}

// LoadForEdit replaces the cart contents with a persisted order's lines.
func (c *Cart) LoadForEdit(target EditTarget, orderType string, lines []Line) {
	cp := make([]Line, len(lines))
	copy(cp, lines)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	c.tableNumber = target.TableNumber
	c.orderType = orderType
	c.lines = cp
	c.editing = &target
}

// Snapshot returns a copy of the cart's state.
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := make([]Line, len(c.lines))
	copy(lines, c.lines)
	var editing *EditTarget
	if c.editing != nil {
		e := *c.editing
		editing = &e
	}
	return Snapshot{
		SessionID:   c.sessionID,
		TableNumber: c.tableNumber,
		OrderType:   c.orderType,
		Lines:       lines,
		Editing:     editing,
	}
}

func (c *Cart) reset() {
	c.sessionID = uuid.New()
	c.tableNumber = ""
	c.orderType = ""
	c.lines = nil
	c.editing = nil
}

func (c *Cart) validIndex(i int) bool {
	return i >= 0 && i < len(c.lines)
}

func validOrderType(s string) bool {
	switch s {
	case enum.OrderTypeSitIn, enum.OrderTypeTakeaway:
		return true
	}
	return false
}
