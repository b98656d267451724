package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/pricing"
	"github.com/shopspring/decimal"
)

func init() {
	// The service reads and writes amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// ID is a server-assigned identity. The service sends numeric ids; ID
// accepts both numbers and strings.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*id = ID(b)
	return nil
}

func (id ID) String() string { return string(id) }

// Order is the service's representation of a persisted order.
type Order struct {
	ID            ID              `json:"id"`
	ReceiptNumber string          `json:"receiptNumber"`
	TableNumber   string          `json:"tableNumber"`
	OrderType     string          `json:"orderType,omitempty"`
	Status        string          `json:"status"`
	IsPrinted     bool            `json:"isPrinted"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	ServiceCharge decimal.Decimal `json:"serviceCharge"`
	Username      string          `json:"username"`
	CreatedAt     time.Time       `json:"createdAt"`
	OrderItems    []OrderItem     `json:"OrderItems"`
}

// OrderItem is one line of a persisted order, or of an order being sent.
type OrderItem struct {
	MenuItemID ID              `json:"menuItemId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Notes      string          `json:"notes,omitempty"`
}

// Pending reports whether the order is still open.
func (o Order) Pending() bool {
	return o.Status == enum.OrderStatusPending
}

// OrderList is one page of GET /orders.
type OrderList struct {
	Orders             []Order         `json:"orders"`
	TotalPages         int             `json:"totalPages"`
	TotalPendingAmount decimal.Decimal `json:"totalPendingAmount"`
	TotalPendingOrders int             `json:"totalPendingOrders"`
}

// ListOrdersParams filters GET /orders. Zero values are omitted.
type ListOrdersParams struct {
	Status      string
	TableNumber string
	Page        int
	Limit       int
}

// SaveOrderRequest is the body of POST /save-order.
type SaveOrderRequest struct {
	Username      string          `json:"username"`
	TableNumber   string          `json:"tableNumber"`
	OrderType     string          `json:"orderType"`
	Items         []OrderItem     `json:"items"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	ServiceCharge decimal.Decimal `json:"serviceCharge"`
	ReceiptNumber string          `json:"receiptNumber"`
}

// Settings are the business settings served at GET /.
type Settings struct {
	BusinessName         string          `json:"businessName"`
	BusinessType         string          `json:"businessType"`
	Currency             string          `json:"currency"`
	TaxPercentage        decimal.Decimal `json:"taxPercentage"`
	ServiceCharge        decimal.Decimal `json:"serviceCharge"`
	ServiceChargeEnabled bool            `json:"serviceChargeEnabled"`
	NumberOfTables       int             `json:"numberOfTables"`
}

// Rates returns the pricing rates configured in the settings.
func (s Settings) Rates() pricing.Rates {
	return pricing.Rates{
		TaxPercentage:           s.TaxPercentage,
		ServiceChargePercentage: s.ServiceCharge,
		ServiceChargeEnabled:    s.ServiceChargeEnabled,
	}
}

// UsesTables reports whether orders must be attached to a table.
func (s Settings) UsesTables() bool {
	return enum.BusinessUsesTables(s.BusinessType)
}

// Tables returns the physical table numbers "1".."NumberOfTables".
func (s Settings) Tables() []string {
	tables := make([]string, 0, s.NumberOfTables)
	for i := 1; i <= s.NumberOfTables; i++ {
		tables = append(tables, strconv.Itoa(i))
	}
	return tables
}

// MenuItem is an entry of GET /menu-items.
type MenuItem struct {
	ID        ID              `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
	Available bool            `json:"available"`
}

// MenuItemInput is the body for creating or updating a menu item.
type MenuItemInput struct {
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
	Available bool            `json:"available"`
}
