// Package receipt renders printable receipts and sends them to a printer.
// Amounts are rounded to two places here and nowhere else.
package receipt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kiwari-pos/terminal/internal/remote"
	"github.com/kiwari-pos/terminal/internal/split"
	"github.com/shopspring/decimal"
)

// Width is the character width of an 80mm thermal roll.
const Width = 42

// Document is a rendered receipt.
type Document struct {
	OrderID       string    `json:"orderId"`
	ReceiptNumber string    `json:"receiptNumber"`
	Kind          string    `json:"kind"`
	Body          string    `json:"body"`
	RenderedAt    time.Time `json:"renderedAt"`
}

const (
	KindReceipt = "receipt"
	KindSplit   = "split"
)

// Render produces the customer receipt for an order.
func Render(order remote.Order, settings remote.Settings, now time.Time) Document {
	var b strings.Builder
	header(&b, order, settings)

	for _, item := range order.OrderItems {
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		row(&b, fmt.Sprintf("%dx %s", item.Quantity, item.Name), money(settings.Currency, lineTotal))
		if item.Notes != "" {
			b.WriteString("   " + truncate(item.Notes, Width-3) + "\n")
		}
	}

	rule(&b)
	row(&b, "Subtotal", money(settings.Currency, order.Subtotal))
	row(&b, "Tax", money(settings.Currency, order.Tax))
	if !order.ServiceCharge.IsZero() {
		row(&b, "Service charge", money(settings.Currency, order.ServiceCharge))
	}
	row(&b, "TOTAL", money(settings.Currency, order.TotalAmount))
	rule(&b)
	center(&b, "Thank you!")

	return Document{
		OrderID:       order.ID.String(),
		ReceiptNumber: order.ReceiptNumber,
		Kind:          KindReceipt,
		Body:          b.String(),
		RenderedAt:    now,
	}
}

// RenderSplit produces a split receipt with one block per payer. The shares
// must come from a confirmed split.
func RenderSplit(order remote.Order, settings remote.Settings, shares []split.Share, now time.Time) Document {
	var b strings.Builder
	header(&b, order, settings)
	row(&b, "ORDER TOTAL", money(settings.Currency, order.TotalAmount))
	row(&b, "Split between", strconv.Itoa(len(shares)))
	rule(&b)

	for _, s := range shares {
		row(&b, s.Person, money(settings.Currency, s.Amount))
		if s.Method != "" {
			b.WriteString("   paid by " + s.Method + "\n")
		}
	}
	rule(&b)
	center(&b, "Thank you!")

	return Document{
		OrderID:       order.ID.String(),
		ReceiptNumber: order.ReceiptNumber,
		Kind:          KindSplit,
		Body:          b.String(),
		RenderedAt:    now,
	}
}

func header(b *strings.Builder, order remote.Order, settings remote.Settings) {
	if settings.BusinessName != "" {
		center(b, settings.BusinessName)
	}
	rule(b)
	row(b, "Receipt #", order.ReceiptNumber)
	if order.TableNumber != "" {
		row(b, "Table", order.TableNumber)
	}
	if order.Username != "" {
		row(b, "Served by", order.Username)
	}
	if !order.CreatedAt.IsZero() {
		row(b, "Date", order.CreatedAt.Format("02 Jan 2006 15:04"))
	}
	rule(b)
}

// money formats an amount for display, rounded half away from zero to
// two places.
func money(currency string, amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	if currency == "" {
		return s
	}
	return currency + " " + s
}

func row(b *strings.Builder, left, right string) {
	left = truncate(left, Width-len(right)-1)
	pad := Width - len(left) - len(right)
	if pad < 1 {
		pad = 1
	}
	b.WriteString(left + strings.Repeat(" ", pad) + right + "\n")
}

func center(b *strings.Builder, s string) {
	s = truncate(s, Width)
	pad := (Width - len(s)) / 2
	b.WriteString(strings.Repeat(" ", pad) + s + "\n")
}

func rule(b *strings.Builder) {
	b.WriteString(strings.Repeat("-", Width) + "\n")
}

func truncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(s) <= n {
		return s
	}
	return s[:n]
}
