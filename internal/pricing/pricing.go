// Package pricing derives order totals from order lines and the business's
// configured rates. It performs no rounding: amounts keep full precision and
// only the display layer rounds.
package pricing

import (
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/shopspring/decimal"
)

// Line is the part of an order line that affects price.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Rates are the business-configured percentages, stored as whole numbers
// (10 means 10%).
type Rates struct {
	TaxPercentage           decimal.Decimal
	ServiceChargePercentage decimal.Decimal
	ServiceChargeEnabled    bool
}

// PricedOrder is derived on demand and never stored.
type PricedOrder struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	ServiceCharge decimal.Decimal `json:"serviceCharge"`
	Total         decimal.Decimal `json:"total"`
}

// ComputeSubtotal returns Σ(unitPrice × quantity).
func ComputeSubtotal(lines []Line) decimal.Decimal {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return subtotal
}

// ComputeTax returns subtotal × taxPct / 100.
func ComputeTax(subtotal, taxPct decimal.Decimal) decimal.Decimal {
	return percentOf(subtotal, taxPct)
}

// ComputeServiceCharge returns subtotal × pct / 100 for sit-in orders and
// zero for every other order type.
func ComputeServiceCharge(subtotal, serviceChargePct decimal.Decimal, orderType string) decimal.Decimal {
	if orderType != enum.OrderTypeSitIn {
		return decimal.Zero
	}
	return percentOf(subtotal, serviceChargePct)
}

// ComputeTotal returns subtotal + tax + serviceCharge.
func ComputeTotal(subtotal, tax, serviceCharge decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax).Add(serviceCharge)
}

// Price computes every component of a PricedOrder. A disabled service
// charge is treated as a zero percentage.
func Price(lines []Line, rates Rates, orderType string) PricedOrder {
	subtotal := ComputeSubtotal(lines)
	tax := ComputeTax(subtotal, rates.TaxPercentage)

	scPct := decimal.Zero
	if rates.ServiceChargeEnabled {
		scPct = rates.ServiceChargePercentage
	}
	sc := ComputeServiceCharge(subtotal, scPct, orderType)

	return PricedOrder{
		Subtotal:      subtotal,
		Tax:           tax,
		ServiceCharge: sc,
		Total:         ComputeTotal(subtotal, tax, sc),
	}
}

// percentOf shifts by two decimal places instead of dividing so the result
// is exact.
func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Shift(-2)
}
