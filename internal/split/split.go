// Package split divides one order's total across several payers. A split
// is only confirmable when the allocations sum exactly to the total.
package split

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// MaxPayers is the most payers one bill can be split across.
const MaxPayers = 100

// ErrInvalidPayerCount is returned for an equal split across fewer than one
// or more than MaxPayers payers.
var ErrInvalidPayerCount = errors.New("number of payers must be between 1 and 100")

// UnbalancedError blocks confirmation of a split whose allocations do not
// sum to the order total.
type UnbalancedError struct {
	// Remaining is total minus allocated: positive when under-allocated,
	// negative when over-allocated.
	Remaining decimal.Decimal
}

func (e *UnbalancedError) Error() string {
	if e.Remaining.IsPositive() {
		return fmt.Sprintf("split is under-allocated by %s", e.Remaining.String())
	}
	return fmt.Sprintf("split is over-allocated by %s", e.Remaining.Neg().String())
}

// Allocation is one payer's share. A null Amount is an amount the user has
// not entered yet.
type Allocation struct {
	Person string              `json:"person"`
	Amount decimal.NullDecimal `json:"amount"`
	Method string              `json:"method,omitempty"`
}

// Share is a confirmed, non-negative amount owed by one payer.
type Share struct {
	Person string          `json:"person"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method,omitempty"`
}

// EqualSplit gives each of n payers total/n at full precision. The last
// payer absorbs the division remainder so the shares sum exactly to total.
func EqualSplit(total decimal.Decimal, n int) ([]Share, error) {
	if n < 1 || n > MaxPayers {
		return nil, ErrInvalidPayerCount
	}

	each := total.Div(decimal.NewFromInt(int64(n)))
	shares := make([]Share, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = Share{Person: payerName(i), Amount: each}
		allocated = allocated.Add(each)
	}
	shares[n-1] = Share{Person: payerName(n - 1), Amount: total.Sub(allocated)}
	return shares, nil
}

// Split is a custom split of one order total.
type Split struct {
	Total       decimal.Decimal `json:"total"`
	Allocations []Allocation    `json:"allocations"`
}

// Allocated returns the sum of the allocations, counting negative or
// missing amounts as zero.
func (s Split) Allocated() decimal.Decimal {
	sum := decimal.Zero
	for _, a := range s.Allocations {
		sum = sum.Add(effectiveAmount(a))
	}
	return sum
}

// Remaining returns total minus allocated.
func (s Split) Remaining() decimal.Decimal {
	return s.Total.Sub(s.Allocated())
}

// Confirmable reports whether the allocations sum exactly to the total.
func (s Split) Confirmable() bool {
	return s.Remaining().IsZero()
}

// Confirm returns the payers' shares, or an *UnbalancedError carrying the
// remainder when the split does not balance.
func (s Split) Confirm() ([]Share, error) {
	if len(s.Allocations) == 0 || len(s.Allocations) > MaxPayers {
		return nil, ErrInvalidPayerCount
	}
	if rem := s.Remaining(); !rem.IsZero() {
		return nil, &UnbalancedError{Remaining: rem}
	}

	shares := make([]Share, len(s.Allocations))
	for i, a := range s.Allocations {
		person := a.Person
		if person == "" {
			person = payerName(i)
		}
		shares[i] = Share{Person: person, Amount: effectiveAmount(a), Method: a.Method}
	}
	return shares, nil
}

func effectiveAmount(a Allocation) decimal.Decimal {
	if !a.Amount.Valid || a.Amount.Decimal.IsNegative() {
		return decimal.Zero
	}
	return a.Amount.Decimal
}

func payerName(i int) string {
	return "Person " + strconv.Itoa(i+1)
}
