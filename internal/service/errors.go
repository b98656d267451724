package service

import (
	"errors"
	"fmt"

	"github.com/kiwari-pos/terminal/internal/cart"
	"github.com/kiwari-pos/terminal/internal/split"
)

// Errors returned by the order services.
var (
	ErrEmptyCart          = errors.New("cart has no items")
	ErrSubmissionInFlight = errors.New("order submission already in progress")
	ErrOrderNotFound      = errors.New("order not found in pending orders")
	ErrOrderPrinted       = errors.New("order has been printed and can no longer be edited")
	ErrPrintInProgress    = errors.New("order is already being printed")
)

// PrintStatusError reports that a receipt was physically printed but the
// service could not record it. The paper receipt exists even though the
// order still shows as unprinted.
type PrintStatusError struct {
	OrderID string
	Err     error
}

func (e *PrintStatusError) Error() string {
	return fmt.Sprintf("receipt for order %s was printed but its print status could not be updated: %v", e.OrderID, e.Err)
}

func (e *PrintStatusError) Unwrap() error { return e.Err }

var validationErrors = []error{
	ErrEmptyCart,
	ErrOrderPrinted,
	cart.ErrTableRequired,
	cart.ErrLineNotFound,
	cart.ErrInvalidOrderType,
	cart.ErrInvalidItem,
	split.ErrInvalidPayerCount,
}

// IsValidationError reports whether err was raised locally, before any
// call to the service.
func IsValidationError(err error) bool {
	for _, e := range validationErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	var ue *split.UnbalancedError
	return errors.As(err, &ue)
}

// IsConflict reports whether err means the operation collided with one
// already running for the same entity.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSubmissionInFlight) || errors.Is(err, ErrPrintInProgress)
}
