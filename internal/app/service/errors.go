package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
)

var (
	ErrProductNotFound        = errors.New("product not found")
	ErrProductDeleted         = errors.New("product is no longer available")
	ErrInvalidOptionSelection = errors.New("invalid option selection")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrCartItemNotFound       = errors.New("cart item not found")
	ErrCartChanged            = errors.New("cart changed concurrently, review it and retry")
	ErrInvalidQuantity        = errors.New("quantity must be between 1 and 999")
	ErrOrderNotFound          = errors.New("order not found")
	ErrAddressNotFound        = errors.New("address not found")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")
	ErrInvalidTransition      = errors.New("invalid order status transition")
	ErrRefundFailed           = errors.New("refund failed, the order was not cancelled")
	ErrPaymentNotPending      = errors.New("payment is not awaiting approval")
	ErrReconciliationPending  = errors.New("order is awaiting manual reconciliation")
	ErrNotAwaitingReconcile   = errors.New("order is not awaiting reconciliation")
	ErrPaymentDeclined        = errors.New("payment was declined by the processor")
)

const (
	MinItemQuantity = 1
	MaxItemQuantity = 999
)

// InsufficientStockError names the counter that could not cover a request.
// OptionValueID is zero when the product counter itself is short.
type InsufficientStockError struct {
	ProductID     uint
	OptionValueID uint
	Available     int
	Requested     int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock. Available: %d, Requested: %d", e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// OptionMismatchError explains why an option selection does not fit the
// product's option types.
type OptionMismatchError struct {
	ProductID    uint
	MissingTypes []string
	Reason       string
}

func (e *OptionMismatchError) Error() string {
	if len(e.MissingTypes) > 0 {
		return fmt.Sprintf("missing option selection: %s", strings.Join(e.MissingTypes, ", "))
	}
	if e.Reason != "" {
		return fmt.Sprintf("invalid option selection: %s", e.Reason)
	}
	return ErrInvalidOptionSelection.Error()
}

func (e *OptionMismatchError) Unwrap() error {
	return ErrInvalidOptionSelection
}

type InvalidTransitionError struct {
	From model.OrderStatus
	To   model.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// RefundFailedError is returned when the processor did not confirm a refund.
// Unknown is set when the outcome could not be determined (timeout), in
// which case the order is flagged for reconciliation.
type RefundFailedError struct {
	OrderID uint
	Unknown bool
	Err     error
}

func (e *RefundFailedError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("%s: refund outcome unknown: %v", ErrRefundFailed.Error(), e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrRefundFailed.Error(), e.Err)
}

func (e *RefundFailedError) Unwrap() []error {
	return []error{ErrRefundFailed, e.Err}
}
