package service

import (
	"context"
	"fmt"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/saga"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// orderDraft is a validated cart, priced and ready to be placed.
type orderDraft struct {
	userID      uint
	cartID      uint
	cartItems   []model.CartItem
	address     *model.Address
	method      model.PaymentMethod
	orderNumber string
	items       []model.OrderItem
	stockLines  []StockLine
	total       float64
}

func (d *orderDraft) itemName() string {
	if len(d.items) == 0 {
		return ""
	}
	if len(d.items) == 1 {
		return d.items[0].ProductName
	}
	return fmt.Sprintf("%s 외 %d건", d.items[0].ProductName, len(d.items)-1)
}

func (d *orderDraft) totalQuantity() int {
	total := 0
	for _, item := range d.items {
		total += item.Quantity
	}
	return total
}

// placeOrder holds the state the create-order saga steps share.
type placeOrder struct {
	svc     *orderService
	draft   *orderDraft
	capture *CaptureResult
	order   *model.Order
}

func (p *placeOrder) steps() []saga.Step {
	return []saga.Step{
		saga.NewStep("reserve_inventory", p.reserve, p.release),
		saga.NewStep("request_payment", p.requestPayment, p.abandonPayment),
		saga.NewStep("persist_order", p.persist, nil),
	}
}

func (p *placeOrder) reserve(ctx context.Context) error {
	return p.svc.inventory.Reserve(ctx, p.draft.stockLines)
}

func (p *placeOrder) release(ctx context.Context) error {
	return p.svc.inventory.Release(ctx, p.draft.stockLines)
}

func (p *placeOrder) requestPayment(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, p.svc.paymentTimeout)
	defer cancel()

	result, err := p.svc.gateway.Capture(callCtx, CaptureRequest{
		OrderNumber: p.draft.orderNumber,
		UserID:      p.draft.userID,
		Amount:      p.draft.total,
		Method:      p.draft.method,
		ItemName:    p.draft.itemName(),
		Quantity:    p.draft.totalQuantity(),
	})
	if err != nil {
		return err
	}
	p.capture = result
	return nil
}

// abandonPayment has nothing to undo: an intent that is never approved
// expires at the processor, and no money moved yet.
func (p *placeOrder) abandonPayment(ctx context.Context) error {
	if p.capture != nil && p.capture.TID != "" {
		logger.Info("Abandoning unapproved payment intent", map[string]interface{}{
			"order_number": p.draft.orderNumber,
			"tid":          p.capture.TID,
		})
	}
	return nil
}

func (p *placeOrder) persist(ctx context.Context) error {
	order := &model.Order{
		OrderNumber:     p.draft.orderNumber,
		UserID:          p.draft.userID,
		AddressID:       p.draft.address.ID,
		ShippingAddress: p.draft.address.Snapshot(),
		TotalAmount:     p.draft.total,
		Status:          model.OrderStatusPending,
		PaymentMethod:   p.draft.method,
		PaymentStatus:   p.capture.PaymentStatus,
		PaymentTID:      p.capture.TID,
		OrderItems:      p.draft.items,
	}

	err := p.svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := p.svc.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		if err := p.svc.eventRepo.WithTx(tx).Append(ctx, &model.OrderEvent{
			OrderID:       order.ID,
			ToStatus:      order.Status,
			PaymentStatus: order.PaymentStatus,
			Actor:         model.ActorCustomer,
			Note:          "order placed",
		}); err != nil {
			return err
		}
		// A concurrent checkout of the same cart drains it first; this one
		// rolls back and the saga releases its reservation.
		drained, err := p.svc.cartRepo.WithTx(tx).DeleteItems(ctx, p.draft.cartID, p.draft.cartItems)
		if err != nil {
			return err
		}
		if !drained {
			return ErrCartChanged
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.order = order
	return nil
}
