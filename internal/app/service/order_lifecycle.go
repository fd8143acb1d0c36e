package service

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

const defaultRefundTimeout = 15 * time.Second

// OrderLifecycle moves orders along the status graph in model/order_status.go
// and applies the payment side effects each move carries.
type OrderLifecycle interface {
	UpdateStatus(ctx context.Context, actor model.EventActor, orderID uint, to model.OrderStatus, note string) (*model.Order, error)
	Cancel(ctx context.Context, userID, orderID uint) (*model.Order, error)
	AdminCancel(ctx context.Context, orderID uint, reason string) (*model.Order, error)
	ExpireIntent(ctx context.Context, orderID uint) (*model.Order, error)
	ResolveReconciliation(ctx context.Context, orderID uint, refunded bool, note string) (*model.Order, error)
}

type OrderLifecycleConfig struct {
	RefundTimeout time.Duration
}

type orderLifecycle struct {
	orderRepo     repository.OrderRepository
	eventRepo     repository.OrderEventRepository
	inventory     InventoryService
	gateway       PaymentGateway
	db            *gorm.DB
	refundTimeout time.Duration
}

func NewOrderLifecycle(
	orderRepo repository.OrderRepository,
	eventRepo repository.OrderEventRepository,
	inventory InventoryService,
	gateway PaymentGateway,
	db *gorm.DB,
	cfg OrderLifecycleConfig,
) OrderLifecycle {
	timeout := cfg.RefundTimeout
	if timeout <= 0 {
		timeout = defaultRefundTimeout
	}
	return &orderLifecycle{
		orderRepo:     orderRepo,
		eventRepo:     eventRepo,
		inventory:     inventory,
		gateway:       gateway,
		db:            db,
		refundTimeout: timeout,
	}
}

func (l *orderLifecycle) load(ctx context.Context, orderID uint) (*model.Order, error) {
	order, err := l.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// lostRace builds the error for a compare-and-set that matched no row,
// reporting the status the winner left behind.
func (l *orderLifecycle) lostRace(ctx context.Context, orderID uint, to model.OrderStatus) error {
	current, err := l.load(ctx, orderID)
	if err != nil {
		return err
	}
	if current.NeedsReconciliation {
		return ErrReconciliationPending
	}
	return &InvalidTransitionError{From: current.Status, To: to}
}

// UpdateStatus applies a forward transition. Moving to cancelled is routed
// through the cancel path so refunds and stock release always happen.
func (l *orderLifecycle) UpdateStatus(ctx context.Context, actor model.EventActor, orderID uint, to model.OrderStatus, note string) (*model.Order, error) {
	logger.Info("Updating order status", map[string]interface{}{
		"order_id": orderID,
		"to":       to,
		"actor":    actor,
	})

	order, err := l.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if to == model.OrderStatusCancelled {
		return l.cancel(ctx, order, actor, note)
	}

	if !order.Status.CanTransitionTo(to) {
		logger.Warn("Rejected order status transition", map[string]interface{}{
			"order_id": orderID,
			"from":     order.Status,
			"to":       to,
		})
		return nil, &InvalidTransitionError{From: order.Status, To: to}
	}
	if order.NeedsReconciliation {
		return nil, ErrReconciliationPending
	}

	transition := model.Transition{From: order.Status, To: to}
	payment := model.PaymentStatusAfter(transition, order.PaymentStatus)
	updates := map[string]interface{}{}
	if payment != order.PaymentStatus {
		updates["payment_status"] = payment
		if payment == model.PaymentStatusCompleted {
			updates["payment_approved_at"] = time.Now()
		}
	}

	won := false
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := l.orderRepo.WithTx(tx).CompareAndSetStatus(ctx, order.ID, order.Status, to, updates)
		if err != nil || !ok {
			return err
		}
		won = true
		return l.eventRepo.WithTx(tx).Append(ctx, &model.OrderEvent{
			OrderID:       order.ID,
			FromStatus:    order.Status,
			ToStatus:      to,
			PaymentStatus: payment,
			Actor:         actor,
			Note:          note,
		})
	})
	if err != nil {
		logger.Error("Failed to update order status", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}
	if !won {
		return nil, l.lostRace(ctx, order.ID, to)
	}

	logger.Info("Order status updated", map[string]interface{}{
		"order_id":       orderID,
		"from":           order.Status,
		"to":             to,
		"payment_status": payment,
	})
	return l.load(ctx, order.ID)
}

func (l *orderLifecycle) Cancel(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	order, err := l.orderRepo.FindByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return l.cancel(ctx, order, model.ActorCustomer, "cancelled by customer")
}

func (l *orderLifecycle) AdminCancel(ctx context.Context, orderID uint, reason string) (*model.Order, error) {
	order, err := l.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return l.cancel(ctx, order, model.ActorAdmin, reason)
}

// ExpireIntent cancels an order whose external payment was never approved.
func (l *orderLifecycle) ExpireIntent(ctx context.Context, orderID uint) (*model.Order, error) {
	order, err := l.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != model.PaymentStatusPendingIntent && order.PaymentStatus != model.PaymentStatusFailed {
		return nil, ErrPaymentNotPending
	}
	return l.cancel(ctx, order, model.ActorSystem, "payment intent expired")
}

func stockLinesOf(order *model.Order) []StockLine {
	lines := make([]StockLine, 0, len(order.OrderItems))
	for i := range order.OrderItems {
		item := &order.OrderItems[i]
		lines = append(lines, StockLine{
			ProductID:      item.ProductID,
			OptionValueIDs: item.OptionValueIDs(),
			Quantity:       item.Quantity,
		})
	}
	return lines
}

const (
	maxCancelAttempts = 3
	refundClaimNote   = "refund in progress"
)

// cancel moves the order to cancelled. When a concurrent update moves the
// order to another status that can still be cancelled, the cancel is
// retried from that status.
func (l *orderLifecycle) cancel(ctx context.Context, order *model.Order, actor model.EventActor, note string) (*model.Order, error) {
	for attempt := 1; ; attempt++ {
		won, err := l.tryCancel(ctx, order, actor, note)
		if err != nil {
			return nil, err
		}
		if won {
			logger.Info("Order cancelled", map[string]interface{}{
				"order_id": order.ID,
				"from":     order.Status,
				"actor":    actor,
			})
			return l.load(ctx, order.ID)
		}

		logger.Warn("Order cancellation lost a concurrent update", map[string]interface{}{
			"order_id": order.ID,
			"status":   order.Status,
			"attempt":  attempt,
		})
		if attempt == maxCancelAttempts {
			return nil, l.lostRace(ctx, order.ID, model.OrderStatusCancelled)
		}
		if order, err = l.load(ctx, order.ID); err != nil {
			return nil, err
		}
	}
}

// tryCancel makes one cancellation attempt against the order as loaded.
// won is false when the order changed underneath it.
func (l *orderLifecycle) tryCancel(ctx context.Context, order *model.Order, actor model.EventActor, note string) (bool, error) {
	fields := map[string]interface{}{
		"order_id":       order.ID,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
		"actor":          actor,
	}

	if !order.Status.CanTransitionTo(model.OrderStatusCancelled) {
		logger.Warn("Rejected order cancellation", fields)
		return false, &InvalidTransitionError{From: order.Status, To: model.OrderStatusCancelled}
	}
	if order.NeedsReconciliation {
		logger.Warn("Rejected cancellation of order awaiting reconciliation", fields)
		return false, ErrReconciliationPending
	}

	transition := model.Transition{From: order.Status, To: model.OrderStatusCancelled}
	effect, hasEffect := model.PaymentEffectFor(transition, order.PaymentStatus)
	if hasEffect && effect.RequiresRefund {
		return l.cancelWithRefund(ctx, order, effect, actor, note)
	}

	updates := map[string]interface{}{}
	if hasEffect {
		updates["payment_status"] = effect.Then
	}
	won, err := l.commitCancel(ctx, order, updates, false, actor, note)
	if err != nil {
		logger.Error("Failed to cancel order", err, fields)
	}
	return won, err
}

// cancelWithRefund holds the order before the refund so that no other
// status change, and no second refund, can start while money is moving. A
// declined refund releases the hold; any other failure leaves it in place
// as the reconciliation flag.
func (l *orderLifecycle) cancelWithRefund(ctx context.Context, order *model.Order, effect model.PaymentEffect, actor model.EventActor, note string) (bool, error) {
	claimed, err := l.orderRepo.ClaimForRefund(ctx, order.ID, order.Status, refundClaimNote)
	if err != nil || !claimed {
		return false, err
	}

	if err := l.refund(ctx, order); err != nil {
		var refundErr *RefundFailedError
		if errors.As(err, &refundErr) && !refundErr.Unknown {
			released, relErr := l.orderRepo.CompareAndSetFlagged(context.WithoutCancel(ctx), order.ID, order.Status, order.Status, map[string]interface{}{
				"needs_reconciliation": false,
				"reconciliation_note":  "",
			})
			if relErr != nil || !released {
				logger.Error("CRITICAL: failed to release refund hold", relErr, map[string]interface{}{
					"order_id": order.ID,
				})
			}
		}
		return false, err
	}

	won, err := l.commitCancel(ctx, order, map[string]interface{}{
		"payment_status":       effect.Then,
		"refunded_at":          time.Now(),
		"needs_reconciliation": false,
		"reconciliation_note":  "",
	}, true, actor, note)
	if err != nil || !won {
		// money went back but the order still looks paid
		logger.Error("CRITICAL: refunded order was not cancelled", err, map[string]interface{}{
			"order_id": order.ID,
		})
		if flagErr := l.orderRepo.FlagReconciliation(context.WithoutCancel(ctx), order.ID, "refunded but cancellation did not commit"); flagErr != nil {
			logger.Error("CRITICAL: failed to flag order for reconciliation", flagErr, map[string]interface{}{
				"order_id": order.ID,
			})
		}
		if err == nil {
			err = ErrReconciliationPending
		}
		return false, err
	}
	return true, nil
}

// commitCancel flips the status, applies the payment updates, releases
// exactly the reserved stock and records the event in one transaction.
func (l *orderLifecycle) commitCancel(ctx context.Context, order *model.Order, updates map[string]interface{}, held bool, actor model.EventActor, note string) (bool, error) {
	transition := model.Transition{From: order.Status, To: model.OrderStatusCancelled}
	won := false
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := l.orderRepo.WithTx(tx)
		cas := orders.CompareAndSetStatus
		if held {
			cas = orders.CompareAndSetFlagged
		}
		ok, err := cas(ctx, order.ID, order.Status, model.OrderStatusCancelled, updates)
		if err != nil || !ok {
			return err
		}
		won = true
		if err := l.inventory.ReleaseTx(ctx, tx, stockLinesOf(order)); err != nil {
			return err
		}
		return l.eventRepo.WithTx(tx).Append(ctx, &model.OrderEvent{
			OrderID:       order.ID,
			FromStatus:    order.Status,
			ToStatus:      model.OrderStatusCancelled,
			PaymentStatus: model.PaymentStatusAfter(transition, order.PaymentStatus),
			Actor:         actor,
			Note:          note,
		})
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

// refund calls the processor under a bounded timeout. When the outcome is
// unknown the order is flagged for an operator and left otherwise untouched.
func (l *orderLifecycle) refund(ctx context.Context, order *model.Order) error {
	refundCtx, cancel := context.WithTimeout(ctx, l.refundTimeout)
	defer cancel()

	err := l.gateway.Refund(refundCtx, order)
	if err == nil {
		logger.Info("Payment refunded", map[string]interface{}{
			"order_id":     order.ID,
			"total_amount": order.TotalAmount,
		})
		return nil
	}

	unknown := errors.Is(err, ErrGatewayTimeout) || errors.Is(err, context.DeadlineExceeded)
	logger.Error("Refund failed", err, map[string]interface{}{
		"order_id":       order.ID,
		"payment_tid":    order.PaymentTID,
		"total_amount":   order.TotalAmount,
		"outcome_known":  !unknown,
		"payment_method": order.PaymentMethod,
	})

	if unknown {
		if flagErr := l.orderRepo.FlagReconciliation(context.WithoutCancel(ctx), order.ID, "refund outcome unknown: "+err.Error()); flagErr != nil {
			logger.Error("CRITICAL: failed to flag order for reconciliation", flagErr, map[string]interface{}{
				"order_id": order.ID,
			})
		}
	}
	return &RefundFailedError{OrderID: order.ID, Unknown: unknown, Err: err}
}

// ResolveReconciliation clears the operator flag. refunded states whether the
// processor shows the money returned; if so the cancellation is completed.
func (l *orderLifecycle) ResolveReconciliation(ctx context.Context, orderID uint, refunded bool, note string) (*model.Order, error) {
	order, err := l.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.NeedsReconciliation {
		return nil, ErrNotAwaitingReconcile
	}

	logger.Info("Resolving order reconciliation", map[string]interface{}{
		"order_id": orderID,
		"refunded": refunded,
	})

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := l.orderRepo.WithTx(tx)
		event := &model.OrderEvent{
			OrderID:       order.ID,
			FromStatus:    order.Status,
			ToStatus:      order.Status,
			PaymentStatus: order.PaymentStatus,
			Actor:         model.ActorAdmin,
			Note:          "reconciled: " + note,
		}
		updates := map[string]interface{}{
			"needs_reconciliation": false,
			"reconciliation_note":  note,
		}

		if refunded && order.Status.CanTransitionTo(model.OrderStatusCancelled) {
			updates["payment_status"] = model.PaymentStatusRefunded
			updates["refunded_at"] = time.Now()
			ok, err := orders.CompareAndSetFlagged(ctx, order.ID, order.Status, model.OrderStatusCancelled, updates)
			if err != nil {
				return err
			}
			if !ok {
				return &InvalidTransitionError{From: order.Status, To: model.OrderStatusCancelled}
			}
			if err := l.inventory.ReleaseTx(ctx, tx, stockLinesOf(order)); err != nil {
				return err
			}
			event.ToStatus = model.OrderStatusCancelled
			event.PaymentStatus = model.PaymentStatusRefunded
		} else {
			if refunded {
				updates["payment_status"] = model.PaymentStatusRefunded
				event.PaymentStatus = model.PaymentStatusRefunded
			}
			ok, err := orders.CompareAndSetFlagged(ctx, order.ID, order.Status, order.Status, updates)
			if err != nil {
				return err
			}
			if !ok {
				return &InvalidTransitionError{From: order.Status, To: order.Status}
			}
		}
		return l.eventRepo.WithTx(tx).Append(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return l.load(ctx, order.ID)
}
