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

// PaymentService finishes or abandons external payment intents opened at
// checkout.
type PaymentService interface {
	ApprovePayment(ctx context.Context, orderID uint, token string) (*model.Order, error)
	FailPayment(ctx context.Context, orderID uint) (*model.Order, error)
}

type PaymentServiceConfig struct {
	RequestTimeout time.Duration
}

type paymentService struct {
	orderRepo repository.OrderRepository
	eventRepo repository.OrderEventRepository
	gateway   PaymentGateway
	db        *gorm.DB
	timeout   time.Duration
}

func NewPaymentService(
	orderRepo repository.OrderRepository,
	eventRepo repository.OrderEventRepository,
	gateway PaymentGateway,
	db *gorm.DB,
	cfg PaymentServiceConfig,
) PaymentService {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultPaymentTimeout
	}
	return &paymentService{
		orderRepo: orderRepo,
		eventRepo: eventRepo,
		gateway:   gateway,
		db:        db,
		timeout:   timeout,
	}
}

func (s *paymentService) loadPending(ctx context.Context, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.PaymentStatus != model.PaymentStatusPendingIntent || order.Status == model.OrderStatusCancelled {
		logger.Warn("Payment is not awaiting approval", map[string]interface{}{
			"order_id":       orderID,
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
		})
		return nil, ErrPaymentNotPending
	}
	return order, nil
}

// recordPayment moves payment_status from pending_intent and writes the
// audit event. ok is false when the order left pending_intent meanwhile.
func (s *paymentService) recordPayment(ctx context.Context, order *model.Order, to model.PaymentStatus, updates map[string]interface{}, note string) (bool, error) {
	updates["payment_status"] = to
	won := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.orderRepo.WithTx(tx).CompareAndSetPayment(ctx, order.ID, model.PaymentStatusPendingIntent, updates)
		if err != nil || !ok {
			return err
		}
		won = true
		return s.eventRepo.WithTx(tx).Append(ctx, &model.OrderEvent{
			OrderID:       order.ID,
			FromStatus:    order.Status,
			ToStatus:      order.Status,
			PaymentStatus: to,
			Actor:         model.ActorCustomer,
			Note:          note,
		})
	})
	return won, err
}

func (s *paymentService) ApprovePayment(ctx context.Context, orderID uint, token string) (*model.Order, error) {
	logger.Info("Approving payment", map[string]interface{}{
		"order_id": orderID,
	})

	order, err := s.loadPending(ctx, orderID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	approval, err := s.gateway.Approve(callCtx, order, token)
	if err != nil {
		if errors.Is(err, ErrGatewayTimeout) || errors.Is(err, context.DeadlineExceeded) {
			logger.Error("Payment approval outcome unknown", err, map[string]interface{}{
				"order_id": orderID,
				"tid":      order.PaymentTID,
			})
			_ = s.orderRepo.FlagReconciliation(context.WithoutCancel(ctx), order.ID, "approval outcome unknown: "+err.Error())
			return nil, err
		}

		logger.Warn("Payment approval declined", map[string]interface{}{
			"order_id": orderID,
			"error":    err.Error(),
		})
		if _, recErr := s.recordPayment(ctx, order, model.PaymentStatusFailed, map[string]interface{}{}, "payment declined"); recErr != nil {
			logger.Error("Failed to record declined payment", recErr, map[string]interface{}{
				"order_id": orderID,
			})
		}
		return nil, ErrPaymentDeclined
	}

	won, err := s.recordPayment(ctx, order, model.PaymentStatusCompleted, map[string]interface{}{
		"payment_approved_at": approval.ApprovedAt,
	}, "payment approved")
	if err != nil {
		logger.Error("CRITICAL: payment approved but not recorded", err, map[string]interface{}{
			"order_id": orderID,
			"tid":      order.PaymentTID,
		})
		_ = s.orderRepo.FlagReconciliation(context.WithoutCancel(ctx), order.ID, "payment approved but not recorded")
		return nil, err
	}
	if !won {
		// the order was cancelled or expired while the customer was paying
		return nil, s.refundOrphan(ctx, order)
	}

	logger.Info("Payment approved successfully", map[string]interface{}{
		"order_id": orderID,
		"tid":      approval.TID,
	})
	return s.orderRepo.FindByID(ctx, order.ID)
}

// refundOrphan returns money captured for an order that no longer wants it.
func (s *paymentService) refundOrphan(ctx context.Context, order *model.Order) error {
	logger.Warn("Payment approved for an order that left pending_intent, refunding", map[string]interface{}{
		"order_id": order.ID,
		"tid":      order.PaymentTID,
	})

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.gateway.Refund(callCtx, order); err != nil {
		logger.Error("CRITICAL: failed to refund orphaned payment", err, map[string]interface{}{
			"order_id": order.ID,
			"tid":      order.PaymentTID,
		})
		_ = s.orderRepo.FlagReconciliation(context.WithoutCancel(ctx), order.ID, "orphaned payment refund failed: "+err.Error())
		return &RefundFailedError{OrderID: order.ID, Unknown: errors.Is(err, ErrGatewayTimeout), Err: err}
	}
	return ErrPaymentNotPending
}

// FailPayment records that the customer abandoned or failed the external
// payment. Stock stays reserved until the order is cancelled.
func (s *paymentService) FailPayment(ctx context.Context, orderID uint) (*model.Order, error) {
	order, err := s.loadPending(ctx, orderID)
	if err != nil {
		return nil, err
	}

	won, err := s.recordPayment(ctx, order, model.PaymentStatusFailed, map[string]interface{}{}, "payment failed")
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrPaymentNotPending
	}

	logger.Info("Payment marked as failed", map[string]interface{}{
		"order_id": orderID,
	})
	return s.orderRepo.FindByID(ctx, order.ID)
}
