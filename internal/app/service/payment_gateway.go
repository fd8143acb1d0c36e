package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/payment/kakaopay"
)

// ErrGatewayTimeout means the processor did not answer in time and the
// outcome of the call is unknown.
var ErrGatewayTimeout = errors.New("payment gateway timed out")

type CaptureRequest struct {
	OrderNumber string
	UserID      uint
	Amount      float64
	Method      model.PaymentMethod
	ItemName    string
	Quantity    int
}

// CaptureResult describes the payment state right after order placement.
// ClientSecret is what the client needs to finish an external payment.
type CaptureResult struct {
	TID           string
	ClientSecret  string
	PaymentStatus model.PaymentStatus
}

type ApprovalResult struct {
	TID        string
	ApprovedAt time.Time
}

// PaymentGateway is the opaque payment processor seen by the order core.
type PaymentGateway interface {
	Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error)
	Approve(ctx context.Context, order *model.Order, token string) (*ApprovalResult, error)
	Refund(ctx context.Context, order *model.Order) error
}

// paymentRouter dispatches to the gateway registered for the order's method.
type paymentRouter struct {
	gateways map[model.PaymentMethod]PaymentGateway
}

// NewPaymentRouter returns a gateway that picks the implementation by
// payment method. Cash is always available.
func NewPaymentRouter(kakao *kakaopay.Client) PaymentGateway {
	gateways := map[model.PaymentMethod]PaymentGateway{
		model.PaymentMethodCash: cashGateway{},
	}
	if kakao != nil {
		gateways[model.PaymentMethodKakaoPay] = &kakaoPayGateway{client: kakao}
	}
	return &paymentRouter{gateways: gateways}
}

func (r *paymentRouter) gateway(method model.PaymentMethod) (PaymentGateway, error) {
	g, ok := r.gateways[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not configured", ErrInvalidPaymentMethod, method)
	}
	return g, nil
}

func (r *paymentRouter) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	g, err := r.gateway(req.Method)
	if err != nil {
		return nil, err
	}
	return g.Capture(ctx, req)
}

func (r *paymentRouter) Approve(ctx context.Context, order *model.Order, token string) (*ApprovalResult, error) {
	g, err := r.gateway(order.PaymentMethod)
	if err != nil {
		return nil, err
	}
	return g.Approve(ctx, order, token)
}

func (r *paymentRouter) Refund(ctx context.Context, order *model.Order) error {
	g, err := r.gateway(order.PaymentMethod)
	if err != nil {
		return err
	}
	return g.Refund(ctx, order)
}

// cashGateway settles on delivery, so there is nothing to call.
type cashGateway struct{}

func (cashGateway) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	return &CaptureResult{PaymentStatus: model.PaymentStatusPending}, nil
}

func (cashGateway) Approve(ctx context.Context, order *model.Order, token string) (*ApprovalResult, error) {
	return nil, ErrPaymentNotPending
}

func (cashGateway) Refund(ctx context.Context, order *model.Order) error {
	logger.Info("Cash refund recorded, settle offline", map[string]interface{}{
		"order_id":     order.ID,
		"total_amount": order.TotalAmount,
	})
	return nil
}

type kakaoPayGateway struct {
	client *kakaopay.Client
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount))
}

func mapKakaoError(err error) error {
	if errors.Is(err, kakaopay.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrGatewayTimeout, err)
	}
	return err
}

func (g *kakaoPayGateway) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	resp, err := g.client.Ready(ctx, kakaopay.ReadyRequest{
		PartnerOrderID: req.OrderNumber,
		PartnerUserID:  strconv.FormatUint(uint64(req.UserID), 10),
		ItemName:       req.ItemName,
		Quantity:       req.Quantity,
		TotalAmount:    toMinorUnits(req.Amount),
	})
	if err != nil {
		return nil, mapKakaoError(err)
	}
	return &CaptureResult{
		TID:           resp.TID,
		ClientSecret:  resp.NextRedirectPCURL,
		PaymentStatus: model.PaymentStatusPendingIntent,
	}, nil
}

func (g *kakaoPayGateway) Approve(ctx context.Context, order *model.Order, token string) (*ApprovalResult, error) {
	resp, err := g.client.Approve(ctx, kakaopay.ApproveRequest{
		TID:            order.PaymentTID,
		PartnerOrderID: order.OrderNumber,
		PartnerUserID:  strconv.FormatUint(uint64(order.UserID), 10),
		PgToken:        token,
	})
	if err != nil {
		return nil, mapKakaoError(err)
	}
	approvedAt := resp.ApprovedAt.Time
	if approvedAt.IsZero() {
		approvedAt = time.Now()
	}
	return &ApprovalResult{TID: resp.TID, ApprovedAt: approvedAt}, nil
}

func (g *kakaoPayGateway) Refund(ctx context.Context, order *model.Order) error {
	_, err := g.client.Cancel(ctx, kakaopay.CancelRequest{
		TID:          order.PaymentTID,
		CancelAmount: toMinorUnits(order.TotalAmount),
	})
	if err != nil {
		return mapKakaoError(err)
	}
	return nil
}
