package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

// PaymentController receives the customer's return from the external
// payment page.
type PaymentController struct {
	paymentService service.PaymentService
	orderService   service.OrderService
}

func NewPaymentController(paymentService service.PaymentService, orderService service.OrderService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		orderService:   orderService,
	}
}

type ApprovePaymentRequest struct {
	PGToken string `json:"pg_token" binding:"required"`
}

// ownedOrderID resolves :order_id and checks it belongs to the caller.
func (ctrl *PaymentController) ownedOrderID(c *gin.Context) (uint, bool) {
	userID, ok := requireUserID(c)
	if !ok {
		return 0, false
	}
	orderID, ok := parseIDParam(c, "order_id")
	if !ok {
		return 0, false
	}
	if _, err := ctrl.orderService.GetOrderByID(c.Request.Context(), userID, orderID); err != nil {
		errors.RespondWithDomainError(c, err)
		return 0, false
	}
	return orderID, true
}

// ApprovePayment completes a pending external payment
// POST /api/v1/payments/:order_id/approve
func (ctrl *PaymentController) ApprovePayment(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := ctrl.ownedOrderID(c)
	if !ok {
		return
	}

	var req ApprovePaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := ctrl.paymentService.ApprovePayment(c.Request.Context(), orderID, req.PGToken)
	if err != nil {
		log.Warn("Payment approval failed", map[string]interface{}{
			"order_id": orderID,
			"error":    err.Error(),
		})
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.RespondOK(c, "결제가 완료되었습니다", order)
}

// FailPayment records an abandoned or failed external payment
// POST /api/v1/payments/:order_id/fail
func (ctrl *PaymentController) FailPayment(c *gin.Context) {
	orderID, ok := ctrl.ownedOrderID(c)
	if !ok {
		return
	}

	order, err := ctrl.paymentService.FailPayment(c.Request.Context(), orderID)
	if err != nil {
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.RespondOK(c, "결제가 취소되었습니다", order)
}
