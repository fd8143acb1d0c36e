package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type OrderController struct {
	orderService service.OrderService
	lifecycle    service.OrderLifecycle
}

func NewOrderController(orderService service.OrderService, lifecycle service.OrderLifecycle) *OrderController {
	return &OrderController{
		orderService: orderService,
		lifecycle:    lifecycle,
	}
}

type CreateOrderRequest struct {
	AddressID     uint                `json:"address_id" binding:"required"`
	PaymentMethod model.PaymentMethod `json:"payment_method" binding:"required"`
}

// GetOrders returns user's orders, newest first
// GET /api/v1/orders
func (ctrl *OrderController) GetOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	orders, err := ctrl.orderService.GetUserOrders(c.Request.Context(), userID)
	if err != nil {
		log.Error("Failed to fetch orders", err, map[string]interface{}{
			"user_id": userID,
		})
		errors.RespondWithDomainError(c, err)
		return
	}

	errors.RespondOK(c, "", gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrderByID returns one of the user's orders
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrderByID(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrderByID(c.Request.Context(), userID, orderID)
	if err != nil {
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.RespondOK(c, "", order)
}

// CreateOrder checks out the whole cart
// POST /api/v1/orders
func (ctrl *OrderController) CreateOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := ctrl.orderService.CreateOrderFromCart(c.Request.Context(), userID, req.AddressID, req.PaymentMethod)
	if err != nil {
		log.Warn("Order creation failed", map[string]interface{}{
			"user_id":        userID,
			"address_id":     req.AddressID,
			"payment_method": req.PaymentMethod,
			"error":          err.Error(),
		})
		errors.RespondWithDomainError(c, err)
		return
	}

	log.Info("Order created", map[string]interface{}{
		"user_id":  userID,
		"order_id": result.Order.ID,
	})
	errors.Respond(c, http.StatusCreated, "주문이 접수되었습니다", result)
}

// CancelOrder cancels the user's own order, refunding a captured payment
// POST /api/v1/orders/:id/cancel
func (ctrl *OrderController) CancelOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.lifecycle.Cancel(c.Request.Context(), userID, orderID)
	if err != nil {
		log.Warn("Order cancellation failed", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
			"error":    err.Error(),
		})
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.RespondOK(c, "주문이 취소되었습니다", order)
}
