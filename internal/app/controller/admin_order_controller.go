package controller

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/report"
)

// maxExportRows caps a single xlsx export.
const maxExportRows = 10000

type AdminOrderController struct {
	orderService service.OrderService
	lifecycle    service.OrderLifecycle
}

func NewAdminOrderController(orderService service.OrderService, lifecycle service.OrderLifecycle) *AdminOrderController {
	return &AdminOrderController{
		orderService: orderService,
		lifecycle:    lifecycle,
	}
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
	Note   string            `json:"note"`
}

type AdminCancelRequest struct {
	Reason string `json:"reason"`
}

type ResolveReconciliationRequest struct {
	Refunded *bool  `json:"refunded" binding:"required"`
	Note     string `json:"note" binding:"required"`
}

// parseOrderFilter reads list filters from the query string.
func parseOrderFilter(c *gin.Context) (repository.OrderFilter, error) {
	filter := repository.OrderFilter{
		Status:        model.OrderStatus(c.Query("status")),
		PaymentStatus: model.PaymentStatus(c.Query("payment_status")),
		PaymentMethod: model.PaymentMethod(c.Query("payment_method")),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return filter, fmt.Errorf("unknown status %q", filter.Status)
	}

	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return filter, fmt.Errorf("user_id: %w", err)
		}
		filter.UserID = uint(id)
	}
	for name, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		t, err := parseTimeParam(raw)
		if err != nil {
			return filter, fmt.Errorf("%s: %w", name, err)
		}
		*dst = &t
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return filter, fmt.Errorf("page: %w", err)
		}
		filter.Page = page
	}
	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return filter, fmt.Errorf("page_size: %w", err)
		}
		filter.PageSize = size
	}
	return filter, nil
}

// parseTimeParam accepts RFC3339 or a bare date.
func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (ctrl *AdminOrderController) filterOrAbort(c *gin.Context) (repository.OrderFilter, bool) {
	filter, err := parseOrderFilter(c)
	if err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid order filter", map[string]interface{}{
			"query": c.Request.URL.RawQuery,
			"error": err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidInput, "검색 조건이 올바르지 않습니다")
		return filter, false
	}
	return filter, true
}

// ListOrders returns a filtered page of all orders
// GET /api/v1/admin/orders
func (ctrl *AdminOrderController) ListOrders(c *gin.Context) {
	filter, ok := ctrl.filterOrAbort(c)
	if !ok {
		return
	}

	orders, total, err := ctrl.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		errors.RespondWithDomainError(c, err)
		return
	}

	filter.Normalize()
	errors.RespondOK(c, "", gin.H{
		"orders":    orders,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

// ExportOrders streams the filtered orders as an xlsx workbook
// GET /api/v1/admin/orders/export
func (ctrl *AdminOrderController) ExportOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter, ok := ctrl.filterOrAbort(c)
	if !ok {
		return
	}

	var all []model.Order
	filter.PageSize = repository.MaxPageSize
	for filter.Page = 1; len(all) < maxExportRows; filter.Page++ {
		orders, total, err := ctrl.orderService.ListOrders(c.Request.Context(), filter)
		if err != nil {
			errors.RespondWithDomainError(c, err)
			return
		}
		all = append(all, orders...)
		if len(orders) == 0 || int64(len(all)) >= total {
			break
		}
	}

	var buf bytes.Buffer
	if err := report.WriteOrdersXLSX(&buf, all); err != nil {
		log.Error("Failed to render order export", err)
		errors.InternalError(c, "")
		return
	}

	log.Info("Orders exported", map[string]interface{}{
		"count": len(all),
	})
	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// GetOrder returns any order
// GET /api/v1/admin/orders/:id
func (ctrl *AdminOrderController) GetOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.RespondOK(c, "", order)
}

// ListEvents returns the order's audit trail
// GET /api/v1/admin/orders/:id/events
func (ctrl *AdminOrderController) ListEvents(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	events, err := ctrl.orderService.ListEvents(c.Request.Context(), orderID)
	if err != nil {
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.RespondOK(c, "", events)
}

// UpdateStatus moves an order along the status graph
// PUT /api/v1/admin/orders/:id/status
func (ctrl *AdminOrderController) UpdateStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	if !req.Status.IsValid() {
		errors.BadRequest(c, errors.ValidationInvalidStatus, "알 수 없는 주문 상태입니다")
		return
	}

	order, err := ctrl.lifecycle.UpdateStatus(c.Request.Context(), model.ActorAdmin, orderID, req.Status, req.Note)
	if err != nil {
		log.Warn("Order status update failed", map[string]interface{}{
			"order_id": orderID,
			"to":       req.Status,
			"error":    err.Error(),
		})
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.RespondOK(c, "주문 상태가 변경되었습니다", order)
}

// CancelOrder cancels any non-terminal order
// POST /api/v1/admin/orders/:id/cancel
func (ctrl *AdminOrderController) CancelOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AdminCancelRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = "cancelled by admin"
	}

	order, err := ctrl.lifecycle.AdminCancel(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.RespondOK(c, "주문이 취소되었습니다", order)
}

// ResolveReconciliation clears the reconciliation flag after an operator
// checked the processor
// POST /api/v1/admin/orders/:id/reconcile
func (ctrl *AdminOrderController) ResolveReconciliation(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ResolveReconciliationRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := ctrl.lifecycle.ResolveReconciliation(c.Request.Context(), orderID, *req.Refunded, req.Note)
	if err != nil {
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.RespondOK(c, "정산 처리되었습니다", order)
}
