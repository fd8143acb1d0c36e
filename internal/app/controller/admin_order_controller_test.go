package controller

import (
	"bytes"
	"net/http"
	"strconv"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func adminPath(id uint, suffix string) string {
	return "/admin/orders/" + strconv.FormatUint(uint64(id), 10) + suffix
}

type orderPage struct {
	Orders   []model.Order `json:"orders"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

func TestAdminOrderController_ListOrders(t *testing.T) {
	f := newOrderFixture(t)
	cash := f.checkout(t, 1, model.PaymentMethodCash)
	kakao := f.checkout(t, 1, model.PaymentMethodKakaoPay)
	admin := f.env.seedUser(t, "admin@example.com")

	w := f.env.do(t, http.MethodGet, "/admin/orders", admin.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page orderPage
	decode(t, w, &page)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)

	tests := []struct {
		query   string
		wantIDs []uint
	}{
		{"?payment_method=cash", []uint{cash.Order.ID}},
		{"?payment_status=pending_intent", []uint{kakao.Order.ID}},
		{"?status=pending", []uint{kakao.Order.ID, cash.Order.ID}},
		{"?status=shipped", nil},
		{"?user_id=" + strconv.FormatUint(uint64(admin.ID), 10), nil},
		{"?page=2&page_size=1", []uint{cash.Order.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := f.env.do(t, http.MethodGet, "/admin/orders"+tt.query, admin.ID, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var page orderPage
			decode(t, w, &page)
			var ids []uint
			for _, o := range page.Orders {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	for _, bad := range []string{"?status=lost", "?user_id=abc", "?from=yesterday", "?page=x"} {
		w := f.env.do(t, http.MethodGet, "/admin/orders"+bad, admin.ID, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestAdminOrderController_ExportOrders(t *testing.T) {
	f := newOrderFixture(t)
	result := f.checkout(t, 2, model.PaymentMethodCash)

	w := f.env.do(t, http.MethodGet, "/admin/orders/export", f.user.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment;")

	book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[1], result.Order.OrderNumber)
}

func TestAdminOrderController_UpdateStatus(t *testing.T) {
	f := newOrderFixture(t)
	order := f.checkout(t, 1, model.PaymentMethodCash).Order

	w := f.env.do(t, http.MethodPut, adminPath(order.ID, "/status"), f.user.ID, UpdateOrderStatusRequest{Status: "lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ValidationInvalidStatus, decode(t, w, nil).Error)

	w = f.env.do(t, http.MethodPut, adminPath(order.ID, "/status"), f.user.ID, UpdateOrderStatusRequest{Status: model.OrderStatusCompleted})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, errors.OrderInvalidTransition, decode(t, w, nil).Error)

	for _, status := range []model.OrderStatus{model.OrderStatusProcessing, model.OrderStatusShipped} {
		w = f.env.do(t, http.MethodPut, adminPath(order.ID, "/status"), f.user.ID, UpdateOrderStatusRequest{Status: status, Note: "ok"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var updated model.Order
		decode(t, w, &updated)
		assert.Equal(t, status, updated.Status)
	}

	w = f.env.do(t, http.MethodGet, adminPath(order.ID, "/events"), f.user.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events []model.OrderEvent
	decode(t, w, &events)
	require.Len(t, events, 3)
	assert.Equal(t, model.ActorAdmin, events[2].Actor)
	assert.Equal(t, model.OrderStatusShipped, events[2].ToStatus)

	w = f.env.do(t, http.MethodGet, adminPath(9999, ""), f.user.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminOrderController_CancelOrder(t *testing.T) {
	f := newOrderFixture(t)
	order := f.checkout(t, 2, model.PaymentMethodCash).Order

	w := f.env.do(t, http.MethodPost, adminPath(order.ID, "/cancel"), f.user.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 5, f.env.productStock(t, f.product.ID))

	w = f.env.do(t, http.MethodGet, adminPath(order.ID, "/events"), f.user.ID, nil)
	var events []model.OrderEvent
	decode(t, w, &events)
	require.Len(t, events, 2)
	assert.Equal(t, "cancelled by admin", events[1].Note)
}

func TestAdminOrderController_ResolveReconciliation(t *testing.T) {
	f := newOrderFixture(t)
	order := f.checkout(t, 1, model.PaymentMethodCash).Order

	w := f.env.do(t, http.MethodPost, adminPath(order.ID, "/reconcile"), f.user.ID,
		map[string]interface{}{"refunded": false, "note": "checked"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, errors.OrderNotAwaitingReconcile, decode(t, w, nil).Error)

	require.NoError(t, f.env.db.Model(&model.Order{}).Where("id = ?", order.ID).
		Update("needs_reconciliation", true).Error)

	w = f.env.do(t, http.MethodPost, adminPath(order.ID, "/cancel"), f.user.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, errors.OrderReconciliationPending, decode(t, w, nil).Error)

	w = f.env.do(t, http.MethodPost, adminPath(order.ID, "/reconcile"), f.user.ID, map[string]interface{}{"note": "checked"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.env.do(t, http.MethodPost, adminPath(order.ID, "/reconcile"), f.user.ID,
		map[string]interface{}{"refunded": true, "note": "refund visible in processor console"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resolved model.Order
	decode(t, w, &resolved)
	assert.False(t, resolved.NeedsReconciliation)
	assert.Equal(t, model.OrderStatusCancelled, resolved.Status)
	assert.Equal(t, model.PaymentStatusRefunded, resolved.PaymentStatus)
	assert.Equal(t, 5, f.env.productStock(t, f.product.ID))
}
