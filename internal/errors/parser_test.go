package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "insufficient stock keeps the counts",
			err:         fmt.Errorf("cart item 3: %w", &service.InsufficientStockError{ProductID: 1, Available: 5, Requested: 10}),
			wantStatus:  http.StatusBadRequest,
			wantCode:    StockInsufficient,
			wantMessage: "Insufficient stock. Available: 5, Requested: 10",
		},
		{
			name:        "missing option type",
			err:         &service.OptionMismatchError{MissingTypes: []string{"Color"}},
			wantStatus:  http.StatusBadRequest,
			wantCode:    ProductOptionMismatch,
			wantMessage: "missing option selection: Color",
		},
		{
			name:        "invalid transition",
			err:         &service.InvalidTransitionError{From: model.OrderStatusShipped, To: model.OrderStatusPending},
			wantStatus:  http.StatusConflict,
			wantCode:    OrderInvalidTransition,
			wantMessage: "cannot transition order from shipped to pending",
		},
		{
			name:        "refund failed",
			err:         &service.RefundFailedError{OrderID: 1, Err: errors.New("card issuer down")},
			wantStatus:  http.StatusBadGateway,
			wantCode:    PaymentRefundFailed,
			wantMessage: "refund failed, the order was not cancelled",
		},
		{
			name:       "empty cart",
			err:        service.ErrEmptyCart,
			wantStatus: http.StatusBadRequest,
			wantCode:   CartEmpty,
		},
		{
			name:       "cart changed during checkout",
			err:        fmt.Errorf("persist_order: %w", service.ErrCartChanged),
			wantStatus: http.StatusConflict,
			wantCode:   CartChanged,
		},
		{
			name:       "order not found",
			err:        service.ErrOrderNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   OrderNotFound,
		},
		{
			name:       "reconciliation pending",
			err:        service.ErrReconciliationPending,
			wantStatus: http.StatusConflict,
			wantCode:   OrderReconciliationPending,
		},
		{
			name:       "gorm not found",
			err:        fmt.Errorf("load: %w", gorm.ErrRecordNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   ResourceNotFound,
		},
		{
			name:       "postgres duplicate key",
			err:        errors.New(`ERROR: duplicate key value violates unique constraint "idx_cart_line" (SQLSTATE 23505)`),
			wantStatus: http.StatusConflict,
			wantCode:   ResourceAlreadyExists,
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   InternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, info := ParseError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, info.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, info.Message)
			} else {
				assert.NotEmpty(t, info.Message)
			}
		})
	}
}
