package service

import (
	"context"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentService_ApprovePayment(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	order := f.order(t, 1, model.PaymentMethodKakaoPay)

	paid, err := f.env.payments.ApprovePayment(ctx, order.ID, "pg-token")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, paid.PaymentStatus)
	assert.Equal(t, model.OrderStatusPending, paid.Status)
	assert.NotNil(t, paid.PaymentApprovedAt)
	assert.Equal(t, []uint{order.ID}, f.env.gateway.approvals)

	// approving twice is rejected before reaching the processor
	_, err = f.env.payments.ApprovePayment(ctx, order.ID, "pg-token")
	assert.ErrorIs(t, err, ErrPaymentNotPending)
	assert.Len(t, f.env.gateway.approvals, 1)

	events, err := f.env.eventRepo.FindByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.PaymentStatusCompleted, events[1].PaymentStatus)
}

func TestPaymentService_ApprovePayment_Rejections(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	cash := f.order(t, 1, model.PaymentMethodCash)
	_, err := f.env.payments.ApprovePayment(ctx, cash.ID, "pg-token")
	assert.ErrorIs(t, err, ErrPaymentNotPending)

	_, err = f.env.payments.ApprovePayment(ctx, 9999, "pg-token")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	cancelled := f.order(t, 1, model.PaymentMethodKakaoPay)
	_, err = f.env.lifecycle.Cancel(ctx, f.user.ID, cancelled.ID)
	require.NoError(t, err)
	_, err = f.env.payments.ApprovePayment(ctx, cancelled.ID, "pg-token")
	assert.ErrorIs(t, err, ErrPaymentNotPending)

	assert.Empty(t, f.env.gateway.approvals)
}

func TestPaymentService_ApprovePayment_Declined(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	order := f.order(t, 1, model.PaymentMethodKakaoPay)
	f.env.gateway.approveErr = errProcessorDown

	_, err := f.env.payments.ApprovePayment(ctx, order.ID, "pg-token")
	assert.ErrorIs(t, err, ErrPaymentDeclined)

	reloaded := f.env.reload(t, order.ID)
	assert.Equal(t, model.PaymentStatusFailed, reloaded.PaymentStatus)
	assert.Equal(t, model.OrderStatusPending, reloaded.Status)
	// stock stays reserved until the order is cancelled or expires
	f.assertStock(t, 4, 2)
}

func TestPaymentService_ApprovePayment_TimeoutFlagsReconciliation(t *testing.T) {
	f := newLifecycleFixture(t)
	order := f.order(t, 1, model.PaymentMethodKakaoPay)
	f.env.gateway.approveErr = ErrGatewayTimeout

	_, err := f.env.payments.ApprovePayment(context.Background(), order.ID, "pg-token")
	assert.ErrorIs(t, err, ErrGatewayTimeout)

	reloaded := f.env.reload(t, order.ID)
	assert.True(t, reloaded.NeedsReconciliation)
	assert.Equal(t, model.PaymentStatusPendingIntent, reloaded.PaymentStatus)
}

func TestPaymentService_FailPayment(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	order := f.order(t, 1, model.PaymentMethodKakaoPay)

	failed, err := f.env.payments.FailPayment(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, failed.PaymentStatus)

	_, err = f.env.payments.FailPayment(ctx, order.ID)
	assert.ErrorIs(t, err, ErrPaymentNotPending)
}

func TestOrderLifecycle_ExpireIntent(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	pending := f.order(t, 1, model.PaymentMethodKakaoPay)
	expired, err := f.env.lifecycle.ExpireIntent(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, expired.Status)
	assert.Equal(t, model.PaymentStatusFailed, expired.PaymentStatus)

	failed := f.order(t, 1, model.PaymentMethodKakaoPay)
	_, err = f.env.payments.FailPayment(ctx, failed.ID)
	require.NoError(t, err)
	expired, err = f.env.lifecycle.ExpireIntent(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, expired.Status)

	paid := f.paidOrder(t, 1)
	_, err = f.env.lifecycle.ExpireIntent(ctx, paid.ID)
	assert.ErrorIs(t, err, ErrPaymentNotPending)

	events, err := f.env.eventRepo.FindByOrderID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ActorSystem, events[len(events)-1].Actor)

	// only the paid order still holds stock
	f.assertStock(t, 4, 2)
}
