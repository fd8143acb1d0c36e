package repository

import (
	"context"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// OrderFilter drives the admin order listing. Zero values mean "any".
type OrderFilter struct {
	Status        model.OrderStatus
	PaymentStatus model.PaymentStatus
	PaymentMethod model.PaymentMethod
	UserID        uint
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps paging to sane bounds.
func (f *OrderFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	FindByIDAndUserID(ctx context.Context, id, userID uint) (*model.Order, error)
	FindByUserID(ctx context.Context, userID uint) ([]model.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	CompareAndSetStatus(ctx context.Context, id uint, from, to model.OrderStatus, updates map[string]interface{}) (bool, error)
	CompareAndSetFlagged(ctx context.Context, id uint, from, to model.OrderStatus, updates map[string]interface{}) (bool, error)
	ClaimForRefund(ctx context.Context, id uint, status model.OrderStatus, note string) (bool, error)
	CompareAndSetPayment(ctx context.Context, id uint, from model.PaymentStatus, updates map[string]interface{}) (bool, error)
	FlagReconciliation(ctx context.Context, id uint, note string) error
	FindStaleIntents(ctx context.Context, createdBefore time.Time) ([]model.Order, error)
	FindNeedingReconciliation(ctx context.Context) ([]model.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepository{db: tx}
}

func (r *orderRepository) preloadOrder(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("OrderItems", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Preload("OrderItems.Options", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") })
}

// Create inserts the order with its items and option snapshots.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
		"total_amount": order.TotalAmount,
		"items":        len(order.OrderItems),
	})

	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"order_number": order.OrderNumber,
			"user_id":      order.UserID,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	logger.Debug("Finding order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	if err := r.preloadOrder(ctx).First(&order, id).Error; err != nil {
		if !isNotFound(err) {
			logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
				"order_id": id,
			})
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDAndUserID(ctx context.Context, id, userID uint) (*model.Order, error) {
	var order model.Order
	if err := r.preloadOrder(ctx).Where("user_id = ?", userID).First(&order, id).Error; err != nil {
		if !isNotFound(err) {
			logger.Error("Failed to find order by ID and user in database", err, map[string]interface{}{
				"order_id": id,
				"user_id":  userID,
			})
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByUserID(ctx context.Context, userID uint) ([]model.Order, error) {
	logger.Debug("Finding orders by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var orders []model.Order
	if err := r.preloadOrder(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Orders found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(orders),
	})
	return orders, nil
}

func (r *orderRepository) applyFilter(query *gorm.DB, filter OrderFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.PaymentMethod != "" {
		query = query.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	return query
}

// List returns one page of orders matching filter plus the total match count.
func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	filter.Normalize()

	logger.Debug("Listing orders in database", map[string]interface{}{
		"status":         filter.Status,
		"payment_status": filter.PaymentStatus,
		"payment_method": filter.PaymentMethod,
		"user_id":        filter.UserID,
		"page":           filter.Page,
		"page_size":      filter.PageSize,
	})

	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&model.Order{}), filter).
		Count(&total).Error; err != nil {
		logger.Error("Failed to count orders in database", err)
		return nil, 0, err
	}

	var orders []model.Order
	if err := r.applyFilter(r.preloadOrder(ctx), filter).
		Order("created_at DESC, id DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&orders).Error; err != nil {
		logger.Error("Failed to list orders in database", err)
		return nil, 0, err
	}

	return orders, total, nil
}

// CompareAndSetStatus moves the order from one status to another only if it
// is still in from and not held for reconciliation. ok is false when another
// writer got there first.
func (r *orderRepository) CompareAndSetStatus(ctx context.Context, id uint, from, to model.OrderStatus, updates map[string]interface{}) (bool, error) {
	return r.compareAndSet(ctx, id, from, to, false, updates)
}

// CompareAndSetFlagged is CompareAndSetStatus for an order that is held for
// reconciliation; the caller owns the hold.
func (r *orderRepository) CompareAndSetFlagged(ctx context.Context, id uint, from, to model.OrderStatus, updates map[string]interface{}) (bool, error) {
	return r.compareAndSet(ctx, id, from, to, true, updates)
}

func (r *orderRepository) compareAndSet(ctx context.Context, id uint, from, to model.OrderStatus, flagged bool, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"status": to}
	for k, v := range updates {
		values[k] = v
	}

	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ? AND needs_reconciliation = ?", id, from, flagged).
		Updates(values)
	if result.Error != nil {
		logger.Error("Failed to update order status in database", result.Error, map[string]interface{}{
			"order_id": id,
			"from":     from,
			"to":       to,
		})
		return false, result.Error
	}

	logger.Debug("Order status compare-and-set", map[string]interface{}{
		"order_id":      id,
		"from":          from,
		"to":            to,
		"flagged":       flagged,
		"rows_affected": result.RowsAffected,
	})
	return result.RowsAffected == 1, nil
}

// ClaimForRefund holds the order for reconciliation while it is still in
// status. Every other status change is refused until the holder moves or
// releases it, and an order left held after a crash stays visible to
// operators.
func (r *orderRepository) ClaimForRefund(ctx context.Context, id uint, status model.OrderStatus, note string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ? AND needs_reconciliation = ?", id, status, false).
		Updates(map[string]interface{}{
			"needs_reconciliation": true,
			"reconciliation_note":  note,
		})
	if result.Error != nil {
		logger.Error("Failed to claim order for refund", result.Error, map[string]interface{}{
			"order_id": id,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CompareAndSetPayment applies updates only while payment_status is from.
func (r *orderRepository) CompareAndSetPayment(ctx context.Context, id uint, from model.PaymentStatus, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Failed to update order payment in database", result.Error, map[string]interface{}{
			"order_id": id,
			"from":     from,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *orderRepository) FlagReconciliation(ctx context.Context, id uint, note string) error {
	if err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"needs_reconciliation": true,
			"reconciliation_note":  note,
		}).Error; err != nil {
		logger.Error("Failed to flag order for reconciliation", err, map[string]interface{}{
			"order_id": id,
		})
		return err
	}
	return nil
}

// FindStaleIntents returns open external-processor orders whose payment was
// never approved and that were created before createdBefore.
func (r *orderRepository) FindStaleIntents(ctx context.Context, createdBefore time.Time) ([]model.Order, error) {
	var orders []model.Order
	if err := r.db.WithContext(ctx).
		Where("payment_status IN ?", []model.PaymentStatus{model.PaymentStatusPendingIntent, model.PaymentStatusFailed}).
		Where("status NOT IN ?", []model.OrderStatus{model.OrderStatusCompleted, model.OrderStatusCancelled}).
		Where("needs_reconciliation = ?", false).
		Where("created_at < ?", createdBefore).
		Order("id ASC").
		Find(&orders).Error; err != nil {
		logger.Error("Failed to find stale payment intents", err)
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) FindNeedingReconciliation(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := r.db.WithContext(ctx).
		Where("needs_reconciliation = ?", true).
		Order("id ASC").
		Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders needing reconciliation", err)
		return nil, err
	}
	return orders, nil
}
