package repository

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// OrderEventRepository is append-only: there is no update or delete.
type OrderEventRepository interface {
	WithTx(tx *gorm.DB) OrderEventRepository
	Append(ctx context.Context, event *model.OrderEvent) error
	FindByOrderID(ctx context.Context, orderID uint) ([]model.OrderEvent, error)
}

type orderEventRepository struct {
	db *gorm.DB
}

func NewOrderEventRepository(db *gorm.DB) OrderEventRepository {
	return &orderEventRepository{db: db}
}

func (r *orderEventRepository) WithTx(tx *gorm.DB) OrderEventRepository {
	return &orderEventRepository{db: tx}
}

func (r *orderEventRepository) Append(ctx context.Context, event *model.OrderEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		logger.Error("Failed to append order event", err, map[string]interface{}{
			"order_id": event.OrderID,
			"to":       event.ToStatus,
		})
		return err
	}
	return nil
}

func (r *orderEventRepository) FindByOrderID(ctx context.Context, orderID uint) ([]model.OrderEvent, error) {
	var events []model.OrderEvent
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&events).Error; err != nil {
		logger.Error("Failed to find order events", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}
	return events, nil
}
