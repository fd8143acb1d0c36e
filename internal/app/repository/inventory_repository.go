package repository

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// InventoryRepository owns every write to stock counters. Decrements are
// conditional single-statement updates, so the database arbitrates races
// for the last unit.
type InventoryRepository interface {
	WithTx(tx *gorm.DB) InventoryRepository
	ProductStock(ctx context.Context, productID uint) (int, error)
	OptionValueStock(ctx context.Context, optionValueID uint) (int, error)
	DecrementProduct(ctx context.Context, productID uint, quantity int) (bool, error)
	DecrementOptionValue(ctx context.Context, optionValueID uint, quantity int) (bool, error)
	IncrementProduct(ctx context.Context, productID uint, quantity int) error
	IncrementOptionValue(ctx context.Context, optionValueID uint, quantity int) error
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) WithTx(tx *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: tx}
}

func (r *inventoryRepository) ProductStock(ctx context.Context, productID uint) (int, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Unscoped().Select("id", "stock_quantity").First(&product, productID).Error; err != nil {
		return 0, err
	}
	return product.StockQuantity, nil
}

func (r *inventoryRepository) OptionValueStock(ctx context.Context, optionValueID uint) (int, error) {
	var value model.OptionValue
	if err := r.db.WithContext(ctx).Select("id", "stock_quantity").First(&value, optionValueID).Error; err != nil {
		return 0, err
	}
	return value.StockQuantity, nil
}

// DecrementProduct subtracts quantity when enough stock remains and the
// product is not deleted. ok is false when no row qualified.
func (r *inventoryRepository) DecrementProduct(ctx context.Context, productID uint, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, quantity).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if result.Error != nil {
		logger.Error("Failed to decrement product stock", result.Error, map[string]interface{}{
			"product_id": productID,
			"quantity":   quantity,
		})
		return false, result.Error
	}

	logger.Debug("Product stock decrement attempted", map[string]interface{}{
		"product_id":    productID,
		"quantity":      quantity,
		"rows_affected": result.RowsAffected,
	})
	return result.RowsAffected == 1, nil
}

func (r *inventoryRepository) DecrementOptionValue(ctx context.Context, optionValueID uint, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.OptionValue{}).
		Where("id = ? AND stock_quantity >= ?", optionValueID, quantity).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if result.Error != nil {
		logger.Error("Failed to decrement option value stock", result.Error, map[string]interface{}{
			"option_value_id": optionValueID,
			"quantity":        quantity,
		})
		return false, result.Error
	}

	logger.Debug("Option value stock decrement attempted", map[string]interface{}{
		"option_value_id": optionValueID,
		"quantity":        quantity,
		"rows_affected":   result.RowsAffected,
	})
	return result.RowsAffected == 1, nil
}

// IncrementProduct restores stock, including on soft-deleted products.
func (r *inventoryRepository) IncrementProduct(ctx context.Context, productID uint, quantity int) error {
	result := r.db.WithContext(ctx).Unscoped().Model(&model.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", quantity))
	if result.Error != nil {
		logger.Error("Failed to increment product stock", result.Error, map[string]interface{}{
			"product_id": productID,
			"quantity":   quantity,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *inventoryRepository) IncrementOptionValue(ctx context.Context, optionValueID uint, quantity int) error {
	result := r.db.WithContext(ctx).Model(&model.OptionValue{}).
		Where("id = ?", optionValueID).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", quantity))
	if result.Error != nil {
		logger.Error("Failed to increment option value stock", result.Error, map[string]interface{}{
			"option_value_id": optionValueID,
			"quantity":        quantity,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
