package repository

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindOrCreateByUserID(ctx context.Context, userID uint) (*model.Cart, error)
	FindItem(ctx context.Context, cartID, productID uint, optionKey string) (*model.CartItem, error)
	CreateItem(ctx context.Context, item *model.CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID uint, quantity int) error
	AddItemQuantity(ctx context.Context, itemID uint, from, delta int) (bool, error)
	DeleteItem(ctx context.Context, itemID uint) error
	ClearItems(ctx context.Context, cartID uint) error
	DeleteItems(ctx context.Context, cartID uint, items []model.CartItem) (bool, error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) WithTx(tx *gorm.DB) CartRepository {
	return &cartRepository{db: tx}
}

// FindOrCreateByUserID returns the user's cart with its lines, creating the
// cart on first access. Concurrent first accesses converge on one row
// through the unique index on user_id.
func (r *cartRepository) FindOrCreateByUserID(ctx context.Context, userID uint) (*model.Cart, error) {
	logger.Debug("Finding cart by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&model.Cart{UserID: userID}).Error; err != nil {
		logger.Error("Failed to ensure cart exists", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	var cart model.Cart
	if err := db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	}).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		logger.Error("Failed to find cart by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Cart found by user ID in database", map[string]interface{}{
		"cart_id": cart.ID,
		"user_id": userID,
		"count":   len(cart.Items),
	})
	return &cart, nil
}

func (r *cartRepository) FindItem(ctx context.Context, cartID, productID uint, optionKey string) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ? AND option_key = ?", cartID, productID, optionKey).
		First(&item).Error
	if err != nil {
		if !isNotFound(err) {
			logger.Error("Failed to find cart item in database", err, map[string]interface{}{
				"cart_id":    cartID,
				"product_id": productID,
				"option_key": optionKey,
			})
		}
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) CreateItem(ctx context.Context, item *model.CartItem) error {
	logger.Debug("Creating cart item in database", map[string]interface{}{
		"cart_id":    item.CartID,
		"product_id": item.ProductID,
		"option_key": item.OptionKey,
		"quantity":   item.Quantity,
	})

	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		logger.Error("Failed to create cart item in database", err, map[string]interface{}{
			"cart_id":    item.CartID,
			"product_id": item.ProductID,
		})
		return err
	}

	logger.Debug("Cart item created in database", map[string]interface{}{
		"cart_item_id": item.ID,
	})
	return nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, itemID uint, quantity int) error {
	logger.Debug("Updating cart item quantity in database", map[string]interface{}{
		"cart_item_id": itemID,
		"quantity":     quantity,
	})

	result := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", quantity)
	if result.Error != nil {
		logger.Error("Failed to update cart item in database", result.Error, map[string]interface{}{
			"cart_item_id": itemID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddItemQuantity increments the line by delta only while it still holds
// from. ok is false when a concurrent write changed the line first.
func (r *cartRepository) AddItemQuantity(ctx context.Context, itemID uint, from, delta int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("id = ? AND quantity = ?", itemID, from).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		logger.Error("Failed to merge cart item quantity in database", result.Error, map[string]interface{}{
			"cart_item_id": itemID,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, itemID uint) error {
	logger.Debug("Deleting cart item from database", map[string]interface{}{
		"cart_item_id": itemID,
	})

	result := r.db.WithContext(ctx).Delete(&model.CartItem{}, itemID)
	if result.Error != nil {
		logger.Error("Failed to delete cart item from database", result.Error, map[string]interface{}{
			"cart_item_id": itemID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearItems drains the cart. The cart row itself is kept.
func (r *cartRepository) ClearItems(ctx context.Context, cartID uint) error {
	logger.Debug("Clearing cart items from database", map[string]interface{}{
		"cart_id": cartID,
	})

	if err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to clear cart items from database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}
	return nil
}

// DeleteItems removes exactly the given lines as they were read, leaving
// lines added since. It reports false as soon as a line is missing or its
// quantity changed; the caller's transaction must then roll back.
func (r *cartRepository) DeleteItems(ctx context.Context, cartID uint, items []model.CartItem) (bool, error) {
	db := r.db.WithContext(ctx)
	for _, item := range items {
		result := db.Where("cart_id = ? AND id = ? AND quantity = ?", cartID, item.ID, item.Quantity).
			Delete(&model.CartItem{})
		if result.Error != nil {
			logger.Error("Failed to delete cart items from database", result.Error, map[string]interface{}{
				"cart_id":      cartID,
				"cart_item_id": item.ID,
			})
			return false, result.Error
		}
		if result.RowsAffected == 0 {
			logger.Warn("Cart line changed before it was drained", map[string]interface{}{
				"cart_id":      cartID,
				"cart_item_id": item.ID,
				"quantity":     item.Quantity,
			})
			return false, nil
		}
	}
	return true, nil
}
