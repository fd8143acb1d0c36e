package repository

import (
	"context"
	"errors"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// ProductRepository is the read side of the catalog. Writes exist only for
// seeding; catalog management lives elsewhere.
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindByIDUnscoped(ctx context.Context, id uint) (*model.Product, error)
	FindByIDsUnscoped(ctx context.Context, ids []uint) ([]model.Product, error)
	FindByName(ctx context.Context, name string) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uint) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// withOptions preloads option types (by position) and their values.
func withOptions(db *gorm.DB) *gorm.DB {
	return db.Preload("OptionTypes", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC, id ASC")
	}).Preload("OptionTypes.Values", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	})
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name":  product.Name,
		"price": product.Price,
	})

	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name": product.Name,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	return r.findByID(ctx, r.db.WithContext(ctx), id)
}

// FindByIDUnscoped also returns soft-deleted products so callers can tell
// "deleted" apart from "never existed".
func (r *productRepository) FindByIDUnscoped(ctx context.Context, id uint) (*model.Product, error) {
	return r.findByID(ctx, r.db.WithContext(ctx).Unscoped(), id)
}

func (r *productRepository) findByID(ctx context.Context, query *gorm.DB, id uint) (*model.Product, error) {
	logger.Debug("Finding product by ID in database", map[string]interface{}{
		"product_id": id,
	})

	var product model.Product
	if err := withOptions(query).First(&product, id).Error; err != nil {
		if !isNotFound(err) {
			logger.Error("Failed to find product by ID in database", err, map[string]interface{}{
				"product_id": id,
			})
		}
		return nil, err
	}

	logger.Debug("Product found by ID in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
		"deleted":    product.IsDeleted(),
	})
	return &product, nil
}

func (r *productRepository) FindByIDsUnscoped(ctx context.Context, ids []uint) ([]model.Product, error) {
	products := []model.Product{}
	if len(ids) == 0 {
		return products, nil
	}

	logger.Debug("Finding products by IDs in database", map[string]interface{}{
		"count": len(ids),
	})

	if err := withOptions(r.db.WithContext(ctx).Unscoped()).
		Where("id IN ?", ids).
		Find(&products).Error; err != nil {
		logger.Error("Failed to find products by IDs in database", err, map[string]interface{}{
			"product_ids": ids,
		})
		return nil, err
	}
	return products, nil
}

func (r *productRepository) FindByName(ctx context.Context, name string) (*model.Product, error) {
	var product model.Product
	if err := withOptions(r.db.WithContext(ctx)).Where("name = ?", name).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
	})

	if err := r.db.WithContext(ctx).Omit("OptionTypes").Save(product).Error; err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	return nil
}

// Delete soft-deletes the product; existing cart lines keep pointing at it.
func (r *productRepository) Delete(ctx context.Context, id uint) error {
	logger.Debug("Deleting product from database", map[string]interface{}{
		"product_id": id,
	})

	if err := r.db.WithContext(ctx).Delete(&model.Product{}, id).Error; err != nil {
		logger.Error("Failed to delete product from database", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}
	return nil
}
