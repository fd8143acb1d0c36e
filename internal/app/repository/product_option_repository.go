package repository

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type OptionRepository interface {
	CreateType(ctx context.Context, optionType *model.OptionType) error
	FindTypesByProductID(ctx context.Context, productID uint) ([]model.OptionType, error)
	FindValuesByIDs(ctx context.Context, ids []uint) ([]model.OptionValue, error)
}

type optionRepository struct {
	db *gorm.DB
}

func NewOptionRepository(db *gorm.DB) OptionRepository {
	return &optionRepository{db: db}
}

// CreateType inserts an option type together with its values.
func (r *optionRepository) CreateType(ctx context.Context, optionType *model.OptionType) error {
	logger.Debug("Creating option type", map[string]interface{}{
		"product_id":   optionType.ProductID,
		"name":         optionType.Name,
		"values_count": len(optionType.Values),
	})

	for i := range optionType.Values {
		optionType.Values[i].ProductID = optionType.ProductID
	}

	if err := r.db.WithContext(ctx).Create(optionType).Error; err != nil {
		logger.Error("Failed to create option type", err, map[string]interface{}{
			"product_id": optionType.ProductID,
			"name":       optionType.Name,
		})
		return err
	}

	logger.Debug("Option type created", map[string]interface{}{
		"option_type_id": optionType.ID,
	})
	return nil
}

func (r *optionRepository) FindTypesByProductID(ctx context.Context, productID uint) ([]model.OptionType, error) {
	logger.Debug("Finding option types by product", map[string]interface{}{
		"product_id": productID,
	})

	var types []model.OptionType
	if err := r.db.WithContext(ctx).
		Preload("Values", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Where("product_id = ?", productID).
		Order("position ASC, id ASC").
		Find(&types).Error; err != nil {
		logger.Error("Failed to find option types", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	return types, nil
}

// FindValuesByIDs returns the values that exist among ids, each with its
// option type loaded. Unknown ids are simply absent from the result.
func (r *optionRepository) FindValuesByIDs(ctx context.Context, ids []uint) ([]model.OptionValue, error) {
	values := []model.OptionValue{}
	if len(ids) == 0 {
		return values, nil
	}

	logger.Debug("Finding option values by IDs", map[string]interface{}{
		"option_value_ids": ids,
	})

	if err := r.db.WithContext(ctx).
		Preload("OptionType").
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&values).Error; err != nil {
		logger.Error("Failed to find option values", err, map[string]interface{}{
			"option_value_ids": ids,
		})
		return nil, err
	}
	return values, nil
}
