package repository

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type AddressRepository interface {
	Create(ctx context.Context, address *model.Address) error
	FindByUserID(ctx context.Context, userID uint) ([]model.Address, error)
	FindByIDAndUserID(ctx context.Context, id, userID uint) (*model.Address, error)
	Update(ctx context.Context, address *model.Address) error
	Delete(ctx context.Context, id, userID uint) error
	SetDefault(ctx context.Context, userID, addressID uint) error
}

type addressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) Create(ctx context.Context, address *model.Address) error {
	logger.Debug("Creating address in database", map[string]interface{}{
		"user_id":   address.UserID,
		"recipient": address.Recipient,
	})

	if err := r.db.WithContext(ctx).Create(address).Error; err != nil {
		logger.Error("Failed to create address in database", err, map[string]interface{}{
			"user_id": address.UserID,
		})
		return err
	}
	return nil
}

// FindByIDAndUserID only returns addresses owned by userID.
func (r *addressRepository) FindByIDAndUserID(ctx context.Context, id, userID uint) (*model.Address, error) {
	logger.Debug("Finding address by ID and user in database", map[string]interface{}{
		"address_id": id,
		"user_id":    userID,
	})

	var address model.Address
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&address, id).Error; err != nil {
		if !isNotFound(err) {
			logger.Error("Failed to find address in database", err, map[string]interface{}{
				"address_id": id,
				"user_id":    userID,
			})
		}
		return nil, err
	}
	return &address, nil
}

// FindByUserID lists the default address first, then newest first.
func (r *addressRepository) FindByUserID(ctx context.Context, userID uint) ([]model.Address, error) {
	var addresses []model.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC, id DESC").
		Find(&addresses).Error
	if err != nil {
		logger.Error("Failed to find addresses in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return addresses, nil
}

func (r *addressRepository) Update(ctx context.Context, address *model.Address) error {
	if err := r.db.WithContext(ctx).Save(address).Error; err != nil {
		logger.Error("Failed to update address in database", err, map[string]interface{}{
			"address_id": address.ID,
		})
		return err
	}
	return nil
}

func (r *addressRepository) Delete(ctx context.Context, id, userID uint) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Address{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete address from database", result.Error, map[string]interface{}{
			"address_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetDefault makes addressID the only default address of the user.
// addressID 0 clears the default.
func (r *addressRepository) SetDefault(ctx context.Context, userID, addressID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Address{}).
			Where("user_id = ? AND is_default = ?", userID, true).
			Update("is_default", false).Error; err != nil {
			return err
		}
		if addressID == 0 {
			return nil
		}
		result := tx.Model(&model.Address{}).
			Where("id = ? AND user_id = ?", addressID, userID).
			Update("is_default", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
