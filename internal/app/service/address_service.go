package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var ErrAddressIncomplete = errors.New("recipient, phone and address are required")

type AddressService interface {
	GetUserAddresses(ctx context.Context, userID uint) ([]model.Address, error)
	CreateAddress(ctx context.Context, userID uint, address *model.Address) error
	UpdateAddress(ctx context.Context, userID, addressID uint, updated *model.Address) (*model.Address, error)
	DeleteAddress(ctx context.Context, userID, addressID uint) error
	SetDefaultAddress(ctx context.Context, userID, addressID uint) error
}

type addressService struct {
	addressRepo repository.AddressRepository
}

func NewAddressService(addressRepo repository.AddressRepository) AddressService {
	return &addressService{
		addressRepo: addressRepo,
	}
}

func validateAddress(address *model.Address) error {
	if strings.TrimSpace(address.Recipient) == "" ||
		strings.TrimSpace(address.Phone) == "" ||
		strings.TrimSpace(address.Address) == "" {
		return ErrAddressIncomplete
	}
	return nil
}

func (s *addressService) GetUserAddresses(ctx context.Context, userID uint) ([]model.Address, error) {
	logger.Debug("Fetching user addresses", map[string]interface{}{
		"user_id": userID,
	})
	return s.addressRepo.FindByUserID(ctx, userID)
}

// CreateAddress stores a new address. The first address of a user becomes
// the default.
func (s *addressService) CreateAddress(ctx context.Context, userID uint, address *model.Address) error {
	if err := validateAddress(address); err != nil {
		return err
	}
	address.ID = 0
	address.UserID = userID

	existing, err := s.addressRepo.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	makeDefault := address.IsDefault || len(existing) == 0
	address.IsDefault = false

	if err := s.addressRepo.Create(ctx, address); err != nil {
		return err
	}
	if makeDefault {
		if err := s.addressRepo.SetDefault(ctx, userID, address.ID); err != nil {
			return err
		}
		address.IsDefault = true
	}

	logger.Info("Address created", map[string]interface{}{
		"address_id": address.ID,
		"user_id":    userID,
		"default":    address.IsDefault,
	})
	return nil
}

// findOwned hides other users' addresses behind ErrAddressNotFound.
func (s *addressService) findOwned(ctx context.Context, userID, addressID uint) (*model.Address, error) {
	address, err := s.addressRepo.FindByIDAndUserID(ctx, addressID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Address not found", map[string]interface{}{
				"user_id":    userID,
				"address_id": addressID,
			})
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	return address, nil
}

func (s *addressService) UpdateAddress(ctx context.Context, userID, addressID uint, updated *model.Address) (*model.Address, error) {
	if err := validateAddress(updated); err != nil {
		return nil, err
	}
	address, err := s.findOwned(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	address.Name = updated.Name
	address.Recipient = updated.Recipient
	address.Phone = updated.Phone
	address.ZipCode = updated.ZipCode
	address.Address = updated.Address
	address.DetailAddress = updated.DetailAddress

	if err := s.addressRepo.Update(ctx, address); err != nil {
		return nil, err
	}
	if updated.IsDefault && !address.IsDefault {
		if err := s.addressRepo.SetDefault(ctx, userID, addressID); err != nil {
			return nil, err
		}
		address.IsDefault = true
	}

	logger.Info("Address updated", map[string]interface{}{
		"address_id": addressID,
	})
	return address, nil
}

// DeleteAddress soft-deletes the address. Orders keep their own shipping
// snapshot, so past orders are unaffected.
func (s *addressService) DeleteAddress(ctx context.Context, userID, addressID uint) error {
	if err := s.addressRepo.Delete(ctx, addressID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAddressNotFound
		}
		return err
	}
	logger.Info("Address deleted", map[string]interface{}{
		"user_id":    userID,
		"address_id": addressID,
	})
	return nil
}

func (s *addressService) SetDefaultAddress(ctx context.Context, userID, addressID uint) error {
	if err := s.addressRepo.SetDefault(ctx, userID, addressID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAddressNotFound
		}
		return err
	}
	return nil
}
