package service

import (
	"context"
	"errors"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// Reasons a cart line cannot currently be bought.
const (
	UnavailableDeleted           = "deleted"
	UnavailableInsufficientStock = "insufficient_stock"
	UnavailableInvalidOptions    = "invalid_options"
)

type CartLineOption struct {
	OptionValueID   uint    `json:"option_value_id"`
	Type            string  `json:"type"`
	Value           string  `json:"value"`
	AdditionalPrice float64 `json:"additional_price"`
}

// CartLine is a cart item decorated with live price and availability.
type CartLine struct {
	ID                uint             `json:"id"`
	ProductID         uint             `json:"product_id"`
	ProductName       string           `json:"product_name"`
	ImageURL          string           `json:"image_url,omitempty"`
	OptionValueIDs    []uint           `json:"option_value_ids"`
	Options           []CartLineOption `json:"options"`
	Quantity          int              `json:"quantity"`
	UnitPrice         float64          `json:"unit_price"`
	Subtotal          float64          `json:"subtotal"`
	IsAvailable       bool             `json:"is_available"`
	Available         int              `json:"available"`
	UnavailableReason string           `json:"unavailable_reason,omitempty"`
}

type CartView struct {
	CartID      uint       `json:"cart_id"`
	Items       []CartLine `json:"items"`
	TotalAmount float64    `json:"total_amount"`
	Count       int        `json:"count"`
}

type CartService interface {
	GetCart(ctx context.Context, userID uint) (*CartView, error)
	AddItem(ctx context.Context, userID, productID uint, optionValueIDs []uint, quantity int) error
	UpdateItem(ctx context.Context, userID, productID uint, optionValueIDs []uint, quantity int) error
	RemoveItem(ctx context.Context, userID, productID uint, optionValueIDs []uint) error
	ClearCart(ctx context.Context, userID uint) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	inventory   InventoryService
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	inventory InventoryService,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		inventory:   inventory,
	}
}

func validQuantity(quantity int) bool {
	return quantity >= MinItemQuantity && quantity <= MaxItemQuantity
}

// GetCart never removes lines; lines that cannot be bought are returned with
// a reason and left out of the total.
func (s *cartService) GetCart(ctx context.Context, userID uint) (*CartView, error) {
	logger.Debug("Fetching user cart", map[string]interface{}{
		"user_id": userID,
	})

	cart, err := s.cartRepo.FindOrCreateByUserID(ctx, userID)
	if err != nil {
		logger.Error("Failed to fetch user cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	productIDs := make([]uint, 0, len(cart.Items))
	for _, item := range cart.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.productRepo.FindByIDsUnscoped(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	view := &CartView{CartID: cart.ID, Items: make([]CartLine, 0, len(cart.Items))}
	for _, item := range cart.Items {
		line, err := s.buildLine(ctx, item, byID[item.ProductID])
		if err != nil {
			return nil, err
		}
		if line.IsAvailable {
			view.TotalAmount += line.Subtotal
		}
		view.Items = append(view.Items, line)
	}
	view.Count = len(view.Items)

	logger.Info("User cart fetched successfully", map[string]interface{}{
		"user_id": userID,
		"count":   view.Count,
	})
	return view, nil
}

func (s *cartService) buildLine(ctx context.Context, item model.CartItem, product *model.Product) (CartLine, error) {
	line := CartLine{
		ID:             item.ID,
		ProductID:      item.ProductID,
		OptionValueIDs: item.OptionValueIDs(),
		Options:        []CartLineOption{},
		Quantity:       item.Quantity,
	}

	if product == nil || product.IsDeleted() {
		if product != nil {
			line.ProductName = product.Name
		}
		line.UnavailableReason = UnavailableDeleted
		return line, nil
	}
	line.ProductName = product.Name
	line.ImageURL = product.ImageURL
	line.UnitPrice = product.Price

	selection, err := selectOptions(product, line.OptionValueIDs)
	if err != nil {
		line.UnavailableReason = UnavailableInvalidOptions
		return line, nil
	}
	for _, opt := range selection.Options {
		line.Options = append(line.Options, CartLineOption{
			OptionValueID:   opt.Value.ID,
			Type:            opt.TypeName,
			Value:           opt.Value.Value,
			AdditionalPrice: opt.Value.AdditionalPrice,
		})
	}
	line.UnitPrice = product.Price + selection.PriceDelta()
	line.Subtotal = line.UnitPrice * float64(item.Quantity)

	availability, err := s.inventory.CheckAvailability(ctx, item.ProductID, line.OptionValueIDs, item.Quantity)
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrProductDeleted):
		line.UnavailableReason = UnavailableDeleted
		return line, nil
	case errors.Is(err, ErrInvalidOptionSelection):
		line.UnavailableReason = UnavailableInvalidOptions
		return line, nil
	case err != nil:
		return line, err
	}

	line.Available = availability.Available
	if availability.Status != AvailabilityAvailable {
		line.UnavailableReason = UnavailableInsufficientStock
		return line, nil
	}
	line.IsAvailable = true
	return line, nil
}

func (s *cartService) AddItem(ctx context.Context, userID, productID uint, optionValueIDs []uint, quantity int) error {
	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":          userID,
		"product_id":       productID,
		"option_value_ids": optionValueIDs,
		"quantity":         quantity,
	})

	if !validQuantity(quantity) {
		return ErrInvalidQuantity
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: product not found", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": productID,
		})
		return err
	}

	selection, err := selectOptions(product, optionValueIDs)
	if err != nil {
		logger.Warn("Cannot add to cart: option selection mismatch", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"error":      err.Error(),
		})
		return err
	}

	cart, err := s.cartRepo.FindOrCreateByUserID(ctx, userID)
	if err != nil {
		return err
	}

	for attempt := 1; ; attempt++ {
		done, err := s.mergeLine(ctx, userID, cart.ID, productID, selection, quantity)
		if err != nil || done {
			return err
		}
		if attempt == maxMergeAttempts {
			return ErrCartChanged
		}
	}
}

const maxMergeAttempts = 3

// mergeLine adds quantity to the line for the selection, creating the line
// when there is none. done is false when a concurrent add touched the line
// between the read and the write.
func (s *cartService) mergeLine(ctx context.Context, userID, cartID, productID uint, selection *optionSelection, quantity int) (bool, error) {
	existing, err := s.cartRepo.FindItem(ctx, cartID, productID, selection.Key)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing cart item", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return false, err
	}

	requested := quantity
	if existing != nil {
		requested += existing.Quantity
	}
	if requested > MaxItemQuantity {
		logger.Warn("Cannot add to cart: merged quantity over limit", map[string]interface{}{
			"user_id":   userID,
			"requested": requested,
		})
		return false, ErrInvalidQuantity
	}

	if err := s.ensureAvailable(ctx, productID, selection.ValueIDs(), requested); err != nil {
		return false, err
	}

	if existing != nil {
		logger.Debug("Merging into existing cart item", map[string]interface{}{
			"cart_item_id": existing.ID,
			"old_qty":      existing.Quantity,
			"new_qty":      requested,
		})
		return s.cartRepo.AddItemQuantity(ctx, existing.ID, existing.Quantity, quantity)
	}

	item := &model.CartItem{
		CartID:    cartID,
		ProductID: productID,
		OptionKey: selection.Key,
		Quantity:  quantity,
	}
	if err := s.cartRepo.CreateItem(ctx, item); err != nil {
		// lost a concurrent create of the same line; merge into it instead
		if _, findErr := s.cartRepo.FindItem(ctx, cartID, productID, selection.Key); findErr == nil {
			return false, nil
		}
		logger.Error("Failed to create cart item", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return false, err
	}

	logger.Info("Cart item added successfully", map[string]interface{}{
		"cart_item_id": item.ID,
	})
	return true, nil
}

func (s *cartService) ensureAvailable(ctx context.Context, productID uint, optionValueIDs []uint, quantity int) error {
	availability, err := s.inventory.CheckAvailability(ctx, productID, optionValueIDs, quantity)
	if err != nil {
		return err
	}
	if availability.Status != AvailabilityAvailable {
		logger.Warn("Insufficient stock for cart item", map[string]interface{}{
			"product_id": productID,
			"requested":  quantity,
			"available":  availability.Available,
		})
		return &InsufficientStockError{ProductID: productID, Available: availability.Available, Requested: quantity}
	}
	return nil
}

func (s *cartService) findLine(ctx context.Context, userID, productID uint, optionValueIDs []uint) (*model.CartItem, error) {
	cart, err := s.cartRepo.FindOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	item, err := s.cartRepo.FindItem(ctx, cart.ID, productID, model.OptionKey(optionValueIDs))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cart item not found", map[string]interface{}{
				"user_id":          userID,
				"product_id":       productID,
				"option_value_ids": optionValueIDs,
			})
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (s *cartService) UpdateItem(ctx context.Context, userID, productID uint, optionValueIDs []uint, quantity int) error {
	logger.Info("Updating cart item", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if !validQuantity(quantity) {
		return ErrInvalidQuantity
	}

	item, err := s.findLine(ctx, userID, productID, optionValueIDs)
	if err != nil {
		return err
	}

	if err := s.ensureAvailable(ctx, productID, item.OptionValueIDs(), quantity); err != nil {
		return err
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		logger.Error("Failed to update cart item", err, map[string]interface{}{
			"cart_item_id": item.ID,
		})
		return err
	}
	return nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID uint, optionValueIDs []uint) error {
	logger.Info("Removing cart item", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	item, err := s.findLine(ctx, userID, productID, optionValueIDs)
	if err != nil {
		return err
	}
	if err := s.cartRepo.DeleteItem(ctx, item.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCartItemNotFound
		}
		return err
	}
	return nil
}

func (s *cartService) ClearCart(ctx context.Context, userID uint) error {
	logger.Info("Clearing cart", map[string]interface{}{
		"user_id": userID,
	})

	cart, err := s.cartRepo.FindOrCreateByUserID(ctx, userID)
	if err != nil {
		return err
	}
	return s.cartRepo.ClearItems(ctx, cart.ID)
}
