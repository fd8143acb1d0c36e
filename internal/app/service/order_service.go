package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/saga"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

const defaultPaymentTimeout = 10 * time.Second

// CreateOrderResult is returned to the customer after checkout. ClientSecret
// is empty for payment methods that need no client-side step.
type CreateOrderResult struct {
	Order        *model.Order `json:"order"`
	ClientSecret string       `json:"client_secret,omitempty"`
}

type OrderService interface {
	CreateOrderFromCart(ctx context.Context, userID, addressID uint, method model.PaymentMethod) (*CreateOrderResult, error)
	GetUserOrders(ctx context.Context, userID uint) ([]model.Order, error)
	GetOrderByID(ctx context.Context, userID, orderID uint) (*model.Order, error)

	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, int64, error)
	GetOrder(ctx context.Context, orderID uint) (*model.Order, error)
	ListEvents(ctx context.Context, orderID uint) ([]model.OrderEvent, error)
}

type OrderServiceConfig struct {
	PaymentTimeout time.Duration
}

type orderService struct {
	orderRepo      repository.OrderRepository
	eventRepo      repository.OrderEventRepository
	cartRepo       repository.CartRepository
	productRepo    repository.ProductRepository
	addressRepo    repository.AddressRepository
	inventory      InventoryService
	gateway        PaymentGateway
	db             *gorm.DB
	paymentTimeout time.Duration
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	eventRepo repository.OrderEventRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	addressRepo repository.AddressRepository,
	inventory InventoryService,
	gateway PaymentGateway,
	db *gorm.DB,
	cfg OrderServiceConfig,
) OrderService {
	timeout := cfg.PaymentTimeout
	if timeout <= 0 {
		timeout = defaultPaymentTimeout
	}
	return &orderService{
		orderRepo:      orderRepo,
		eventRepo:      eventRepo,
		cartRepo:       cartRepo,
		productRepo:    productRepo,
		addressRepo:    addressRepo,
		inventory:      inventory,
		gateway:        gateway,
		db:             db,
		paymentTimeout: timeout,
	}
}

// CreateOrderFromCart validates the whole cart without writing anything,
// then reserves stock, requests payment and persists the order. A failure
// after the reservation releases it before the error is returned.
func (s *orderService) CreateOrderFromCart(ctx context.Context, userID, addressID uint, method model.PaymentMethod) (*CreateOrderResult, error) {
	logger.Info("Creating order from cart", map[string]interface{}{
		"user_id":        userID,
		"address_id":     addressID,
		"payment_method": method,
	})

	draft, err := s.prepare(ctx, userID, addressID, method)
	if err != nil {
		return nil, err
	}

	placement := &placeOrder{svc: s, draft: draft}
	err = saga.NewOrchestrator("create_order", placement.steps()...).
		WithFields(map[string]interface{}{
			"order_number": draft.orderNumber,
			"user_id":      userID,
		}).
		Start(ctx)
	if err != nil {
		var sagaErr *saga.Error
		if errors.As(err, &sagaErr) {
			if !sagaErr.Compensated() {
				logger.Error("CRITICAL: order placement left a reservation behind", err, map[string]interface{}{
					"order_number": draft.orderNumber,
					"user_id":      userID,
					"stock_lines":  draft.stockLines,
				})
			}
			return nil, sagaErr.Err
		}
		return nil, err
	}

	logger.Info("Order created successfully", map[string]interface{}{
		"order_id":       placement.order.ID,
		"order_number":   placement.order.OrderNumber,
		"user_id":        userID,
		"total_amount":   placement.order.TotalAmount,
		"payment_status": placement.order.PaymentStatus,
	})
	return &CreateOrderResult{Order: placement.order, ClientSecret: placement.capture.ClientSecret}, nil
}

// prepare is the read-only validation phase of checkout.
func (s *orderService) prepare(ctx context.Context, userID, addressID uint, method model.PaymentMethod) (*orderDraft, error) {
	if !method.IsValid() {
		logger.Warn("Cannot create order: invalid payment method", map[string]interface{}{
			"user_id":        userID,
			"payment_method": method,
		})
		return nil, ErrInvalidPaymentMethod
	}

	cart, err := s.cartRepo.FindOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		logger.Warn("Cannot create order: cart is empty", map[string]interface{}{
			"user_id": userID,
		})
		return nil, ErrEmptyCart
	}

	address, err := s.addressRepo.FindByIDAndUserID(ctx, addressID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot create order: address not found", map[string]interface{}{
				"user_id":    userID,
				"address_id": addressID,
			})
			return nil, ErrAddressNotFound
		}
		return nil, err
	}

	draft := &orderDraft{
		userID:      userID,
		cartID:      cart.ID,
		address:     address,
		method:      method,
		orderNumber: uuid.NewString(),
	}

	for _, item := range cart.Items {
		orderItem, line, err := s.priceLine(ctx, item)
		if err != nil {
			logger.Warn("Cannot create order: cart line failed validation", map[string]interface{}{
				"user_id":      userID,
				"cart_item_id": item.ID,
				"product_id":   item.ProductID,
				"error":        err.Error(),
			})
			return nil, fmt.Errorf("cart item %d: %w", item.ID, err)
		}
		draft.items = append(draft.items, *orderItem)
		draft.stockLines = append(draft.stockLines, line)
		draft.cartItems = append(draft.cartItems, item)
		draft.total += orderItem.Subtotal()
	}

	return draft, nil
}

// priceLine re-validates one cart line and snapshots it as an order item.
func (s *orderService) priceLine(ctx context.Context, item model.CartItem) (*model.OrderItem, StockLine, error) {
	product, err := s.productRepo.FindByID(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, StockLine{}, ErrProductNotFound
		}
		return nil, StockLine{}, err
	}

	selection, err := selectOptions(product, item.OptionValueIDs())
	if err != nil {
		return nil, StockLine{}, err
	}

	availability, err := s.inventory.CheckAvailability(ctx, product.ID, selection.ValueIDs(), item.Quantity)
	if err != nil {
		return nil, StockLine{}, err
	}
	if availability.Status != AvailabilityAvailable {
		return nil, StockLine{}, &InsufficientStockError{
			ProductID: product.ID,
			Available: availability.Available,
			Requested: item.Quantity,
		}
	}

	options := make([]model.OrderItemOption, 0, len(selection.Options))
	for _, opt := range selection.Options {
		options = append(options, model.OrderItemOption{
			OptionValueID:   opt.Value.ID,
			OptionTypeName:  opt.TypeName,
			Value:           opt.Value.Value,
			AdditionalPrice: opt.Value.AdditionalPrice,
		})
	}

	orderItem := &model.OrderItem{
		ProductID:      product.ID,
		ProductName:    product.Name,
		Quantity:       item.Quantity,
		Price:          product.Price + selection.PriceDelta(),
		OptionKey:      selection.Key,
		OptionSnapshot: selection.Snapshot(),
		Options:        options,
	}
	line := StockLine{
		ProductID:      product.ID,
		OptionValueIDs: selection.ValueIDs(),
		Quantity:       item.Quantity,
	}
	return orderItem, line, nil
}

func (s *orderService) GetUserOrders(ctx context.Context, userID uint) ([]model.Order, error) {
	logger.Debug("Fetching user orders", map[string]interface{}{
		"user_id": userID,
	})

	orders, err := s.orderRepo.FindByUserID(ctx, userID)
	if err != nil {
		logger.Error("Failed to fetch user orders", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return orders, nil
}

// GetOrderByID hides other customers' orders behind ErrOrderNotFound.
func (s *orderService) GetOrderByID(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Order not found for user", map[string]interface{}{
				"user_id":  userID,
				"order_id": orderID,
			})
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, int64, error) {
	return s.orderRepo.List(ctx, filter)
}

func (s *orderService) GetOrder(ctx context.Context, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) ListEvents(ctx context.Context, orderID uint) ([]model.OrderEvent, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.eventRepo.FindByOrderID(ctx, orderID)
}
