package service

import (
	"context"
	"errors"
	"sort"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type AvailabilityStatus string

const (
	AvailabilityAvailable    AvailabilityStatus = "available"
	AvailabilityInsufficient AvailabilityStatus = "insufficient"
)

// Availability is the sellable quantity of one product + option selection:
// the minimum over the product counter and every selected option counter.
type Availability struct {
	Status    AvailabilityStatus `json:"status"`
	Available int                `json:"available"`
}

// StockLine is one reservation request against the ledger.
type StockLine struct {
	ProductID      uint
	OptionValueIDs []uint
	Quantity       int
}

// InventoryService is the only component that writes stock counters.
type InventoryService interface {
	CheckAvailability(ctx context.Context, productID uint, optionValueIDs []uint, quantity int) (*Availability, error)
	Reserve(ctx context.Context, lines []StockLine) error
	Release(ctx context.Context, lines []StockLine) error
	ReleaseTx(ctx context.Context, tx *gorm.DB, lines []StockLine) error
}

type inventoryService struct {
	inventoryRepo repository.InventoryRepository
	productRepo   repository.ProductRepository
	optionRepo    repository.OptionRepository
	db            *gorm.DB
}

func NewInventoryService(
	inventoryRepo repository.InventoryRepository,
	productRepo repository.ProductRepository,
	optionRepo repository.OptionRepository,
	db *gorm.DB,
) InventoryService {
	return &inventoryService{
		inventoryRepo: inventoryRepo,
		productRepo:   productRepo,
		optionRepo:    optionRepo,
		db:            db,
	}
}

func (s *inventoryService) CheckAvailability(ctx context.Context, productID uint, optionValueIDs []uint, quantity int) (*Availability, error) {
	product, err := s.productRepo.FindByIDUnscoped(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if product.IsDeleted() {
		return nil, ErrProductDeleted
	}

	ids := model.NormalizeOptionIDs(optionValueIDs)
	values, err := s.optionRepo.FindValuesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(values) != len(ids) {
		return nil, &OptionMismatchError{ProductID: productID, Reason: "unknown option value"}
	}

	available := product.StockQuantity
	for _, v := range values {
		if v.ProductID != productID {
			return nil, &OptionMismatchError{ProductID: productID, Reason: "option value belongs to another product"}
		}
		if v.StockQuantity < available {
			available = v.StockQuantity
		}
	}
	if available < 0 {
		available = 0
	}

	status := AvailabilityAvailable
	if quantity > available {
		status = AvailabilityInsufficient
	}
	return &Availability{Status: status, Available: available}, nil
}

// stockPlan is a batch of lines aggregated per counter.
type stockPlan struct {
	products     map[uint]int
	optionValues map[uint]int
	// owner maps each option value to the product it was requested with
	owner map[uint]uint
}

func planLines(lines []StockLine) (*stockPlan, error) {
	plan := &stockPlan{
		products:     map[uint]int{},
		optionValues: map[uint]int{},
		owner:        map[uint]uint{},
	}
	for _, line := range lines {
		if line.Quantity < MinItemQuantity {
			return nil, ErrInvalidQuantity
		}
		plan.products[line.ProductID] += line.Quantity
		for _, id := range model.NormalizeOptionIDs(line.OptionValueIDs) {
			plan.optionValues[id] += line.Quantity
			plan.owner[id] = line.ProductID
		}
	}
	return plan, nil
}

func sortedKeys(m map[uint]int) []uint {
	keys := make([]uint, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Reserve decrements every counter of the batch or none of them. Counters
// are touched in ascending id order (products, then option values) so two
// concurrent batches never wait on each other in opposite orders.
func (s *inventoryService) Reserve(ctx context.Context, lines []StockLine) error {
	plan, err := planLines(lines)
	if err != nil {
		return err
	}

	logger.Debug("Reserving stock", map[string]interface{}{
		"products":      len(plan.products),
		"option_values": len(plan.optionValues),
	})

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.inventoryRepo.WithTx(tx)

		for _, productID := range sortedKeys(plan.products) {
			qty := plan.products[productID]
			ok, err := repo.DecrementProduct(ctx, productID, qty)
			if err != nil {
				return err
			}
			if !ok {
				available, _ := repo.ProductStock(ctx, productID)
				return &InsufficientStockError{ProductID: productID, Available: available, Requested: qty}
			}
		}

		for _, valueID := range sortedKeys(plan.optionValues) {
			qty := plan.optionValues[valueID]
			ok, err := repo.DecrementOptionValue(ctx, valueID, qty)
			if err != nil {
				return err
			}
			if !ok {
				available, _ := repo.OptionValueStock(ctx, valueID)
				return &InsufficientStockError{
					ProductID:     plan.owner[valueID],
					OptionValueID: valueID,
					Available:     available,
					Requested:     qty,
				}
			}
		}
		return nil
	})
	if err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			logger.Warn("Stock reservation rejected", map[string]interface{}{
				"product_id":      stockErr.ProductID,
				"option_value_id": stockErr.OptionValueID,
				"available":       stockErr.Available,
				"requested":       stockErr.Requested,
			})
			return err
		}
		logger.Error("Stock reservation failed", err)
		return err
	}

	logger.Info("Stock reserved", map[string]interface{}{
		"lines": len(lines),
	})
	return nil
}

// Release returns a previously reserved batch to stock.
func (s *inventoryService) Release(ctx context.Context, lines []StockLine) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.ReleaseTx(ctx, tx, lines)
	})
}

// ReleaseTx releases inside the caller's transaction. Callers guarantee a
// batch is released at most once. Counters removed from the catalog since
// the reservation are skipped.
func (s *inventoryService) ReleaseTx(ctx context.Context, tx *gorm.DB, lines []StockLine) error {
	plan, err := planLines(lines)
	if err != nil {
		return err
	}

	repo := s.inventoryRepo.WithTx(tx)
	for _, productID := range sortedKeys(plan.products) {
		err := repo.IncrementProduct(ctx, productID, plan.products[productID])
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Released stock for a product that no longer exists", map[string]interface{}{
				"product_id": productID,
			})
			continue
		}
		if err != nil {
			logger.Error("Failed to release product stock", err, map[string]interface{}{
				"product_id": productID,
				"quantity":   plan.products[productID],
			})
			return err
		}
	}
	for _, valueID := range sortedKeys(plan.optionValues) {
		err := repo.IncrementOptionValue(ctx, valueID, plan.optionValues[valueID])
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Released stock for an option value that no longer exists", map[string]interface{}{
				"option_value_id": valueID,
			})
			continue
		}
		if err != nil {
			logger.Error("Failed to release option value stock", err, map[string]interface{}{
				"option_value_id": valueID,
				"quantity":        plan.optionValues[valueID],
			})
			return err
		}
	}

	logger.Info("Stock released", map[string]interface{}{
		"lines": len(lines),
	})
	return nil
}
