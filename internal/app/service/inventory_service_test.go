package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryService_CheckAvailability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, "Product A", 10000, 5)
	sizes := env.seedOptionType(t, product, "Size", 0,
		valueSeed{value: "S", stock: 10},
		valueSeed{value: "M", stock: 3},
	)

	tests := []struct {
		name      string
		options   []uint
		quantity  int
		status    AvailabilityStatus
		available int
	}{
		{name: "product counter bounds", options: []uint{sizes[0].ID}, quantity: 5, status: AvailabilityAvailable, available: 5},
		{name: "option counter bounds", options: []uint{sizes[1].ID}, quantity: 3, status: AvailabilityAvailable, available: 3},
		{name: "over option stock", options: []uint{sizes[1].ID}, quantity: 4, status: AvailabilityInsufficient, available: 3},
		{name: "over product stock", options: []uint{sizes[0].ID}, quantity: 6, status: AvailabilityInsufficient, available: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			availability, err := env.inventory.CheckAvailability(ctx, product.ID, tt.options, tt.quantity)
			require.NoError(t, err)
			assert.Equal(t, tt.status, availability.Status)
			assert.Equal(t, tt.available, availability.Available)
		})
	}
}

func TestInventoryService_CheckAvailability_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, "Product A", 10000, 5)
	other := env.seedProduct(t, "Product B", 10000, 5)
	otherSizes := env.seedOptionType(t, other, "Size", 0, valueSeed{value: "L", stock: 5})

	_, err := env.inventory.CheckAvailability(ctx, 9999, nil, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = env.inventory.CheckAvailability(ctx, product.ID, []uint{9999}, 1)
	assert.ErrorIs(t, err, ErrInvalidOptionSelection)

	_, err = env.inventory.CheckAvailability(ctx, product.ID, []uint{otherSizes[0].ID}, 1)
	assert.ErrorIs(t, err, ErrInvalidOptionSelection)

	require.NoError(t, env.db.Delete(&model.Product{}, product.ID).Error)
	_, err = env.inventory.CheckAvailability(ctx, product.ID, nil, 1)
	assert.ErrorIs(t, err, ErrProductDeleted)
}

func TestInventoryService_ReserveReleaseRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, "Product A", 10000, 10)
	sizes := env.seedOptionType(t, product, "Size", 0,
		valueSeed{value: "S", stock: 4},
		valueSeed{value: "M", stock: 4},
	)

	// two lines share the product counter and must be summed
	lines := []StockLine{
		{ProductID: product.ID, OptionValueIDs: []uint{sizes[0].ID}, Quantity: 2},
		{ProductID: product.ID, OptionValueIDs: []uint{sizes[1].ID}, Quantity: 3},
	}

	require.NoError(t, env.inventory.Reserve(ctx, lines))
	assert.Equal(t, 5, env.productStock(t, product.ID))
	assert.Equal(t, 2, env.optionStock(t, sizes[0].ID))
	assert.Equal(t, 1, env.optionStock(t, sizes[1].ID))

	require.NoError(t, env.inventory.Release(ctx, lines))
	assert.Equal(t, 10, env.productStock(t, product.ID))
	assert.Equal(t, 4, env.optionStock(t, sizes[0].ID))
	assert.Equal(t, 4, env.optionStock(t, sizes[1].ID))
}

func TestInventoryService_ReserveIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	plenty := env.seedProduct(t, "Plenty", 1000, 100)
	product := env.seedProduct(t, "Product A", 10000, 5)
	sizes := env.seedOptionType(t, product, "Size", 0, valueSeed{value: "M", stock: 3})

	err := env.inventory.Reserve(ctx, []StockLine{
		{ProductID: plenty.ID, Quantity: 10},
		{ProductID: product.ID, OptionValueIDs: []uint{sizes[0].ID}, Quantity: 4},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, product.ID, stockErr.ProductID)
	assert.Equal(t, sizes[0].ID, stockErr.OptionValueID)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 4, stockErr.Requested)
	assert.Equal(t, "Insufficient stock. Available: 3, Requested: 4", stockErr.Error())

	assert.Equal(t, 100, env.productStock(t, plenty.ID))
	assert.Equal(t, 5, env.productStock(t, product.ID))
	assert.Equal(t, 3, env.optionStock(t, sizes[0].ID))
}

func TestInventoryService_ReserveAggregatesBeforeChecking(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(t, "Product A", 10000, 5)

	err := env.inventory.Reserve(context.Background(), []StockLine{
		{ProductID: product.ID, Quantity: 3},
		{ProductID: product.ID, Quantity: 3},
	})

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, env.productStock(t, product.ID))
}

func TestInventoryService_ReserveRejectsNonPositiveQuantity(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(t, "Product A", 10000, 5)

	err := env.inventory.Reserve(context.Background(), []StockLine{{ProductID: product.ID, Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestInventoryService_LastUnitRace(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(t, "Last One", 10000, 1)

	const racers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		shortages int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := env.inventory.Reserve(context.Background(), []StockLine{{ProductID: product.ID, Quantity: 1}})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrInsufficientStock):
				shortages++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, racers-1, shortages)
	assert.Equal(t, 0, env.productStock(t, product.ID))
}

func TestInventoryService_ReleaseRestoresDeletedProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, "Product A", 10000, 5)
	lines := []StockLine{{ProductID: product.ID, Quantity: 2}}

	require.NoError(t, env.inventory.Reserve(ctx, lines))
	require.NoError(t, env.db.Delete(&model.Product{}, product.ID).Error)

	require.NoError(t, env.inventory.Release(ctx, lines))
	assert.Equal(t, 5, env.productStock(t, product.ID))
}
