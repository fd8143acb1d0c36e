package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeGateway records calls and can be told to fail or hang.
type fakeGateway struct {
	mu          sync.Mutex
	onCapture   func(ctx context.Context) error
	onRefund    func(ctx context.Context, order *model.Order)
	captureErr  error
	approveErr  error
	refundErr   error
	refundDelay time.Duration
	captures    []CaptureRequest
	approvals   []uint
	refunds     []uint
}

func (g *fakeGateway) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	if g.onCapture != nil {
		if err := g.onCapture(ctx); err != nil {
			return nil, err
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	g.captures = append(g.captures, req)
	if req.Method == model.PaymentMethodKakaoPay {
		return &CaptureResult{
			TID:           "T-" + req.OrderNumber,
			ClientSecret:  "https://pay.example/" + req.OrderNumber,
			PaymentStatus: model.PaymentStatusPendingIntent,
		}, nil
	}
	return &CaptureResult{PaymentStatus: model.PaymentStatusPending}, nil
}

func (g *fakeGateway) Approve(ctx context.Context, order *model.Order, token string) (*ApprovalResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.approveErr != nil {
		return nil, g.approveErr
	}
	g.approvals = append(g.approvals, order.ID)
	return &ApprovalResult{TID: order.PaymentTID, ApprovedAt: time.Now()}, nil
}

func (g *fakeGateway) Refund(ctx context.Context, order *model.Order) error {
	if g.onRefund != nil {
		g.onRefund(ctx, order)
	}
	if g.refundDelay > 0 {
		select {
		case <-time.After(g.refundDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refunds = append(g.refunds, order.ID)
	return nil
}

func (g *fakeGateway) refundCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.refunds)
}

var errProcessorDown = errors.New("processor unavailable")

type testEnv struct {
	db        *gorm.DB
	gateway   *fakeGateway
	orderRepo repository.OrderRepository
	eventRepo repository.OrderEventRepository
	inventory InventoryService
	cart      CartService
	orders    OrderService
	lifecycle OrderLifecycle
	payments  PaymentService
}

func newTestEnv(t *testing.T) *testEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	productRepo := repository.NewProductRepository(testDB)
	optionRepo := repository.NewOptionRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)
	eventRepo := repository.NewOrderEventRepository(testDB)
	addressRepo := repository.NewAddressRepository(testDB)
	inventoryRepo := repository.NewInventoryRepository(testDB)

	gateway := &fakeGateway{}
	inventory := NewInventoryService(inventoryRepo, productRepo, optionRepo, testDB)

	return &testEnv{
		db:        testDB,
		gateway:   gateway,
		orderRepo: orderRepo,
		eventRepo: eventRepo,
		inventory: inventory,
		cart:      NewCartService(cartRepo, productRepo, inventory),
		orders: NewOrderService(orderRepo, eventRepo, cartRepo, productRepo, addressRepo, inventory, gateway, testDB,
			OrderServiceConfig{PaymentTimeout: time.Second}),
		lifecycle: NewOrderLifecycle(orderRepo, eventRepo, inventory, gateway, testDB,
			OrderLifecycleConfig{RefundTimeout: 100 * time.Millisecond}),
		payments: NewPaymentService(orderRepo, eventRepo, gateway, testDB,
			PaymentServiceConfig{RequestTimeout: time.Second}),
	}
}

func (e *testEnv) seedUser(t *testing.T, email string) *model.User {
	user := &model.User{Email: email, Name: "Customer", Role: model.RoleUser}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) seedAddress(t *testing.T, userID uint) *model.Address {
	address := &model.Address{
		UserID:    userID,
		Recipient: "홍길동",
		Phone:     "010-1234-5678",
		ZipCode:   "06236",
		Address:   "서울시 강남구 테헤란로 1",
	}
	require.NoError(t, e.db.Create(address).Error)
	return address
}

func (e *testEnv) seedProduct(t *testing.T, name string, price float64, stock int) *model.Product {
	product := &model.Product{Name: name, Price: price, StockQuantity: stock}
	require.NoError(t, e.db.Create(product).Error)
	return product
}

type valueSeed struct {
	value string
	delta float64
	stock int
}

// seedOptionType adds an option type to product; values are returned in
// the order given.
func (e *testEnv) seedOptionType(t *testing.T, product *model.Product, name string, position int, values ...valueSeed) []model.OptionValue {
	optionType := &model.OptionType{ProductID: product.ID, Name: name, Position: position}
	for _, v := range values {
		optionType.Values = append(optionType.Values, model.OptionValue{
			ProductID:       product.ID,
			Value:           v.value,
			AdditionalPrice: v.delta,
			StockQuantity:   v.stock,
		})
	}
	require.NoError(t, e.db.Create(optionType).Error)
	return optionType.Values
}

func (e *testEnv) productStock(t *testing.T, id uint) int {
	var product model.Product
	require.NoError(t, e.db.Unscoped().First(&product, id).Error)
	return product.StockQuantity
}

func (e *testEnv) optionStock(t *testing.T, id uint) int {
	var value model.OptionValue
	require.NoError(t, e.db.First(&value, id).Error)
	return value.StockQuantity
}

func (e *testEnv) reload(t *testing.T, orderID uint) *model.Order {
	order, err := e.orderRepo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	return order
}

// placeOrder puts quantity of product (with options) in the user's cart and
// checks out.
func (e *testEnv) placeOrder(t *testing.T, userID, addressID, productID uint, optionIDs []uint, quantity int, method model.PaymentMethod) *CreateOrderResult {
	ctx := context.Background()
	require.NoError(t, e.cart.AddItem(ctx, userID, productID, optionIDs, quantity))
	result, err := e.orders.CreateOrderFromCart(ctx, userID, addressID, method)
	require.NoError(t, err)
	return result
}
