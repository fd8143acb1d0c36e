package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubGateway accepts every payment call.
type stubGateway struct{}

func (stubGateway) Capture(_ context.Context, req service.CaptureRequest) (*service.CaptureResult, error) {
	if req.Method == model.PaymentMethodKakaoPay {
		return &service.CaptureResult{
			TID:           "T-" + req.OrderNumber,
			ClientSecret:  "https://pay.example/" + req.OrderNumber,
			PaymentStatus: model.PaymentStatusPendingIntent,
		}, nil
	}
	return &service.CaptureResult{PaymentStatus: model.PaymentStatusPending}, nil
}

func (stubGateway) Approve(_ context.Context, order *model.Order, _ string) (*service.ApprovalResult, error) {
	return &service.ApprovalResult{TID: order.PaymentTID, ApprovedAt: time.Now()}, nil
}

func (stubGateway) Refund(context.Context, *model.Order) error { return nil }

type controllerEnv struct {
	db        *gorm.DB
	router    *gin.Engine
	cart      service.CartService
	orders    service.OrderService
	lifecycle service.OrderLifecycle
	payments  service.PaymentService
}

// newControllerEnv wires every controller onto a router whose auth is
// replaced by the X-Test-User / X-Test-Role headers.
func newControllerEnv(t *testing.T) *controllerEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	productRepo := repository.NewProductRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)
	eventRepo := repository.NewOrderEventRepository(testDB)
	inventory := service.NewInventoryService(
		repository.NewInventoryRepository(testDB), productRepo, repository.NewOptionRepository(testDB), testDB)
	gateway := stubGateway{}

	env := &controllerEnv{
		db:   testDB,
		cart: service.NewCartService(cartRepo, productRepo, inventory),
		orders: service.NewOrderService(orderRepo, eventRepo, cartRepo, productRepo,
			repository.NewAddressRepository(testDB), inventory, gateway, testDB, service.OrderServiceConfig{}),
		lifecycle: service.NewOrderLifecycle(orderRepo, eventRepo, inventory, gateway, testDB, service.OrderLifecycleConfig{}),
		payments:  service.NewPaymentService(orderRepo, eventRepo, gateway, testDB, service.PaymentServiceConfig{}),
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if id, err := strconv.ParseUint(c.GetHeader("X-Test-User"), 10, 32); err == nil {
			c.Set(middleware.UserIDKey, uint(id))
			c.Set(middleware.UserRoleKey, model.UserRole(c.GetHeader("X-Test-Role")))
		}
		c.Next()
	})

	cartCtrl := NewCartController(env.cart)
	orderCtrl := NewOrderController(env.orders, env.lifecycle)
	paymentCtrl := NewPaymentController(env.payments, env.orders)
	adminCtrl := NewAdminOrderController(env.orders, env.lifecycle)

	router.GET("/cart", cartCtrl.GetCart)
	router.POST("/cart/items", cartCtrl.AddToCart)
	router.PUT("/cart/items", cartCtrl.UpdateCartItem)
	router.DELETE("/cart/items", cartCtrl.RemoveFromCart)
	router.DELETE("/cart", cartCtrl.ClearCart)

	router.GET("/orders", orderCtrl.GetOrders)
	router.POST("/orders", orderCtrl.CreateOrder)
	router.GET("/orders/:id", orderCtrl.GetOrderByID)
	router.POST("/orders/:id/cancel", orderCtrl.CancelOrder)

	router.POST("/payments/:order_id/approve", paymentCtrl.ApprovePayment)
	router.POST("/payments/:order_id/fail", paymentCtrl.FailPayment)

	router.GET("/admin/orders", adminCtrl.ListOrders)
	router.GET("/admin/orders/export", adminCtrl.ExportOrders)
	router.GET("/admin/orders/:id", adminCtrl.GetOrder)
	router.GET("/admin/orders/:id/events", adminCtrl.ListEvents)
	router.PUT("/admin/orders/:id/status", adminCtrl.UpdateStatus)
	router.POST("/admin/orders/:id/cancel", adminCtrl.CancelOrder)
	router.POST("/admin/orders/:id/reconcile", adminCtrl.ResolveReconciliation)

	env.router = router
	return env
}

func (e *controllerEnv) do(t *testing.T, method, path string, userID uint, body interface{}) *httptest.ResponseRecorder {
	reader := bytes.NewReader(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(userID), 10))
		req.Header.Set("X-Test-Role", string(model.RoleUser))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func (e *controllerEnv) seedUser(t *testing.T, email string) *model.User {
	user := &model.User{Email: email, Name: "Customer", Role: model.RoleUser}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *controllerEnv) seedAddress(t *testing.T, userID uint) *model.Address {
	address := &model.Address{UserID: userID, Recipient: "홍길동", Phone: "010-0000-0000", ZipCode: "06236", Address: "서울시 강남구"}
	require.NoError(t, e.db.Create(address).Error)
	return address
}

// seedShirt creates a product with one Size option type (M, L).
func (e *controllerEnv) seedShirt(t *testing.T, stock int) (*model.Product, []model.OptionValue) {
	product := &model.Product{Name: "T-Shirt", Price: 10000, StockQuantity: stock}
	require.NoError(t, e.db.Create(product).Error)
	optionType := &model.OptionType{ProductID: product.ID, Name: "Size", Values: []model.OptionValue{
		{ProductID: product.ID, Value: "M", AdditionalPrice: 1000, StockQuantity: 3},
		{ProductID: product.ID, Value: "L", StockQuantity: 3},
	}}
	require.NoError(t, e.db.Create(optionType).Error)
	return product, optionType.Values
}

func (e *controllerEnv) productStock(t *testing.T, id uint) int {
	var product model.Product
	require.NoError(t, e.db.Unscoped().First(&product, id).Error)
	return product.StockQuantity
}
