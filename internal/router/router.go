package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type Router struct {
	cartController       *controller.CartController
	orderController      *controller.OrderController
	paymentController    *controller.PaymentController
	addressController    *controller.AddressController
	adminOrderController *controller.AdminOrderController
	authMiddleware       *middleware.AuthMiddleware
	idempotencyStore     middleware.IdempotencyStore
	config               *config.Config
}

// NewRouter builds the HTTP surface. A nil idempotencyStore disables
// Idempotency-Key handling on order creation.
func NewRouter(
	cartController *controller.CartController,
	orderController *controller.OrderController,
	paymentController *controller.PaymentController,
	addressController *controller.AddressController,
	adminOrderController *controller.AdminOrderController,
	authMiddleware *middleware.AuthMiddleware,
	idempotencyStore middleware.IdempotencyStore,
	cfg *config.Config,
) *Router {
	return &Router{
		cartController:       cartController,
		orderController:      orderController,
		paymentController:    paymentController,
		addressController:    addressController,
		adminOrderController: adminOrderController,
		authMiddleware:       authMiddleware,
		idempotencyStore:     idempotencyStore,
		config:               cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "storefront API is running",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(r.authMiddleware.Authenticate())
	{
		cart := v1.Group("/cart")
		{
			cart.GET("", r.cartController.GetCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.POST("/items", r.cartController.AddToCart)
			cart.PUT("/items", r.cartController.UpdateCartItem)
			cart.DELETE("/items", r.cartController.RemoveFromCart)
		}

		orders := v1.Group("/orders")
		{
			orders.GET("", r.orderController.GetOrders)
			orders.GET("/:id", r.orderController.GetOrderByID)
			orders.POST("", r.createOrderHandlers()...)
			orders.POST("/:id/cancel", r.orderController.CancelOrder)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/:order_id/approve", r.paymentController.ApprovePayment)
			payments.POST("/:order_id/fail", r.paymentController.FailPayment)
		}

		addresses := v1.Group("/addresses")
		{
			addresses.GET("", r.addressController.ListAddresses)
			addresses.POST("", r.addressController.CreateAddress)
			addresses.PUT("/:id", r.addressController.UpdateAddress)
			addresses.DELETE("/:id", r.addressController.DeleteAddress)
			addresses.PUT("/:id/default", r.addressController.SetDefaultAddress)
		}

		admin := v1.Group("/admin", r.authMiddleware.RequireRole(model.RoleAdmin))
		{
			admin.GET("/orders", r.adminOrderController.ListOrders)
			admin.GET("/orders/export", r.adminOrderController.ExportOrders)
			admin.GET("/orders/:id", r.adminOrderController.GetOrder)
			admin.GET("/orders/:id/events", r.adminOrderController.ListEvents)
			admin.PUT("/orders/:id/status", r.adminOrderController.UpdateStatus)
			admin.POST("/orders/:id/cancel", r.adminOrderController.CancelOrder)
			admin.POST("/orders/:id/reconcile", r.adminOrderController.ResolveReconciliation)
		}
	}

	return router
}

func (r *Router) createOrderHandlers() []gin.HandlerFunc {
	if r.idempotencyStore == nil {
		return []gin.HandlerFunc{r.orderController.CreateOrder}
	}
	return []gin.HandlerFunc{middleware.Idempotency(r.idempotencyStore), r.orderController.CreateOrder}
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Idempotency-Key, X-Request-ID, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
