package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/router"
	"github.com/ikkim/storefront-backend/internal/scheduler"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/payment/kakaopay"
	redisstore "github.com/ikkim/storefront-backend/pkg/redis"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logger.Initialize(logger.Config{
		Level:       cfg.Server.LogLevel,
		Format:      cfg.Server.LogFormat,
		EnableColor: cfg.Server.Environment == "development",
	})

	logger.Info("Starting storefront backend server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   cfg.Server.LogLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis only backs Idempotency-Key replay; checkout works without it.
	var idempotencyStore middleware.IdempotencyStore
	if err := redisstore.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, Idempotency-Key handling disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		idempotencyStore = redisstore.NewIdempotencyStore(redisstore.GetClient(), cfg.Redis.IdempotencyTTL)
		defer func() {
			if err := redisstore.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
	}

	gateway := service.NewPaymentRouter(newKakaoPayClient(cfg))

	// Initialize repositories
	conn := db.GetDB()
	productRepo := repository.NewProductRepository(conn)
	optionRepo := repository.NewOptionRepository(conn)
	inventoryRepo := repository.NewInventoryRepository(conn)
	cartRepo := repository.NewCartRepository(conn)
	orderRepo := repository.NewOrderRepository(conn)
	eventRepo := repository.NewOrderEventRepository(conn)
	addressRepo := repository.NewAddressRepository(conn)

	// Initialize services
	inventoryService := service.NewInventoryService(inventoryRepo, productRepo, optionRepo, conn)
	cartService := service.NewCartService(cartRepo, productRepo, inventoryService)
	orderService := service.NewOrderService(orderRepo, eventRepo, cartRepo, productRepo, addressRepo,
		inventoryService, gateway, conn, service.OrderServiceConfig{PaymentTimeout: cfg.Payment.RequestTimeout})
	orderLifecycle := service.NewOrderLifecycle(orderRepo, eventRepo, inventoryService, gateway, conn,
		service.OrderLifecycleConfig{RefundTimeout: cfg.Payment.RefundTimeout})
	paymentService := service.NewPaymentService(orderRepo, eventRepo, gateway, conn,
		service.PaymentServiceConfig{RequestTimeout: cfg.Payment.RequestTimeout})
	addressService := service.NewAddressService(addressRepo)

	// Initialize controllers
	r := router.NewRouter(
		controller.NewCartController(cartService),
		controller.NewOrderController(orderService, orderLifecycle),
		controller.NewPaymentController(paymentService, orderService),
		controller.NewAddressController(addressService),
		controller.NewAdminOrderController(orderService, orderLifecycle),
		middleware.NewAuthMiddleware(cfg.JWT.Secret),
		idempotencyStore,
		cfg,
	)

	if cfg.Scheduler.Enabled {
		orderScheduler := scheduler.NewOrderScheduler(cfg.Scheduler, orderRepo, orderLifecycle)
		if err := orderScheduler.Start(); err != nil {
			logger.Fatal("Failed to start order scheduler", err)
		}
		defer orderScheduler.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	logger.Info("Server stopped successfully")
}

// newKakaoPayClient returns nil when no admin key is configured, which leaves
// kakaopay unavailable as a payment method.
func newKakaoPayClient(cfg *config.Config) *kakaopay.Client {
	kp := cfg.Payment.KakaoPay
	if kp.AdminKey == "" {
		logger.Warn("KAKAOPAY_ADMIN_KEY not set, kakaopay payments disabled")
		return nil
	}
	client, err := kakaopay.NewClient(kakaopay.Config{
		AdminKey:    kp.AdminKey,
		CID:         kp.CID,
		BaseURL:     kp.BaseURL,
		ApprovalURL: kp.ApprovalURL,
		FailURL:     kp.FailURL,
		CancelURL:   kp.CancelURL,
		Timeout:     cfg.Payment.RequestTimeout,
	})
	if err != nil {
		logger.Fatal("Failed to configure kakaopay client", err)
	}
	return client
}
