package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

func setupRouter() http.Handler {
	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: "test"},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
	r := NewRouter(
		controller.NewCartController(nil),
		controller.NewOrderController(nil, nil),
		controller.NewPaymentController(nil, nil),
		controller.NewAddressController(nil),
		controller.NewAdminOrderController(nil, nil),
		middleware.NewAuthMiddleware(testSecret),
		nil,
		cfg,
	)
	return r.Setup()
}

func bearer(t *testing.T, role model.UserRole) string {
	pair, err := util.GenerateTokenPair(7, "u@example.com", string(role), testSecret, time.Minute, time.Hour)
	require.NoError(t, err)
	return "Bearer " + pair.AccessToken
}

func TestRouter_Health(t *testing.T) {
	w := httptest.NewRecorder()
	setupRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_Guards(t *testing.T) {
	handler := setupRouter()

	tests := []struct {
		name       string
		method     string
		path       string
		auth       string
		wantStatus int
	}{
		{"cart needs a token", http.MethodGet, "/api/v1/cart", "", http.StatusUnauthorized},
		{"orders need a token", http.MethodPost, "/api/v1/orders", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/v1/orders", "Bearer nope", http.StatusUnauthorized},
		{"admin area rejects customers", http.MethodGet, "/api/v1/admin/orders", bearer(t, model.RoleUser), http.StatusForbidden},
		{"unknown route", http.MethodGet, "/api/v1/stores", bearer(t, model.RoleUser), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	setupRouter().ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}
