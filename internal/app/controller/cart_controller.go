package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type CartItemRequest struct {
	ProductID      uint   `json:"product_id" binding:"required"`
	OptionValueIDs []uint `json:"option_value_ids"`
	Quantity       int    `json:"quantity" binding:"required"`
}

type RemoveCartItemRequest struct {
	ProductID      uint   `json:"product_id" binding:"required"`
	OptionValueIDs []uint `json:"option_value_ids"`
}

// GetCart returns the cart with live prices and availability
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	view, err := ctrl.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.RespondOK(c, "", view)
}

// AddToCart adds a line or merges into an existing one
// POST /api/v1/cart/items
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := ctrl.cartService.AddItem(c.Request.Context(), userID, req.ProductID, req.OptionValueIDs, req.Quantity); err != nil {
		log.Warn("Failed to add item to cart", map[string]interface{}{
			"user_id":    userID,
			"product_id": req.ProductID,
			"error":      err.Error(),
		})
		errors.RespondWithDomainError(c, err)
		return
	}

	ctrl.respondWithCart(c, userID, http.StatusCreated, "장바구니에 담았습니다")
}

// UpdateCartItem sets the quantity of an existing line
// PUT /api/v1/cart/items
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := ctrl.cartService.UpdateItem(c.Request.Context(), userID, req.ProductID, req.OptionValueIDs, req.Quantity); err != nil {
		errors.RespondWithDomainError(c, err)
		return
	}

	ctrl.respondWithCart(c, userID, http.StatusOK, "장바구니를 수정했습니다")
}

// RemoveFromCart deletes one line
// DELETE /api/v1/cart/items
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req RemoveCartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := ctrl.cartService.RemoveItem(c.Request.Context(), userID, req.ProductID, req.OptionValueIDs); err != nil {
		errors.RespondWithDomainError(c, err)
		return
	}

	ctrl.respondWithCart(c, userID, http.StatusOK, "장바구니에서 삭제했습니다")
}

// ClearCart empties the cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := ctrl.cartService.ClearCart(c.Request.Context(), userID); err != nil {
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.RespondOK(c, "장바구니를 비웠습니다", nil)
}

func (ctrl *CartController) respondWithCart(c *gin.Context, userID uint, status int, message string) {
	view, err := ctrl.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.Respond(c, status, message, view)
}
