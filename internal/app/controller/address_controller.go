package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type AddressController struct {
	addressService service.AddressService
}

func NewAddressController(addressService service.AddressService) *AddressController {
	return &AddressController{
		addressService: addressService,
	}
}

type AddressRequest struct {
	Name          string `json:"name"`
	Recipient     string `json:"recipient" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	ZipCode       string `json:"zip_code"`
	Address       string `json:"address" binding:"required"`
	DetailAddress string `json:"detail_address"`
	IsDefault     bool   `json:"is_default"`
}

func (r AddressRequest) toModel() *model.Address {
	return &model.Address{
		Name:          r.Name,
		Recipient:     r.Recipient,
		Phone:         r.Phone,
		ZipCode:       r.ZipCode,
		Address:       r.Address,
		DetailAddress: r.DetailAddress,
		IsDefault:     r.IsDefault,
	}
}

// ListAddresses returns user's addresses, default first
// GET /api/v1/addresses
func (ctrl *AddressController) ListAddresses(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	addresses, err := ctrl.addressService.GetUserAddresses(c.Request.Context(), userID)
	if err != nil {
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.RespondOK(c, "", gin.H{
		"addresses": addresses,
		"count":     len(addresses),
	})
}

// CreateAddress adds an address to the address book
// POST /api/v1/addresses
func (ctrl *AddressController) CreateAddress(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req AddressRequest
	if !bindJSON(c, &req) {
		return
	}

	address := req.toModel()
	if err := ctrl.addressService.CreateAddress(c.Request.Context(), userID, address); err != nil {
		log.Warn("Failed to create address", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.Respond(c, http.StatusCreated, "배송지가 등록되었습니다", address)
}

// UpdateAddress replaces an address
// PUT /api/v1/addresses/:id
func (ctrl *AddressController) UpdateAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	addressID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AddressRequest
	if !bindJSON(c, &req) {
		return
	}

	address, err := ctrl.addressService.UpdateAddress(c.Request.Context(), userID, addressID, req.toModel())
	if err != nil {
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.RespondOK(c, "배송지가 수정되었습니다", address)
}

// DeleteAddress removes an address
// DELETE /api/v1/addresses/:id
func (ctrl *AddressController) DeleteAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	addressID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.addressService.DeleteAddress(c.Request.Context(), userID, addressID); err != nil {
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.RespondOK(c, "배송지가 삭제되었습니다", nil)
}

// SetDefaultAddress marks an address as the default
// PUT /api/v1/addresses/:id/default
func (ctrl *AddressController) SetDefaultAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	addressID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.addressService.SetDefaultAddress(c.Request.Context(), userID, addressID); err != nil {
		errors.RespondWithDomainError(c, err)
		return
	}
	errors.RespondOK(c, "기본 배송지가 변경되었습니다", nil)
}
