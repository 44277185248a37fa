package handler

import (
	"github.com/gin-gonic/gin"
	merchantapp "github.com/taic/backend/internal/application/merchant"
)

// MerchantHandler handles merchant self-service API endpoints
type MerchantHandler struct {
	BaseHandler
	merchantService *merchantapp.MerchantService
}

// NewMerchantHandler creates a new MerchantHandler
func NewMerchantHandler(merchantService *merchantapp.MerchantService) *MerchantHandler {
	return &MerchantHandler{
		merchantService: merchantService,
	}
}

// Apply godoc
// @Summary      Apply for a merchant account
// @Description  Submit a merchant application for the authenticated user
// @Tags         merchants
// @Accept       json
// @Produce      json
// @Param        request body merchant.ApplyMerchantRequest true "Merchant application"
// @Success      201 {object} dto.Response{data=merchant.MerchantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchants/apply [post]
func (h *MerchantHandler) Apply(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req merchantapp.ApplyMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.merchantService.Apply(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// GetProfile godoc
// @Summary      Get own merchant profile
// @Description  Retrieve the merchant account owned by the authenticated user
// @Tags         merchants
// @Produce      json
// @Success      200 {object} dto.Response{data=merchant.MerchantResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/profile [get]
func (h *MerchantHandler) GetProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	result, err := h.merchantService.GetByOwner(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// UpdateProfile godoc
// @Summary      Update merchant profile
// @Description  Update the storefront profile of the authenticated merchant
// @Tags         merchants
// @Accept       json
// @Produce      json
// @Param        request body merchant.UpdateProfileRequest true "Profile update"
// @Success      200 {object} dto.Response{data=merchant.MerchantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/profile [put]
func (h *MerchantHandler) UpdateProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req merchantapp.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.merchantService.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// UpdatePayoutSettings godoc
// @Summary      Update payout settings
// @Description  Set the stablecoin payout destination for the authenticated merchant
// @Tags         merchants
// @Accept       json
// @Produce      json
// @Param        request body merchant.UpdatePayoutSettingsRequest true "Payout settings"
// @Success      200 {object} dto.Response{data=merchant.MerchantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/payout-settings [put]
func (h *MerchantHandler) UpdatePayoutSettings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req merchantapp.UpdatePayoutSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.merchantService.UpdatePayoutSettings(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Dashboard godoc
// @Summary      Merchant dashboard
// @Description  Summarize the authenticated merchant's orders, sales and balance
// @Tags         merchants
// @Produce      json
// @Success      200 {object} dto.Response{data=merchant.DashboardResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/dashboard [get]
func (h *MerchantHandler) Dashboard(c *gin.Context) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Forbidden(c, "Merchant account required")
		return
	}

	result, err := h.merchantService.Dashboard(c.Request.Context(), merchantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetPublic godoc
// @Summary      Get a merchant storefront
// @Description  Retrieve a merchant's public storefront information by ID
// @Tags         merchants
// @Produce      json
// @Param        id path string true "Merchant ID" format(uuid)
// @Success      200 {object} dto.Response{data=merchant.MerchantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /merchants/{id} [get]
func (h *MerchantHandler) GetPublic(c *gin.Context) {
	merchantID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid merchant ID format")
		return
	}

	result, err := h.merchantService.GetByID(c.Request.Context(), merchantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
