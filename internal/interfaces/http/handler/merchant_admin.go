package handler

import (
	"github.com/gin-gonic/gin"
	merchantapp "github.com/taic/backend/internal/application/merchant"
)

// MerchantAdminHandler handles merchant review and oversight endpoints
type MerchantAdminHandler struct {
	BaseHandler
	merchantService *merchantapp.MerchantService
}

// NewMerchantAdminHandler creates a new MerchantAdminHandler
func NewMerchantAdminHandler(merchantService *merchantapp.MerchantService) *MerchantAdminHandler {
	return &MerchantAdminHandler{
		merchantService: merchantService,
	}
}

// List godoc
// @Summary      List merchants
// @Description  Retrieve a paginated list of merchants with optional status filter
// @Tags         admin-merchants
// @Produce      json
// @Param        status query string false "Status filter" Enums(pending_review, approved, suspended, rejected)
// @Param        search query string false "Search keyword"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{data=[]merchant.MerchantResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/merchants [get]
func (h *MerchantAdminHandler) List(c *gin.Context) {
	var filter merchantapp.MerchantListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = 20
	}

	result, err := h.merchantService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, filter.Page, filter.PageSize)
}

// Get godoc
// @Summary      Get merchant by ID
// @Description  Retrieve full merchant details for review
// @Tags         admin-merchants
// @Produce      json
// @Param        id path string true "Merchant ID" format(uuid)
// @Success      200 {object} dto.Response{data=merchant.MerchantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/merchants/{id} [get]
func (h *MerchantAdminHandler) Get(c *gin.Context) {
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

// Approve godoc
// @Summary      Approve a merchant application
// @Description  Approve a pending merchant application
// @Tags         admin-merchants
// @Accept       json
// @Produce      json
// @Param        id path string true "Merchant ID" format(uuid)
// @Param        request body merchant.ApproveMerchantRequest false "Reviewer notes"
// @Success      200 {object} dto.Response{data=merchant.MerchantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/merchants/{id}/approve [post]
func (h *MerchantAdminHandler) Approve(c *gin.Context) {
	merchantID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid merchant ID format")
		return
	}

	reviewerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	// Body is optional; approval without notes is valid.
	var req merchantapp.ApproveMerchantRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.merchantService.Approve(c.Request.Context(), merchantID, reviewerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Reject godoc
// @Summary      Reject a merchant application
// @Description  Reject a pending merchant application with a reason
// @Tags         admin-merchants
// @Accept       json
// @Produce      json
// @Param        id path string true "Merchant ID" format(uuid)
// @Param        request body merchant.RejectMerchantRequest true "Rejection reason"
// @Success      200 {object} dto.Response{data=merchant.MerchantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/merchants/{id}/reject [post]
func (h *MerchantAdminHandler) Reject(c *gin.Context) {
	merchantID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid merchant ID format")
		return
	}

	reviewerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req merchantapp.RejectMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.merchantService.Reject(c.Request.Context(), merchantID, reviewerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Suspend godoc
// @Summary      Suspend a merchant
// @Description  Suspend an approved merchant and unpublish its listings
// @Tags         admin-merchants
// @Accept       json
// @Produce      json
// @Param        id path string true "Merchant ID" format(uuid)
// @Param        request body merchant.SuspendMerchantRequest true "Suspension reason"
// @Success      200 {object} dto.Response{data=merchant.MerchantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/merchants/{id}/suspend [post]
func (h *MerchantAdminHandler) Suspend(c *gin.Context) {
	merchantID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid merchant ID format")
		return
	}

	var req merchantapp.SuspendMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.merchantService.Suspend(c.Request.Context(), merchantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Reinstate godoc
// @Summary      Reinstate a suspended merchant
// @Description  Return a suspended merchant to approved status
// @Tags         admin-merchants
// @Produce      json
// @Param        id path string true "Merchant ID" format(uuid)
// @Success      200 {object} dto.Response{data=merchant.MerchantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/merchants/{id}/reinstate [post]
func (h *MerchantAdminHandler) Reinstate(c *gin.Context) {
	merchantID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid merchant ID format")
		return
	}

	result, err := h.merchantService.Reinstate(c.Request.Context(), merchantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// SetCommissionRate godoc
// @Summary      Set merchant commission rate
// @Description  Override the platform commission rate for a specific merchant
// @Tags         admin-merchants
// @Accept       json
// @Produce      json
// @Param        id path string true "Merchant ID" format(uuid)
// @Param        request body merchant.SetCommissionRateRequest true "Commission rate"
// @Success      200 {object} dto.Response{data=merchant.MerchantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/merchants/{id}/commission-rate [put]
func (h *MerchantAdminHandler) SetCommissionRate(c *gin.Context) {
	merchantID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid merchant ID format")
		return
	}

	var req merchantapp.SetCommissionRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.merchantService.SetCommissionRate(c.Request.Context(), merchantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
