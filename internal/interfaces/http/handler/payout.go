package handler

import (
	"github.com/gin-gonic/gin"

	payoutapp "github.com/taic/backend/internal/application/payout"
)

// PayoutHandler handles merchant balance, ledger and payout endpoints
type PayoutHandler struct {
	BaseHandler
	payoutService *payoutapp.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler
func NewPayoutHandler(payoutService *payoutapp.PayoutService) *PayoutHandler {
	return &PayoutHandler{
		payoutService: payoutService,
	}
}

// GetBalance godoc
// @Summary      Get balance
// @Description  Retrieve the authenticated merchant's available and pending payout balance
// @Tags         payouts
// @Produce      json
// @Success      200 {object} dto.Response{data=payout.BalanceResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/balance [get]
func (h *PayoutHandler) GetBalance(c *gin.Context) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Forbidden(c, "Merchant account required")
		return
	}

	balance, err := h.payoutService.GetBalance(c.Request.Context(), merchantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balance)
}

// ListLedger godoc
// @Summary      List ledger entries
// @Description  Retrieve the authenticated merchant's ledger entries, newest first
// @Tags         payouts
// @Produce      json
// @Param        type query string false "Entry type filter" Enums(sale_credit, payout_debit, refund_debit, adjustment)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{data=[]payout.LedgerEntryResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/ledger [get]
func (h *PayoutHandler) ListLedger(c *gin.Context) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Forbidden(c, "Merchant account required")
		return
	}

	var filter payoutapp.LedgerListFilter
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

	result, err := h.payoutService.ListLedger(c.Request.Context(), merchantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, filter.Page, filter.PageSize)
}

// RequestPayout godoc
// @Summary      Request a payout
// @Description  Queue a crypto payout from the merchant's available balance to the configured wallet
// @Tags         payouts
// @Accept       json
// @Produce      json
// @Param        request body payout.RequestPayoutRequest true "Payout amount"
// @Success      201 {object} dto.Response{data=payout.PayoutResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/payouts [post]
func (h *PayoutHandler) RequestPayout(c *gin.Context) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Forbidden(c, "Merchant account required")
		return
	}

	var req payoutapp.RequestPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	p, err := h.payoutService.RequestPayout(c.Request.Context(), merchantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, p)
}

// GetForMerchant godoc
// @Summary      Get own payout
// @Description  Retrieve one of the authenticated merchant's payouts by ID
// @Tags         payouts
// @Produce      json
// @Param        id path string true "Payout ID" format(uuid)
// @Success      200 {object} dto.Response{data=payout.PayoutResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/payouts/{id} [get]
func (h *PayoutHandler) GetForMerchant(c *gin.Context) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Forbidden(c, "Merchant account required")
		return
	}

	payoutID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid payout ID format")
		return
	}

	p, err := h.payoutService.GetForMerchant(c.Request.Context(), merchantID, payoutID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, p)
}

// ListForMerchant godoc
// @Summary      List own payouts
// @Description  Retrieve a paginated list of the authenticated merchant's payouts
// @Tags         payouts
// @Produce      json
// @Param        status query string false "Status filter" Enums(pending, processing, sent, failed)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{data=[]payout.PayoutResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/payouts [get]
func (h *PayoutHandler) ListForMerchant(c *gin.Context) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Forbidden(c, "Merchant account required")
		return
	}

	var filter payoutapp.PayoutListFilter
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

	result, err := h.payoutService.ListForMerchant(c.Request.Context(), merchantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, filter.Page, filter.PageSize)
}

// ListAll godoc
// @Summary      List all payouts
// @Description  Retrieve a paginated list of payouts across all merchants
// @Tags         admin
// @Produce      json
// @Param        status query string false "Status filter" Enums(pending, processing, sent, failed)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{data=[]payout.PayoutResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/payouts [get]
func (h *PayoutHandler) ListAll(c *gin.Context) {
	var filter payoutapp.PayoutListFilter
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

	result, err := h.payoutService.ListAll(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, filter.Page, filter.PageSize)
}
