package handler

import (
	"github.com/gin-gonic/gin"

	orderapp "github.com/taic/backend/internal/application/order"
	"github.com/taic/backend/internal/interfaces/http/middleware"
)

// CheckoutHandler handles cart quoting and order placement endpoints
type CheckoutHandler struct {
	BaseHandler
	checkoutService *orderapp.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkoutService *orderapp.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

// Quote godoc
// @Summary      Quote a cart
// @Description  Price a cart before checkout: per-line totals, shipping fee, platform fee
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        request body order.QuoteRequest true "Cart to price"
// @Success      200 {object} dto.Response{data=order.QuoteResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /checkout/quote [post]
func (h *CheckoutHandler) Quote(c *gin.Context) {
	var req orderapp.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	quote, err := h.checkoutService.Quote(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, quote)
}

// PlaceOrder godoc
// @Summary      Place an order
// @Description  Reserve stock, create the order and a Stripe payment intent for the cart
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        request body order.PlaceOrderRequest true "Cart and shipping address"
// @Success      201 {object} dto.Response{data=order.PlaceOrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /checkout [post]
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	buyerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	buyerEmail := middleware.GetJWTEmail(c)

	var req orderapp.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.checkoutService.PlaceOrder(c.Request.Context(), buyerID, buyerEmail, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}
