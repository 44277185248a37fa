package handler

import (
	"github.com/gin-gonic/gin"
	inventoryapp "github.com/taic/backend/internal/application/inventory"
)

// InventoryHandler handles merchant inventory endpoints
type InventoryHandler struct {
	BaseHandler
	inventoryService *inventoryapp.InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService *inventoryapp.InventoryService) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
	}
}

// Receive godoc
// @Summary      Receive stock
// @Description  Add received units to a listing's on-hand stock
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body inventory.ReceiveStockRequest true "Received quantity"
// @Success      200 {object} dto.Response{data=inventory.InventoryItemResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/inventory/{id}/receive [post]
func (h *InventoryHandler) Receive(c *gin.Context) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Forbidden(c, "Merchant account required")
		return
	}

	productID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	var req inventoryapp.ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	item, err := h.inventoryService.Receive(c.Request.Context(), merchantID, productID, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, item)
}

// Adjust godoc
// @Summary      Adjust stock
// @Description  Correct on-hand stock to a physically counted quantity
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body inventory.AdjustStockRequest true "Counted quantity and reason"
// @Success      200 {object} dto.Response{data=inventory.InventoryItemResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/inventory/{id}/adjust [post]
func (h *InventoryHandler) Adjust(c *gin.Context) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Forbidden(c, "Merchant account required")
		return
	}

	productID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	var req inventoryapp.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	item, err := h.inventoryService.Adjust(c.Request.Context(), merchantID, productID, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, item)
}

// SetLowStockThreshold godoc
// @Summary      Set low-stock threshold
// @Description  Change the quantity at which a listing is flagged as low stock
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body inventory.SetLowStockThresholdRequest true "Threshold"
// @Success      200 {object} dto.Response{data=inventory.InventoryItemResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/inventory/{id}/threshold [put]
func (h *InventoryHandler) SetLowStockThreshold(c *gin.Context) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Forbidden(c, "Merchant account required")
		return
	}

	productID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	var req inventoryapp.SetLowStockThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	item, err := h.inventoryService.SetLowStockThreshold(c.Request.Context(), merchantID, productID, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, item)
}

// Get godoc
// @Summary      Get inventory for a listing
// @Description  Retrieve on-hand, reserved and available stock for one listing
// @Tags         inventory
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventory.InventoryItemResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/inventory/{id} [get]
func (h *InventoryHandler) Get(c *gin.Context) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Forbidden(c, "Merchant account required")
		return
	}

	productID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	item, err := h.inventoryService.Get(c.Request.Context(), merchantID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, item)
}

// List godoc
// @Summary      List inventory
// @Description  Retrieve a paginated view of the authenticated merchant's inventory
// @Tags         inventory
// @Produce      json
// @Param        search query string false "Search keyword"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{data=[]inventory.InventoryItemResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/inventory [get]
func (h *InventoryHandler) List(c *gin.Context) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Forbidden(c, "Merchant account required")
		return
	}

	var filter inventoryapp.InventoryListFilter
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

	result, err := h.inventoryService.List(c.Request.Context(), merchantID, &filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, filter.Page, filter.PageSize)
}

// ListLowStock godoc
// @Summary      List low-stock items
// @Description  Retrieve inventory items at or below their low-stock threshold
// @Tags         inventory
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{data=[]inventory.InventoryItemResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/inventory/low-stock [get]
func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Forbidden(c, "Merchant account required")
		return
	}

	var filter inventoryapp.InventoryListFilter
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

	result, err := h.inventoryService.ListLowStock(c.Request.Context(), merchantID, &filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, filter.Page, filter.PageSize)
}
