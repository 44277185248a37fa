package handler

import (
	"github.com/gin-gonic/gin"
	catalogapp "github.com/taic/backend/internal/application/catalog"
)

// ProductImageHandler handles listing image upload endpoints
type ProductImageHandler struct {
	BaseHandler
	imageService *catalogapp.ImageService
}

// NewProductImageHandler creates a new ProductImageHandler
func NewProductImageHandler(imageService *catalogapp.ImageService) *ProductImageHandler {
	return &ProductImageHandler{
		imageService: imageService,
	}
}

// RequestUpload godoc
// @Summary      Request an image upload
// @Description  Reserve an image slot and return a presigned upload URL
// @Tags         product-images
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalog.RequestImageUploadRequest true "Upload request"
// @Success      201 {object} dto.Response{data=catalog.ImageUploadResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/products/{id}/images [post]
func (h *ProductImageHandler) RequestUpload(c *gin.Context) {
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

	var req catalogapp.RequestImageUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.imageService.RequestUpload(c.Request.Context(), merchantID, productID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// ConfirmUpload godoc
// @Summary      Confirm an image upload
// @Description  Mark an image as uploaded after the client PUT to the presigned URL
// @Tags         product-images
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        imageId path string true "Image ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalog.ProductImageResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/products/{id}/images/{imageId}/confirm [post]
func (h *ProductImageHandler) ConfirmUpload(c *gin.Context) {
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

	imageID, err := parseUUIDParam(c, "imageId")
	if err != nil {
		h.BadRequest(c, "Invalid image ID format")
		return
	}

	result, err := h.imageService.ConfirmUpload(c.Request.Context(), merchantID, productID, imageID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetDownloadURL godoc
// @Summary      Get an image download URL
// @Description  Return a temporary download URL for an uploaded image
// @Tags         product-images
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        imageId path string true "Image ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalog.ImageURLResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/products/{id}/images/{imageId}/url [get]
func (h *ProductImageHandler) GetDownloadURL(c *gin.Context) {
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

	imageID, err := parseUUIDParam(c, "imageId")
	if err != nil {
		h.BadRequest(c, "Invalid image ID format")
		return
	}

	result, err := h.imageService.GetDownloadURL(c.Request.Context(), merchantID, productID, imageID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Delete godoc
// @Summary      Delete an image
// @Description  Remove an image from a listing and from storage
// @Tags         product-images
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        imageId path string true "Image ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/products/{id}/images/{imageId} [delete]
func (h *ProductImageHandler) Delete(c *gin.Context) {
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

	imageID, err := parseUUIDParam(c, "imageId")
	if err != nil {
		h.BadRequest(c, "Invalid image ID format")
		return
	}

	if err := h.imageService.Delete(c.Request.Context(), merchantID, productID, imageID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
