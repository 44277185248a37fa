package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/taic/backend/internal/domain/catalog"
)

// ============================================================================
// Product Request DTOs
// ============================================================================

// CreateProductRequest represents a request to create a new listing
type CreateProductRequest struct {
	Name           string           `json:"name" binding:"required,min=1,max=200"`
	Slug           string           `json:"slug" binding:"required,min=1,max=220"`
	SKU            string           `json:"sku" binding:"required,min=1,max=64"`
	Description    string           `json:"description" binding:"max=5000"`
	CategoryID     *uuid.UUID       `json:"category_id"`
	Price          *decimal.Decimal `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price"`
	Attributes     string           `json:"attributes"`
}

// UpdateProductRequest represents a request to update a listing.
// Only provided fields are changed. Setting compare_at_price to zero
// clears the strike-through price.
type UpdateProductRequest struct {
	Name           *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Slug           *string          `json:"slug" binding:"omitempty,min=1,max=220"`
	SKU            *string          `json:"sku" binding:"omitempty,min=1,max=64"`
	Description    *string          `json:"description" binding:"omitempty,max=5000"`
	CategoryID     *uuid.UUID       `json:"category_id"`
	Price          *decimal.Decimal `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price"`
	Attributes     *string          `json:"attributes"`
}

// ProductListFilter represents filter options for a merchant's own listings
type ProductListFilter struct {
	Search     string     `form:"search"`
	Status     string     `form:"status" binding:"omitempty,oneof=draft active archived"`
	CategoryID *uuid.UUID `form:"category_id"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// StorefrontFilter represents filter options for public catalog browsing.
// Only active listings are ever returned.
type StorefrontFilter struct {
	Search       string     `form:"search"`
	CategorySlug string     `form:"category"`
	MerchantID   *uuid.UUID `form:"merchant_id"`
	MinPrice     *float64   `form:"min_price"`
	MaxPrice     *float64   `form:"max_price"`
	Page         int        `form:"page" binding:"omitempty,min=1"`
	PageSize     int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy      string     `form:"order_by"`
	OrderDir     string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ============================================================================
// Product Response DTOs
// ============================================================================

// ProductImageResponse represents a listing image in API responses
type ProductImageResponse struct {
	ID          uuid.UUID  `json:"id"`
	FileName    string     `json:"file_name"`
	ContentType string     `json:"content_type"`
	FileSize    int64      `json:"file_size"`
	AltText     string     `json:"alt_text,omitempty"`
	Position    int        `json:"position"`
	Status      string     `json:"status"`
	URL         string     `json:"url,omitempty"`
	UploadedAt  *time.Time `json:"uploaded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProductResponse represents a listing in API responses
type ProductResponse struct {
	ID             uuid.UUID              `json:"id"`
	MerchantID     uuid.UUID              `json:"merchant_id"`
	Name           string                 `json:"name"`
	Slug           string                 `json:"slug"`
	SKU            string                 `json:"sku"`
	Description    string                 `json:"description"`
	CategoryID     *uuid.UUID             `json:"category_id"`
	Price          decimal.Decimal        `json:"price"`
	CompareAtPrice *decimal.Decimal       `json:"compare_at_price,omitempty"`
	Status         string                 `json:"status"`
	Attributes     string                 `json:"attributes"`
	AIGenerated    bool                   `json:"ai_generated"`
	Images         []ProductImageResponse `json:"images"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	Version        int                    `json:"version"`
}

// ProductListResponse represents a list item for listings
type ProductListResponse struct {
	ID              uuid.UUID        `json:"id"`
	MerchantID      uuid.UUID        `json:"merchant_id"`
	Name            string           `json:"name"`
	Slug            string           `json:"slug"`
	SKU             string           `json:"sku"`
	Price           decimal.Decimal  `json:"price"`
	CompareAtPrice  *decimal.Decimal `json:"compare_at_price,omitempty"`
	Status          string           `json:"status"`
	AIGenerated     bool             `json:"ai_generated"`
	PrimaryImageURL string           `json:"primary_image_url,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// ToProductImageResponse converts a domain ProductImage to ProductImageResponse
func ToProductImageResponse(img *catalog.ProductImage) ProductImageResponse {
	return ProductImageResponse{
		ID:          img.ID,
		FileName:    img.FileName,
		ContentType: img.ContentType,
		FileSize:    img.FileSize,
		AltText:     img.AltText,
		Position:    img.Position,
		Status:      string(img.Status),
		UploadedAt:  img.UploadedAt,
		CreatedAt:   img.CreatedAt,
	}
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) *ProductResponse {
	images := make([]ProductImageResponse, len(p.Images))
	for i := range p.Images {
		images[i] = ToProductImageResponse(&p.Images[i])
	}

	return &ProductResponse{
		ID:             p.ID,
		MerchantID:     p.MerchantID,
		Name:           p.Name,
		Slug:           p.Slug,
		SKU:            p.SKU,
		Description:    p.Description,
		CategoryID:     p.CategoryID,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		Status:         string(p.Status),
		Attributes:     p.Attributes,
		AIGenerated:    p.AIGenerated,
		Images:         images,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		Version:        p.Version,
	}
}

// ToProductListResponse converts a domain Product to ProductListResponse
func ToProductListResponse(p *catalog.Product) ProductListResponse {
	return ProductListResponse{
		ID:             p.ID,
		MerchantID:     p.MerchantID,
		Name:           p.Name,
		Slug:           p.Slug,
		SKU:            p.SKU,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		Status:         string(p.Status),
		AIGenerated:    p.AIGenerated,
		CreatedAt:      p.CreatedAt,
	}
}

// ============================================================================
// Category DTOs
// ============================================================================

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name        string     `json:"name" binding:"required,min=1,max=100"`
	Slug        string     `json:"slug" binding:"required,min=1,max=120"`
	Description string     `json:"description" binding:"max=2000"`
	ParentID    *uuid.UUID `json:"parent_id"`
	SortOrder   *int       `json:"sort_order"`
}

// UpdateCategoryRequest represents a request to update a category
type UpdateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Slug        *string `json:"slug" binding:"omitempty,min=1,max=120"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	SortOrder   *int    `json:"sort_order"`
}

// CategoryListFilter represents filter options for the admin category list
type CategoryListFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
	Level       int        `json:"level"`
	SortOrder   int        `json:"sort_order"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Version     int        `json:"version"`
}

// CategoryTreeNode represents a category with its children for storefront navigation
type CategoryTreeNode struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Slug        string             `json:"slug"`
	Description string             `json:"description,omitempty"`
	ParentID    *uuid.UUID         `json:"parent_id,omitempty"`
	Level       int                `json:"level"`
	SortOrder   int                `json:"sort_order"`
	Children    []CategoryTreeNode `json:"children"`
}

// ToCategoryResponse converts a domain Category to CategoryResponse
func ToCategoryResponse(c *catalog.Category) *CategoryResponse {
	return &CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		ParentID:    c.ParentID,
		Level:       c.Level,
		SortOrder:   c.SortOrder,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Version:     c.Version,
	}
}

// ToCategoryResponses converts a slice of domain Categories to CategoryResponses
func ToCategoryResponses(categories []catalog.Category) []CategoryResponse {
	responses := make([]CategoryResponse, len(categories))
	for i := range categories {
		responses[i] = *ToCategoryResponse(&categories[i])
	}
	return responses
}

// ============================================================================
// Image Upload DTOs
// ============================================================================

// RequestImageUploadRequest represents a request for a presigned image upload URL
type RequestImageUploadRequest struct {
	FileName    string `json:"file_name" binding:"required,min=1,max=255"`
	ContentType string `json:"content_type" binding:"required"`
	FileSize    int64  `json:"file_size" binding:"required,gt=0"`
	AltText     string `json:"alt_text" binding:"max=255"`
}

// ImageUploadResponse represents the response from requesting an upload.
// The client PUTs the file to UploadURL and then confirms the upload.
type ImageUploadResponse struct {
	ImageID    uuid.UUID `json:"image_id"`
	UploadURL  string    `json:"upload_url"`
	StorageKey string    `json:"storage_key"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ImageURLResponse represents a temporary download URL for an image
type ImageURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
