package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/taic/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeProduct = "Product"

// Event type constants
const (
	EventTypeProductCreated       = "ProductCreated"
	EventTypeProductUpdated       = "ProductUpdated"
	EventTypeProductPriceChanged  = "ProductPriceChanged"
	EventTypeProductStatusChanged = "ProductStatusChanged"
	EventTypeProductImageAdded    = "ProductImageAdded"
	EventTypeProductImageUploaded = "ProductImageUploaded"
	EventTypeProductImageRemoved  = "ProductImageRemoved"
)

// ProductCreatedEvent is published when a new listing is created
type ProductCreatedEvent struct {
	shared.BaseDomainEvent
	ProductID   uuid.UUID `json:"product_id"`
	MerchantID  uuid.UUID `json:"merchant_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	SKU         string    `json:"sku"`
	AIGenerated bool      `json:"ai_generated"`
}

// NewProductCreatedEvent creates a new ProductCreatedEvent
func NewProductCreatedEvent(product *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCreated, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		MerchantID:      product.MerchantID,
		Name:            product.Name,
		Slug:            product.Slug,
		SKU:             product.SKU,
		AIGenerated:     product.AIGenerated,
	}
}

// ProductUpdatedEvent is published when listing details change
type ProductUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID `json:"product_id"`
	MerchantID uuid.UUID `json:"merchant_id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	SKU        string    `json:"sku"`
}

// NewProductUpdatedEvent creates a new ProductUpdatedEvent
func NewProductUpdatedEvent(product *Product) *ProductUpdatedEvent {
	return &ProductUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductUpdated, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		MerchantID:      product.MerchantID,
		Name:            product.Name,
		Slug:            product.Slug,
		SKU:             product.SKU,
	}
}

// ProductPriceChangedEvent is published when the selling price changes
type ProductPriceChangedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID       `json:"product_id"`
	MerchantID uuid.UUID       `json:"merchant_id"`
	OldPrice   decimal.Decimal `json:"old_price"`
	NewPrice   decimal.Decimal `json:"new_price"`
	Currency   string          `json:"currency"`
}

// NewProductPriceChangedEvent creates a new ProductPriceChangedEvent
func NewProductPriceChangedEvent(product *Product, oldPrice decimal.Decimal) *ProductPriceChangedEvent {
	return &ProductPriceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductPriceChanged, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		MerchantID:      product.MerchantID,
		OldPrice:        oldPrice,
		NewPrice:        product.Price,
		Currency:        string(product.GetPriceMoney().Currency()),
	}
}

// ProductStatusChangedEvent is published when the listing lifecycle status changes
type ProductStatusChangedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID     `json:"product_id"`
	MerchantID uuid.UUID     `json:"merchant_id"`
	SKU        string        `json:"sku"`
	OldStatus  ProductStatus `json:"old_status"`
	NewStatus  ProductStatus `json:"new_status"`
}

// NewProductStatusChangedEvent creates a new ProductStatusChangedEvent
func NewProductStatusChangedEvent(product *Product, oldStatus, newStatus ProductStatus) *ProductStatusChangedEvent {
	return &ProductStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductStatusChanged, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		MerchantID:      product.MerchantID,
		SKU:             product.SKU,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}

// ProductImageAddedEvent is published when an image slot is registered
type ProductImageAddedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID `json:"product_id"`
	MerchantID uuid.UUID `json:"merchant_id"`
	ImageID    uuid.UUID `json:"image_id"`
	StorageKey string    `json:"storage_key"`
	Position   int       `json:"position"`
}

// NewProductImageAddedEvent creates a new ProductImageAddedEvent
func NewProductImageAddedEvent(product *Product, image *ProductImage) *ProductImageAddedEvent {
	return &ProductImageAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductImageAdded, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		MerchantID:      product.MerchantID,
		ImageID:         image.ID,
		StorageKey:      image.StorageKey,
		Position:        image.Position,
	}
}

// ProductImageUploadedEvent is published when an image upload is confirmed
type ProductImageUploadedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID `json:"product_id"`
	MerchantID uuid.UUID `json:"merchant_id"`
	ImageID    uuid.UUID `json:"image_id"`
	StorageKey string    `json:"storage_key"`
}

// NewProductImageUploadedEvent creates a new ProductImageUploadedEvent
func NewProductImageUploadedEvent(product *Product, image *ProductImage) *ProductImageUploadedEvent {
	return &ProductImageUploadedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductImageUploaded, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		MerchantID:      product.MerchantID,
		ImageID:         image.ID,
		StorageKey:      image.StorageKey,
	}
}

// ProductImageRemovedEvent is published when an image is removed from a listing
type ProductImageRemovedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID `json:"product_id"`
	MerchantID uuid.UUID `json:"merchant_id"`
	ImageID    uuid.UUID `json:"image_id"`
	StorageKey string    `json:"storage_key"`
}

// NewProductImageRemovedEvent creates a new ProductImageRemovedEvent
func NewProductImageRemovedEvent(product *Product, image *ProductImage) *ProductImageRemovedEvent {
	return &ProductImageRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductImageRemoved, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		MerchantID:      product.MerchantID,
		ImageID:         image.ID,
		StorageKey:      image.StorageKey,
	}
}
