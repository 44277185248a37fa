package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/domain/shared/valueobject"
)

// ProductStatus represents the lifecycle status of a listing
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
)

// MaxProductImages is the maximum number of images per listing
const MaxProductImages = 12

// Product represents a merchant's listing in the catalog.
// It is the aggregate root for listing operations, including images.
type Product struct {
	shared.MerchantAggregateRoot
	Name           string           `gorm:"type:varchar(200);not null"`
	Slug           string           `gorm:"type:varchar(220);not null;uniqueIndex:idx_product_merchant_slug,priority:2"`
	SKU            string           `gorm:"type:varchar(64);not null;uniqueIndex:idx_product_merchant_sku,priority:2"`
	Description    string           `gorm:"type:text"`
	CategoryID     *uuid.UUID       `gorm:"type:uuid;index"`
	Price          decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	CompareAtPrice *decimal.Decimal `gorm:"type:decimal(18,4)"` // Strike-through price, must exceed Price when set
	Status         ProductStatus    `gorm:"type:varchar(20);not null;default:'draft'"`
	Attributes     string           `gorm:"type:jsonb"` // JSON storage for listing attributes (color, size, ...)
	AIGenerated    bool             `gorm:"not null;default:false"`
	Images         []ProductImage   `gorm:"foreignKey:ProductID"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new listing in draft status
func NewProduct(merchantID uuid.UUID, name, slug, sku string) (*Product, error) {
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if err := validateProductSlug(slug); err != nil {
		return nil, err
	}
	if err := validateSKU(sku); err != nil {
		return nil, err
	}

	product := &Product{
		MerchantAggregateRoot: shared.NewMerchantAggregateRoot(merchantID),
		Name:                  name,
		Slug:                  strings.ToLower(slug),
		SKU:                   strings.ToUpper(sku),
		Price:                 decimal.Zero,
		Status:                ProductStatusDraft,
		Attributes:            "{}",
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// NewProductWithPrice creates a new draft listing with a price
func NewProductWithPrice(merchantID uuid.UUID, name, slug, sku string, price valueobject.Money) (*Product, error) {
	product, err := NewProduct(merchantID, name, slug, sku)
	if err != nil {
		return nil, err
	}

	if err := product.ChangePrice(price); err != nil {
		return nil, err
	}

	return product, nil
}

// Update updates the listing's basic information
func (p *Product) Update(name, description string) error {
	if err := validateProductName(name); err != nil {
		return err
	}

	p.Name = name
	p.Description = description
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// UpdateSlug changes the listing's URL slug.
// Storefront links that embed the old slug will stop resolving.
func (p *Product) UpdateSlug(slug string) error {
	if err := validateProductSlug(slug); err != nil {
		return err
	}

	p.Slug = strings.ToLower(slug)
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// UpdateSKU changes the merchant's stock keeping unit for the listing.
// Order items snapshot the SKU at checkout, so past orders are unaffected.
func (p *Product) UpdateSKU(sku string) error {
	if err := validateSKU(sku); err != nil {
		return err
	}

	p.SKU = strings.ToUpper(sku)
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// SetCategory assigns the listing to a storefront category
func (p *Product) SetCategory(categoryID *uuid.UUID) {
	p.CategoryID = categoryID
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))
}

// ChangePrice updates the selling price
func (p *Product) ChangePrice(price valueobject.Money) error {
	if price.Amount().IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if p.CompareAtPrice != nil && price.Amount().GreaterThanOrEqual(*p.CompareAtPrice) {
		return shared.NewDomainError("INVALID_PRICE", "Price must be below the compare-at price")
	}

	oldPrice := p.Price
	p.Price = price.Amount()
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductPriceChangedEvent(p, oldPrice))

	return nil
}

// SetCompareAtPrice sets the strike-through price shown next to the
// selling price. Pass nil to clear it.
func (p *Product) SetCompareAtPrice(price *valueobject.Money) error {
	if price == nil {
		p.CompareAtPrice = nil
		p.Touch()
		p.IncrementVersion()
		return nil
	}

	amount := price.Amount()
	if !amount.GreaterThan(p.Price) {
		return shared.NewDomainError("INVALID_COMPARE_AT_PRICE", "Compare-at price must exceed the selling price")
	}

	p.CompareAtPrice = &amount
	p.Touch()
	p.IncrementVersion()

	return nil
}

// SetAttributes sets listing attributes as JSON
func (p *Product) SetAttributes(attributes string) error {
	if attributes == "" {
		attributes = "{}"
	}
	// Basic JSON validation - should start with { and end with }
	trimmed := strings.TrimSpace(attributes)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return shared.NewDomainError("INVALID_ATTRIBUTES", "Attributes must be a valid JSON object")
	}

	p.Attributes = trimmed
	p.Touch()
	p.IncrementVersion()

	return nil
}

// MarkAIGenerated flags the listing as drafted by the product idea assistant
func (p *Product) MarkAIGenerated() {
	p.AIGenerated = true
	p.Touch()
	p.IncrementVersion()
}

// AddImage registers a new image slot in pending upload state.
// The caller uploads the object to storage and then confirms it.
func (p *Product) AddImage(fileName, contentType string, fileSize int64, storageKey string) (*ProductImage, error) {
	if len(p.Images) >= MaxProductImages {
		return nil, shared.NewDomainError("MAX_IMAGES_EXCEEDED", "A listing cannot have more than 12 images")
	}

	image, err := NewProductImage(p.ID, fileName, contentType, fileSize, storageKey, len(p.Images))
	if err != nil {
		return nil, err
	}

	p.Images = append(p.Images, *image)
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductImageAddedEvent(p, image))

	return image, nil
}

// ConfirmImage marks an image as uploaded after the object landed in storage
func (p *Product) ConfirmImage(imageID uuid.UUID) error {
	for i := range p.Images {
		if p.Images[i].ID == imageID {
			if err := p.Images[i].MarkUploaded(); err != nil {
				return err
			}
			p.Touch()
			p.IncrementVersion()
			p.AddDomainEvent(NewProductImageUploadedEvent(p, &p.Images[i]))
			return nil
		}
	}
	return shared.NewDomainError("IMAGE_NOT_FOUND", "Image not found on this listing")
}

// RemoveImage removes an image and compacts the remaining positions
func (p *Product) RemoveImage(imageID uuid.UUID) error {
	for i := range p.Images {
		if p.Images[i].ID == imageID {
			removed := p.Images[i]
			p.Images = append(p.Images[:i], p.Images[i+1:]...)
			for j := range p.Images {
				p.Images[j].Position = j
			}
			p.Touch()
			p.IncrementVersion()
			p.AddDomainEvent(NewProductImageRemovedEvent(p, &removed))
			return nil
		}
	}
	return shared.NewDomainError("IMAGE_NOT_FOUND", "Image not found on this listing")
}

// HasUploadedImage returns true if at least one image finished uploading
func (p *Product) HasUploadedImage() bool {
	for i := range p.Images {
		if p.Images[i].IsUploaded() {
			return true
		}
	}
	return false
}

// PrimaryImage returns the first uploaded image by position, or nil
func (p *Product) PrimaryImage() *ProductImage {
	var primary *ProductImage
	for i := range p.Images {
		if !p.Images[i].IsUploaded() {
			continue
		}
		if primary == nil || p.Images[i].Position < primary.Position {
			primary = &p.Images[i]
		}
	}
	return primary
}

// Activate publishes the listing to the storefront.
// A listing needs a positive price and at least one uploaded image.
func (p *Product) Activate() error {
	if p.Status == ProductStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Listing is already published")
	}
	if !p.Price.IsPositive() {
		return shared.NewDomainError("PRICE_REQUIRED", "Listing needs a price greater than zero before publishing")
	}
	if !p.HasUploadedImage() {
		return shared.NewDomainError("IMAGE_REQUIRED", "Listing needs at least one uploaded image before publishing")
	}

	oldStatus := p.Status
	p.Status = ProductStatusActive
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductStatusChangedEvent(p, oldStatus, ProductStatusActive))

	return nil
}

// Unpublish takes the listing off the storefront back into draft
func (p *Product) Unpublish() error {
	if p.Status != ProductStatusActive {
		return shared.NewDomainError("NOT_ACTIVE", "Only published listings can be unpublished")
	}

	oldStatus := p.Status
	p.Status = ProductStatusDraft
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductStatusChangedEvent(p, oldStatus, ProductStatusDraft))

	return nil
}

// Archive retires the listing. Archived listings can be republished
// with Activate once they meet the publishing requirements again.
func (p *Product) Archive() error {
	if p.Status == ProductStatusArchived {
		return shared.NewDomainError("ALREADY_ARCHIVED", "Listing is already archived")
	}

	oldStatus := p.Status
	p.Status = ProductStatusArchived
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductStatusChangedEvent(p, oldStatus, ProductStatusArchived))

	return nil
}

// IsDraft returns true if the listing is in draft
func (p *Product) IsDraft() bool {
	return p.Status == ProductStatusDraft
}

// IsActive returns true if the listing is published
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// IsArchived returns true if the listing is archived
func (p *Product) IsArchived() bool {
	return p.Status == ProductStatusArchived
}

// HasCategory returns true if the listing has a category assigned
func (p *Product) HasCategory() bool {
	return p.CategoryID != nil
}

// GetPriceMoney returns the selling price as a Money value object
func (p *Product) GetPriceMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(p.Price)
}

// GetCompareAtPriceMoney returns the compare-at price as Money, or nil
func (p *Product) GetCompareAtPriceMoney() *valueobject.Money {
	if p.CompareAtPrice == nil {
		return nil
	}
	money := valueobject.NewMoneyUSD(*p.CompareAtPrice)
	return &money
}

// validateProductName validates the listing name
func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}

// validateProductSlug validates the listing URL slug
func validateProductSlug(slug string) error {
	if slug == "" {
		return shared.NewDomainError("INVALID_SLUG", "Product slug cannot be empty")
	}
	if len(slug) > 220 {
		return shared.NewDomainError("INVALID_SLUG", "Product slug cannot exceed 220 characters")
	}
	if !slugRegex.MatchString(strings.ToLower(slug)) {
		return shared.NewDomainError("INVALID_SLUG", "Product slug can only contain lowercase letters, numbers, and hyphens")
	}
	return nil
}

// validateSKU validates the merchant's stock keeping unit
func validateSKU(sku string) error {
	if sku == "" {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if len(sku) > 64 {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 64 characters")
	}
	// SKU should be alphanumeric with underscores and hyphens
	for _, r := range sku {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_SKU", "SKU can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}
