package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/catalog"
	"github.com/taic/backend/internal/domain/merchant"
	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/domain/shared/valueobject"
)

// ProductServiceConfig holds configuration for the listing service
type ProductServiceConfig struct {
	// ImageURLExpiry controls how long presigned image URLs embedded in
	// responses stay valid
	ImageURLExpiry time.Duration
}

// DefaultProductServiceConfig returns the default listing service configuration
func DefaultProductServiceConfig() ProductServiceConfig {
	return ProductServiceConfig{
		ImageURLExpiry: 1 * time.Hour,
	}
}

// ProductService handles listing management for merchants and catalog
// browsing for shoppers
type ProductService struct {
	productRepo    catalog.ProductRepository
	categoryRepo   catalog.CategoryRepository
	merchantRepo   merchant.MerchantRepository
	storageService ObjectStorageService
	eventPublisher shared.EventPublisher
	config         ProductServiceConfig
	logger         *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
	merchantRepo merchant.MerchantRepository,
	storageService ObjectStorageService,
	config ProductServiceConfig,
	logger *zap.Logger,
) *ProductService {
	return &ProductService{
		productRepo:    productRepo,
		categoryRepo:   categoryRepo,
		merchantRepo:   merchantRepo,
		storageService: storageService,
		config:         config,
		logger:         logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new draft listing for the merchant
func (s *ProductService) Create(ctx context.Context, merchantID uuid.UUID, req CreateProductRequest) (*ProductResponse, error) {
	exists, err := s.productRepo.ExistsBySKU(ctx, merchantID, req.SKU)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("SKU_ALREADY_EXISTS", "A listing with this SKU already exists")
	}

	exists, err = s.productRepo.ExistsBySlug(ctx, merchantID, req.Slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("SLUG_ALREADY_TAKEN", "A listing with this slug already exists")
	}

	if req.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("INVALID_CATEGORY", "Category not found")
			}
			return nil, err
		}
	}

	var product *catalog.Product
	if req.Price != nil {
		product, err = catalog.NewProductWithPrice(merchantID, req.Name, req.Slug, req.SKU, valueobject.NewMoneyUSD(*req.Price))
	} else {
		product, err = catalog.NewProduct(merchantID, req.Name, req.Slug, req.SKU)
	}
	if err != nil {
		return nil, err
	}

	if req.Description != "" {
		if err := product.Update(req.Name, req.Description); err != nil {
			return nil, err
		}
	}

	if req.CategoryID != nil {
		product.SetCategory(req.CategoryID)
	}

	if req.CompareAtPrice != nil && !req.CompareAtPrice.IsZero() {
		compareAt := valueobject.NewMoneyUSD(*req.CompareAtPrice)
		if err := product.SetCompareAtPrice(&compareAt); err != nil {
			return nil, err
		}
	}

	if req.Attributes != "" {
		if err := product.SetAttributes(req.Attributes); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("SLUG_ALREADY_TAKEN", "A listing with this slug or SKU already exists")
		}
		return nil, err
	}

	s.publishEvents(ctx, product)

	return ToProductResponse(product), nil
}

// Get retrieves one of the merchant's own listings
func (s *ProductService) Get(ctx context.Context, merchantID, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByIDForMerchant(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}

	response := ToProductResponse(product)
	s.enrichImageURLs(ctx, product, response)
	return response, nil
}

// GetPublic retrieves an active listing for the storefront. Listings that
// are not published are reported as not found.
func (s *ProductService) GetPublic(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if !product.IsActive() {
		return nil, shared.ErrNotFound
	}

	response := ToProductResponse(product)
	s.enrichImageURLs(ctx, product, response)
	return response, nil
}

// List retrieves the merchant's own listings with filtering and pagination
func (s *ProductService) List(ctx context.Context, merchantID uuid.UUID, filter ProductListFilter) (*shared.Paginated[ProductListResponse], error) {
	domainFilter := shared.DefaultFilter()
	domainFilter.Search = filter.Search

	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	if filter.CategoryID != nil {
		domainFilter.Filters["category_id"] = *filter.CategoryID
	}

	var (
		products []catalog.Product
		err      error
	)
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
		products, err = s.productRepo.FindByStatus(ctx, merchantID, catalog.ProductStatus(filter.Status), domainFilter)
	} else {
		products, err = s.productRepo.FindAllForMerchant(ctx, merchantID, domainFilter)
	}
	if err != nil {
		return nil, err
	}

	total, err := s.productRepo.CountForMerchant(ctx, merchantID, domainFilter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(s.toListResponses(ctx, products), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// ListPublic retrieves active listings for the storefront. A category
// filter includes listings from the whole category subtree.
func (s *ProductService) ListPublic(ctx context.Context, filter StorefrontFilter) (*shared.Paginated[ProductListResponse], error) {
	domainFilter := shared.DefaultFilter()
	domainFilter.Search = filter.Search
	domainFilter.OrderBy = "created_at"
	domainFilter.OrderDir = "desc"

	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	if filter.MerchantID != nil {
		domainFilter.Filters["merchant_id"] = *filter.MerchantID
	}
	if filter.MinPrice != nil {
		domainFilter.Filters["min_price"] = decimal.NewFromFloat(*filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		domainFilter.Filters["max_price"] = decimal.NewFromFloat(*filter.MaxPrice)
	}

	var (
		products []catalog.Product
		err      error
	)

	if filter.CategorySlug != "" {
		category, err := s.categoryRepo.FindBySlug(ctx, filter.CategorySlug)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("CATEGORY_NOT_FOUND", "Category not found")
			}
			return nil, err
		}

		descendants, err := s.categoryRepo.FindDescendants(ctx, category.ID)
		if err != nil {
			return nil, err
		}

		categoryIDs := make([]uuid.UUID, 0, len(descendants)+1)
		categoryIDs = append(categoryIDs, category.ID)
		for _, d := range descendants {
			categoryIDs = append(categoryIDs, d.ID)
		}
		domainFilter.Filters["category_ids"] = categoryIDs

		products, err = s.productRepo.FindActiveByCategory(ctx, categoryIDs, domainFilter)
		if err != nil {
			return nil, err
		}
	} else {
		products, err = s.productRepo.FindActive(ctx, domainFilter)
		if err != nil {
			return nil, err
		}
	}

	domainFilter.Filters["status"] = string(catalog.ProductStatusActive)
	total, err := s.productRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(s.toListResponses(ctx, products), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// Update updates one of the merchant's listings
func (s *ProductService) Update(ctx context.Context, merchantID, productID uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByIDForMerchant(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.Description != nil {
		name := product.Name
		description := product.Description
		if req.Name != nil {
			name = *req.Name
		}
		if req.Description != nil {
			description = *req.Description
		}
		if err := product.Update(name, description); err != nil {
			return nil, err
		}
	}

	if req.Slug != nil && *req.Slug != product.Slug {
		exists, err := s.productRepo.ExistsBySlug(ctx, merchantID, *req.Slug)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("SLUG_ALREADY_TAKEN", "A listing with this slug already exists")
		}
		if err := product.UpdateSlug(*req.Slug); err != nil {
			return nil, err
		}
	}

	if req.SKU != nil && *req.SKU != product.SKU {
		exists, err := s.productRepo.ExistsBySKU(ctx, merchantID, *req.SKU)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("SKU_ALREADY_EXISTS", "A listing with this SKU already exists")
		}
		if err := product.UpdateSKU(*req.SKU); err != nil {
			return nil, err
		}
	}

	if req.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("INVALID_CATEGORY", "Category not found")
			}
			return nil, err
		}
		product.SetCategory(req.CategoryID)
	}

	if req.Price != nil {
		if err := product.ChangePrice(valueobject.NewMoneyUSD(*req.Price)); err != nil {
			return nil, err
		}
	}

	if req.CompareAtPrice != nil {
		if req.CompareAtPrice.IsZero() {
			if err := product.SetCompareAtPrice(nil); err != nil {
				return nil, err
			}
		} else {
			compareAt := valueobject.NewMoneyUSD(*req.CompareAtPrice)
			if err := product.SetCompareAtPrice(&compareAt); err != nil {
				return nil, err
			}
		}
	}

	if req.Attributes != nil {
		if err := product.SetAttributes(*req.Attributes); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, product)

	response := ToProductResponse(product)
	s.enrichImageURLs(ctx, product, response)
	return response, nil
}

// Activate publishes a listing to the storefront. Only merchants in good
// standing may publish; suspension blocks it even though the listing data
// is otherwise complete.
func (s *ProductService) Activate(ctx context.Context, merchantID, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByIDForMerchant(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}

	m, err := s.merchantRepo.FindByID(ctx, merchantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("MERCHANT_NOT_FOUND", "Merchant not found")
		}
		return nil, err
	}
	if !m.CanSell() {
		return nil, shared.NewDomainError("MERCHANT_NOT_APPROVED", "Only approved merchants can publish listings")
	}

	if err := product.Activate(); err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, product)

	return ToProductResponse(product), nil
}

// Unpublish takes an active listing off the storefront and back to draft
func (s *ProductService) Unpublish(ctx context.Context, merchantID, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByIDForMerchant(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}

	if err := product.Unpublish(); err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, product)

	return ToProductResponse(product), nil
}

// Archive retires a listing. Archived listings stay readable for order
// history but cannot be published again.
func (s *ProductService) Archive(ctx context.Context, merchantID, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByIDForMerchant(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}

	if err := product.Archive(); err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, product)

	return ToProductResponse(product), nil
}

// Delete deletes a listing and its stored images. Active listings must be
// unpublished first. Orders are unaffected because they carry price and
// name snapshots.
func (s *ProductService) Delete(ctx context.Context, merchantID, productID uuid.UUID) error {
	product, err := s.productRepo.FindByIDForMerchant(ctx, merchantID, productID)
	if err != nil {
		return err
	}

	if product.IsActive() {
		return shared.NewDomainError("PRODUCT_ACTIVE", "Unpublish the listing before deleting it")
	}

	if err := s.productRepo.Delete(ctx, product.ID); err != nil {
		return err
	}

	// Best effort cleanup of stored objects
	for i := range product.Images {
		if err := s.storageService.DeleteObject(ctx, product.Images[i].StorageKey); err != nil {
			s.logger.Warn("Failed to delete image object from storage",
				zap.String("storage_key", product.Images[i].StorageKey),
				zap.Error(err))
		}
	}

	return nil
}

// toListResponses converts listings to list items with primary image URLs
func (s *ProductService) toListResponses(ctx context.Context, products []catalog.Product) []ProductListResponse {
	responses := make([]ProductListResponse, len(products))
	for i := range products {
		responses[i] = ToProductListResponse(&products[i])
		responses[i].PrimaryImageURL = s.primaryImageURL(ctx, &products[i])
	}
	return responses
}

// primaryImageURL returns a presigned URL for the listing's primary image,
// or empty when there is none
func (s *ProductService) primaryImageURL(ctx context.Context, product *catalog.Product) string {
	if s.storageService == nil {
		return ""
	}
	image := product.PrimaryImage()
	if image == nil {
		return ""
	}
	url, _, err := s.storageService.GenerateDownloadURL(ctx, image.StorageKey, s.config.ImageURLExpiry)
	if err != nil {
		s.logger.Warn("Failed to generate image URL",
			zap.String("storage_key", image.StorageKey),
			zap.Error(err))
		return ""
	}
	return url
}

// enrichImageURLs fills in presigned URLs for all uploaded images
func (s *ProductService) enrichImageURLs(ctx context.Context, product *catalog.Product, response *ProductResponse) {
	if s.storageService == nil {
		return
	}
	for i := range response.Images {
		image := findImage(product, response.Images[i].ID)
		if image == nil || !image.IsUploaded() {
			continue
		}
		url, _, err := s.storageService.GenerateDownloadURL(ctx, image.StorageKey, s.config.ImageURLExpiry)
		if err != nil {
			s.logger.Warn("Failed to generate image URL",
				zap.String("storage_key", image.StorageKey),
				zap.Error(err))
			continue
		}
		response.Images[i].URL = url
	}
}

// publishEvents publishes the listing's domain events
func (s *ProductService) publishEvents(ctx context.Context, product *catalog.Product) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range product.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish product event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	product.ClearDomainEvents()
}
