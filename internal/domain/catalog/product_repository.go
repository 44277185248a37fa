package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/taic/backend/internal/domain/shared"
)

// ProductRepository defines the interface for listing persistence.
// Find operations load the listing together with its images.
type ProductRepository interface {
	// FindByID finds a listing by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDForMerchant finds a listing by ID scoped to its owning merchant.
	// Returns shared.ErrNotFound when the listing belongs to another merchant.
	FindByIDForMerchant(ctx context.Context, merchantID, id uuid.UUID) (*Product, error)

	// FindBySlug finds a listing by merchant and URL slug
	FindBySlug(ctx context.Context, merchantID uuid.UUID, slug string) (*Product, error)

	// FindBySKU finds a listing by merchant and SKU
	FindBySKU(ctx context.Context, merchantID uuid.UUID, sku string) (*Product, error)

	// FindAll finds all listings matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)

	// FindAllForMerchant finds all listings owned by a merchant
	FindAllForMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) ([]Product, error)

	// FindActive finds published listings across all merchants for the storefront
	FindActive(ctx context.Context, filter shared.Filter) ([]Product, error)

	// FindActiveByCategory finds published listings in a category subtree
	FindActiveByCategory(ctx context.Context, categoryIDs []uuid.UUID, filter shared.Filter) ([]Product, error)

	// SearchActive finds published listings whose name or description
	// matches the query. Used to ground assistant answers in the catalog.
	SearchActive(ctx context.Context, query string, limit int) ([]Product, error)

	// FindByStatus finds a merchant's listings by lifecycle status
	FindByStatus(ctx context.Context, merchantID uuid.UUID, status ProductStatus, filter shared.Filter) ([]Product, error)

	// FindByIDs finds multiple listings by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// Save creates or updates a listing and reconciles its images
	Save(ctx context.Context, product *Product) error

	// Delete deletes a listing and its images
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts listings matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountForMerchant counts a merchant's listings
	CountForMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) (int64, error)

	// CountActiveForMerchant counts a merchant's published listings
	CountActiveForMerchant(ctx context.Context, merchantID uuid.UUID) (int64, error)

	// CountByCategory counts listings referencing a category
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)

	// ExistsBySKU checks if the merchant already uses the SKU
	ExistsBySKU(ctx context.Context, merchantID uuid.UUID, sku string) (bool, error)

	// ExistsBySlug checks if the merchant already uses the slug
	ExistsBySlug(ctx context.Context, merchantID uuid.UUID, slug string) (bool, error)
}
