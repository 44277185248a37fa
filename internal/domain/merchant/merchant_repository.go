package merchant

import (
	"context"

	"github.com/google/uuid"
	"github.com/taic/backend/internal/domain/shared"
)

// MerchantRepository defines the interface for merchant persistence
type MerchantRepository interface {
	// FindByID finds a merchant by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Merchant, error)

	// FindBySlug finds a merchant by its storefront slug
	FindBySlug(ctx context.Context, slug string) (*Merchant, error)

	// FindByOwnerUserID finds the merchant owned by a user
	FindByOwnerUserID(ctx context.Context, ownerUserID uuid.UUID) (*Merchant, error)

	// FindByStatus finds merchants by status
	FindByStatus(ctx context.Context, status MerchantStatus, filter shared.Filter) ([]Merchant, error)

	// FindAll finds all merchants matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Merchant, error)

	// Save creates or updates a merchant
	Save(ctx context.Context, merchant *Merchant) error

	// SaveWithLock saves a merchant with optimistic locking (version check)
	// Returns error if the version has changed (concurrent modification)
	SaveWithLock(ctx context.Context, merchant *Merchant) error

	// Delete deletes a merchant
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts merchants matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByStatus counts merchants by status
	CountByStatus(ctx context.Context, status MerchantStatus) (int64, error)

	// ExistsBySlug checks if a merchant with the given slug exists
	ExistsBySlug(ctx context.Context, slug string) (bool, error)

	// ExistsByOwnerUserID checks if the user already owns a merchant
	ExistsByOwnerUserID(ctx context.Context, ownerUserID uuid.UUID) (bool, error)
}
