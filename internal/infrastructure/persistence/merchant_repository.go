package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taic/backend/internal/domain/merchant"
	"github.com/taic/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormMerchantRepository implements MerchantRepository using GORM
type GormMerchantRepository struct {
	db *gorm.DB
}

// NewGormMerchantRepository creates a new GormMerchantRepository
func NewGormMerchantRepository(db *gorm.DB) *GormMerchantRepository {
	return &GormMerchantRepository{db: db}
}

// FindByID finds a merchant by its ID
func (r *GormMerchantRepository) FindByID(ctx context.Context, id uuid.UUID) (*merchant.Merchant, error) {
	var m merchant.Merchant
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// FindBySlug finds a merchant by its storefront slug
func (r *GormMerchantRepository) FindBySlug(ctx context.Context, slug string) (*merchant.Merchant, error) {
	var m merchant.Merchant
	if err := r.db.WithContext(ctx).
		Where("slug = ?", strings.ToLower(slug)).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// FindByOwnerUserID finds the merchant owned by a user
func (r *GormMerchantRepository) FindByOwnerUserID(ctx context.Context, ownerUserID uuid.UUID) (*merchant.Merchant, error) {
	var m merchant.Merchant
	if err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// FindByStatus finds merchants by status
func (r *GormMerchantRepository) FindByStatus(ctx context.Context, status merchant.MerchantStatus, filter shared.Filter) ([]merchant.Merchant, error) {
	var merchants []merchant.Merchant
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&merchant.Merchant{}).Where("status = ?", status),
		filter,
	)
	if err := query.Find(&merchants).Error; err != nil {
		return nil, err
	}
	return merchants, nil
}

// FindAll finds all merchants matching the filter
func (r *GormMerchantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]merchant.Merchant, error) {
	var merchants []merchant.Merchant
	query := r.applyFilter(r.db.WithContext(ctx).Model(&merchant.Merchant{}), filter)
	if err := query.Find(&merchants).Error; err != nil {
		return nil, err
	}
	return merchants, nil
}

// Save creates or updates a merchant. A taken slug or owner returns
// shared.ErrAlreadyExists.
func (r *GormMerchantRepository) Save(ctx context.Context, m *merchant.Merchant) error {
	return translateError(r.db.WithContext(ctx).Save(m).Error)
}

// SaveWithLock saves a merchant with optimistic locking (version check)
func (r *GormMerchantRepository) SaveWithLock(ctx context.Context, m *merchant.Merchant) error {
	currentVersion := m.Version
	m.Version++
	m.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).Model(&merchant.Merchant{}).
		Where("id = ? AND version = ?", m.ID, currentVersion).
		Updates(map[string]interface{}{
			"business_name":            m.BusinessName,
			"slug":                     m.Slug,
			"description":              m.Description,
			"logo_url":                 m.LogoURL,
			"contact_email":            m.ContactEmail,
			"contact_phone":            m.ContactPhone,
			"status":                   m.Status,
			"commission_rate":          m.CommissionRate,
			"payout_currency":          m.PayoutSettings.Currency,
			"payout_wallet_address":    m.PayoutSettings.WalletAddress,
			"payout_min_payout_amount": m.PayoutSettings.MinPayoutAmount,
			"reviewed_at":              m.ReviewedAt,
			"reviewed_by":              m.ReviewedBy,
			"review_notes":             m.ReviewNotes,
			"version":                  m.Version,
			"updated_at":               m.UpdatedAt,
		})
	if result.Error != nil {
		m.Version = currentVersion
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		m.Version = currentVersion
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The merchant has been modified by another user")
	}
	return nil
}

// Delete deletes a merchant
func (r *GormMerchantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&merchant.Merchant{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts merchants matching the filter
func (r *GormMerchantRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&merchant.Merchant{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts merchants by status
func (r *GormMerchantRepository) CountByStatus(ctx context.Context, status merchant.MerchantStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&merchant.Merchant{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsBySlug checks if a merchant with the given slug exists
func (r *GormMerchantRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&merchant.Merchant{}).
		Where("slug = ?", strings.ToLower(slug)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsByOwnerUserID checks if the user already owns a merchant
func (r *GormMerchantRepository) ExistsByOwnerUserID(ctx context.Context, ownerUserID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&merchant.Merchant{}).
		Where("owner_user_id = ?", ownerUserID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter options to the query
func (r *GormMerchantRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, MerchantSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormMerchantRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("business_name ILIKE ? OR slug ILIKE ? OR contact_email ILIKE ?",
			pattern, pattern, pattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "owner_user_id":
			query = query.Where("owner_user_id = ?", value)
		}
	}

	return query
}

// Ensure GormMerchantRepository implements MerchantRepository
var _ merchant.MerchantRepository = (*GormMerchantRepository)(nil)
