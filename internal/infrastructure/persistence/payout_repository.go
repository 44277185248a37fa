package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taic/backend/internal/domain/payout"
	"github.com/taic/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormPayoutRepository implements PayoutRepository using GORM
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewGormPayoutRepository creates a new GormPayoutRepository
func NewGormPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// FindByID retrieves a payout by its ID
func (r *GormPayoutRepository) FindByID(ctx context.Context, id uuid.UUID) (*payout.Payout, error) {
	var p payout.Payout
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByIDForMerchant retrieves a payout by ID within a merchant
func (r *GormPayoutRepository) FindByIDForMerchant(ctx context.Context, merchantID, id uuid.UUID) (*payout.Payout, error) {
	var p payout.Payout
	if err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND id = ?", merchantID, id).
		First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByMerchant lists a merchant's payouts
func (r *GormPayoutRepository) FindByMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) ([]payout.Payout, error) {
	var payouts []payout.Payout
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&payout.Payout{}).
			Where("merchant_id = ?", merchantID),
		filter,
	)
	if err := query.Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

// FindAll lists payouts across merchants (admin)
func (r *GormPayoutRepository) FindAll(ctx context.Context, filter shared.Filter) ([]payout.Payout, error) {
	var payouts []payout.Payout
	query := r.applyFilter(r.db.WithContext(ctx).Model(&payout.Payout{}), filter)
	if err := query.Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

// Count counts payouts across merchants (admin)
func (r *GormPayoutRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&payout.Payout{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindDue lists pending payouts whose next attempt time has passed,
// oldest first, up to limit. A null next attempt time means the payout
// has never been tried.
func (r *GormPayoutRepository) FindDue(ctx context.Context, asOf time.Time, limit int) ([]*payout.Payout, error) {
	if limit <= 0 {
		return []*payout.Payout{}, nil
	}

	var payouts []*payout.Payout
	if err := r.db.WithContext(ctx).
		Where("status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)",
			payout.PayoutStatusPending, asOf).
		Order("created_at ASC").
		Limit(limit).
		Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

// PendingTotal sums the amounts of a merchant's in-flight payouts
func (r *GormPayoutRepository) PendingTotal(ctx context.Context, merchantID uuid.UUID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&payout.Payout{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("merchant_id = ? AND status IN ?", merchantID,
			[]payout.PayoutStatus{payout.PayoutStatusPending, payout.PayoutStatusProcessing}).
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

// Save persists a payout. A reused idempotency key trips the unique
// index and comes back as shared.ErrAlreadyExists.
func (r *GormPayoutRepository) Save(ctx context.Context, p *payout.Payout) error {
	return translateError(r.db.WithContext(ctx).Save(p).Error)
}

// SaveWithLock persists a payout with optimistic concurrency control
func (r *GormPayoutRepository) SaveWithLock(ctx context.Context, p *payout.Payout) error {
	currentVersion := p.Version
	result := r.db.WithContext(ctx).
		Model(&payout.Payout{}).
		Where("id = ? AND version = ?", p.ID, currentVersion).
		Updates(map[string]interface{}{
			"status":               p.Status,
			"attempts":             p.Attempts,
			"next_attempt_at":      p.NextAttemptAt,
			"treasury_transfer_id": p.TreasuryTransferID,
			"tx_hash":              p.TxHash,
			"failure_reason":       p.FailureReason,
			"sent_at":              p.SentAt,
			"version":              currentVersion + 1,
			"updated_at":           p.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "Payout was modified by another transaction")
	}
	p.Version = currentVersion + 1
	return nil
}

// CountByMerchant counts a merchant's payouts
func (r *GormPayoutRepository) CountByMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&payout.Payout{}).Where("merchant_id = ?", merchantID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormPayoutRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, PayoutSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormPayoutRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "merchant_id":
			query = query.Where("merchant_id = ?", value)
		case "currency":
			query = query.Where("crypto_currency = ?", value)
		case "created_after":
			query = query.Where("created_at >= ?", value)
		case "created_before":
			query = query.Where("created_at <= ?", value)
		}
	}

	return query
}

// Ensure GormPayoutRepository implements PayoutRepository
var _ payout.PayoutRepository = (*GormPayoutRepository)(nil)
