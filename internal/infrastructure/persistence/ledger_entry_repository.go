package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taic/backend/internal/domain/payout"
	"github.com/taic/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormLedgerEntryRepository implements LedgerEntryRepository using GORM.
// The ledger is append-only, there is no update or delete.
type GormLedgerEntryRepository struct {
	db *gorm.DB
}

// NewGormLedgerEntryRepository creates a new GormLedgerEntryRepository
func NewGormLedgerEntryRepository(db *gorm.DB) *GormLedgerEntryRepository {
	return &GormLedgerEntryRepository{db: db}
}

// Append inserts a new ledger entry
func (r *GormLedgerEntryRepository) Append(ctx context.Context, entry *payout.LedgerEntry) error {
	return translateError(r.db.WithContext(ctx).Create(entry).Error)
}

// FindByMerchant lists a merchant's ledger entries, newest first
func (r *GormLedgerEntryRepository) FindByMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) ([]payout.LedgerEntry, error) {
	var entries []payout.LedgerEntry
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&payout.LedgerEntry{}).
			Where("merchant_id = ?", merchantID),
		filter,
	)
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByPayout lists the entries referencing a payout
func (r *GormLedgerEntryRepository) FindByPayout(ctx context.Context, payoutID uuid.UUID) ([]payout.LedgerEntry, error) {
	var entries []payout.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("payout_id = ?", payoutID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByMerchant counts a merchant's ledger entries
func (r *GormLedgerEntryRepository) CountByMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&payout.LedgerEntry{}).Where("merchant_id = ?", merchantID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByOrderAndType checks whether the order already has an entry
// of the given type
func (r *GormLedgerEntryRepository) ExistsByOrderAndType(ctx context.Context, orderID uuid.UUID, entryType payout.LedgerEntryType) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&payout.LedgerEntry{}).
		Where("order_id = ? AND type = ?", orderID, entryType).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// AvailableBalance sums the merchant's entry amounts
func (r *GormLedgerEntryRepository) AvailableBalance(ctx context.Context, merchantID uuid.UUID) (decimal.Decimal, error) {
	return r.sumBalance(r.db.WithContext(ctx), merchantID)
}

// AvailableBalanceForUpdate sums the merchant's entry amounts while
// holding the merchant's ledger lock until the surrounding transaction
// ends. Row locks cannot serialize inserts into an append-only table,
// so the lock is a per-merchant advisory lock instead.
func (r *GormLedgerEntryRepository) AvailableBalanceForUpdate(ctx context.Context, merchantID uuid.UUID) (decimal.Decimal, error) {
	if err := r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", merchantID.String()).Error; err != nil {
		return decimal.Zero, err
	}
	return r.sumBalance(r.db.WithContext(ctx), merchantID)
}

func (r *GormLedgerEntryRepository) sumBalance(db *gorm.DB, merchantID uuid.UUID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	if err := db.Model(&payout.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("merchant_id = ?", merchantID).
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

// applyFilter applies filter options to the query
func (r *GormLedgerEntryRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, LedgerSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormLedgerEntryRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "type":
			query = query.Where("type = ?", value)
		case "order_id":
			query = query.Where("order_id = ?", value)
		case "payout_id":
			query = query.Where("payout_id = ?", value)
		case "created_after":
			query = query.Where("created_at >= ?", value)
		case "created_before":
			query = query.Where("created_at <= ?", value)
		}
	}

	return query
}

// Ensure GormLedgerEntryRepository implements LedgerEntryRepository
var _ payout.LedgerEntryRepository = (*GormLedgerEntryRepository)(nil)
