package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInventoryMetricsProvider implements InventoryMetricsProvider using GORM.
// It queries the inventory_items table directly for aggregated metrics.
type GormInventoryMetricsProvider struct {
	db *gorm.DB
}

// NewGormInventoryMetricsProvider creates a new GormInventoryMetricsProvider.
func NewGormInventoryMetricsProvider(db *gorm.DB) *GormInventoryMetricsProvider {
	return &GormInventoryMetricsProvider{db: db}
}

// GetReservedQuantityByMerchant returns total reserved quantity per merchant.
func (p *GormInventoryMetricsProvider) GetReservedQuantityByMerchant(ctx context.Context) (map[uuid.UUID]int64, error) {
	type result struct {
		MerchantID uuid.UUID `gorm:"column:merchant_id"`
		Reserved   int64     `gorm:"column:reserved"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("inventory_items").
		Select("merchant_id, COALESCE(SUM(reserved), 0) as reserved").
		Where("deleted_at IS NULL").
		Group("merchant_id").
		Having("SUM(reserved) > 0").
		Find(&results).Error

	if err != nil {
		return nil, err
	}

	m := make(map[uuid.UUID]int64, len(results))
	for _, r := range results {
		m[r.MerchantID] = r.Reserved
	}

	return m, nil
}

// GetLowStockCount returns count of listings at or below their low stock
// threshold for a merchant. Listings with a zero threshold never count.
func (p *GormInventoryMetricsProvider) GetLowStockCount(ctx context.Context, merchantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("inventory_items").
		Where("merchant_id = ? AND deleted_at IS NULL", merchantID).
		Where("low_stock_threshold > 0 AND (on_hand - reserved) <= low_stock_threshold").
		Count(&count).Error

	return count, err
}

// GormMerchantProvider implements MerchantProvider using GORM.
type GormMerchantProvider struct {
	db *gorm.DB
}

// NewGormMerchantProvider creates a new GormMerchantProvider.
func NewGormMerchantProvider(db *gorm.DB) *GormMerchantProvider {
	return &GormMerchantProvider{db: db}
}

// GetActiveMerchantIDs returns all active merchant IDs.
func (p *GormMerchantProvider) GetActiveMerchantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("merchants").
		Select("id").
		Where("deleted_at IS NULL AND status = ?", "approved").
		Find(&ids).Error

	return ids, err
}
