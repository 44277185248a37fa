package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/taic/backend/internal/domain/inventory"
	"github.com/taic/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormInventoryItemRepository implements InventoryItemRepository using GORM
type GormInventoryItemRepository struct {
	db *gorm.DB
}

// NewGormInventoryItemRepository creates a new GormInventoryItemRepository
func NewGormInventoryItemRepository(db *gorm.DB) *GormInventoryItemRepository {
	return &GormInventoryItemRepository{db: db}
}

// FindByID finds an inventory item by its ID
func (r *GormInventoryItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Preload("Reservations").
		First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByIDForMerchant finds an inventory item by ID within a merchant
func (r *GormInventoryItemRepository) FindByIDForMerchant(ctx context.Context, merchantID, id uuid.UUID) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Preload("Reservations").
		Where("merchant_id = ? AND id = ?", merchantID, id).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByProduct finds the inventory item for a merchant-product combination
func (r *GormInventoryItemRepository) FindByProduct(ctx context.Context, merchantID, productID uuid.UUID) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Preload("Reservations").
		Where("merchant_id = ? AND product_id = ?", merchantID, productID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByProducts finds inventory items for several products of one merchant
func (r *GormInventoryItemRepository) FindByProducts(ctx context.Context, merchantID uuid.UUID, productIDs []uuid.UUID) ([]inventory.InventoryItem, error) {
	if len(productIDs) == 0 {
		return []inventory.InventoryItem{}, nil
	}

	var items []inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Preload("Reservations").
		Where("merchant_id = ? AND product_id IN ?", merchantID, productIDs).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindAllForMerchant finds all inventory items for a merchant.
// Reservations are not loaded for list views.
func (r *GormInventoryItemRepository) FindAllForMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) ([]inventory.InventoryItem, error) {
	var items []inventory.InventoryItem
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&inventory.InventoryItem{}).
			Where("merchant_id = ?", merchantID),
		filter,
	)
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindLowStock finds items whose available units are below their threshold
func (r *GormInventoryItemRepository) FindLowStock(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) ([]inventory.InventoryItem, error) {
	var items []inventory.InventoryItem
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&inventory.InventoryItem{}).
			Where("merchant_id = ? AND low_stock_threshold > 0 AND (on_hand - reserved) < low_stock_threshold", merchantID),
		filter,
	)
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindByOrderReservations finds items holding active reservations for an order
func (r *GormInventoryItemRepository) FindByOrderReservations(ctx context.Context, orderID uuid.UUID) ([]inventory.InventoryItem, error) {
	subQuery := r.db.Model(&inventory.StockReservation{}).
		Select("DISTINCT inventory_item_id").
		Where("order_id = ? AND status = ?", orderID, inventory.ReservationStatusActive)

	var items []inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Preload("Reservations").
		Where("id IN (?)", subQuery).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindWithExpiredReservations finds items holding active reservations past
// their expiry, oldest expiry first
func (r *GormInventoryItemRepository) FindWithExpiredReservations(ctx context.Context, asOf time.Time, limit int) ([]inventory.InventoryItem, error) {
	if limit <= 0 {
		return []inventory.InventoryItem{}, nil
	}

	subQuery := r.db.Model(&inventory.StockReservation{}).
		Select("DISTINCT inventory_item_id").
		Where("status = ? AND expires_at <= ?", inventory.ReservationStatusActive, asOf)

	var items []inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Preload("Reservations").
		Where("id IN (?)", subQuery).
		Order("updated_at ASC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Save creates or updates an inventory item with its reservations.
// Reservations are never removed from an item, only upserted.
func (r *GormInventoryItemRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Reservations").Save(item).Error; err != nil {
			return translateError(err)
		}
		return saveReservations(tx, item)
	})
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormInventoryItemRepository) SaveWithLock(ctx context.Context, item *inventory.InventoryItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		currentVersion := item.Version
		result := tx.Model(&inventory.InventoryItem{}).
			Where("id = ? AND version = ?", item.ID, currentVersion).
			Updates(map[string]interface{}{
				"on_hand":             item.OnHand,
				"reserved":            item.Reserved,
				"low_stock_threshold": item.LowStockThreshold,
				"version":             currentVersion + 1,
				"updated_at":          item.UpdatedAt,
			})

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "Inventory item was modified by another transaction")
		}
		item.Version = currentVersion + 1

		return saveReservations(tx, item)
	})
}

// Delete deletes an inventory item and its reservations
func (r *GormInventoryItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("inventory_item_id = ?", id).Delete(&inventory.StockReservation{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&inventory.InventoryItem{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountForMerchant counts inventory items for a merchant
func (r *GormInventoryItemRepository) CountForMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&inventory.InventoryItem{}).Where("merchant_id = ?", merchantID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByProduct checks if inventory exists for a merchant-product combination
func (r *GormInventoryItemRepository) ExistsByProduct(ctx context.Context, merchantID, productID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.InventoryItem{}).
		Where("merchant_id = ? AND product_id = ?", merchantID, productID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func saveReservations(tx *gorm.DB, item *inventory.InventoryItem) error {
	for i := range item.Reservations {
		item.Reservations[i].InventoryItemID = item.ID
		if err := tx.Save(&item.Reservations[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormInventoryItemRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, InventorySortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormInventoryItemRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "product_id":
			query = query.Where("product_id = ?", value)
		case "low_stock":
			if value == true {
				query = query.Where("low_stock_threshold > 0 AND (on_hand - reserved) < low_stock_threshold")
			}
		case "out_of_stock":
			if value == true {
				query = query.Where("(on_hand - reserved) <= 0")
			}
		case "in_stock":
			if value == true {
				query = query.Where("(on_hand - reserved) > 0")
			}
		}
	}

	return query
}

// Ensure GormInventoryItemRepository implements InventoryItemRepository
var _ inventory.InventoryItemRepository = (*GormInventoryItemRepository)(nil)
