package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/catalog"
	"github.com/taic/backend/internal/domain/inventory"
	"github.com/taic/backend/internal/domain/shared"
)

// InventoryService handles merchant-facing stock operations
type InventoryService struct {
	inventoryRepo  inventory.InventoryItemRepository
	productRepo    catalog.ProductRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	inventoryRepo inventory.InventoryItemRepository,
	productRepo catalog.ProductRepository,
	logger *zap.Logger,
) *InventoryService {
	return &InventoryService{
		inventoryRepo: inventoryRepo,
		productRepo:   productRepo,
		logger:        logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *InventoryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Receive adds received units to a listing's on-hand stock.
// The inventory row is created on first receipt.
func (s *InventoryService) Receive(ctx context.Context, merchantID, productID uuid.UUID, req *ReceiveStockRequest) (*InventoryItemResponse, error) {
	item, created, err := s.findOrCreateItem(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}

	if err := item.Receive(req.Quantity); err != nil {
		return nil, err
	}

	if err := s.saveItem(ctx, item, created); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, item)

	return ToInventoryItemResponse(item), nil
}

// Adjust corrects on-hand stock to a counted quantity.
// The new quantity cannot drop below the units currently reserved.
func (s *InventoryService) Adjust(ctx context.Context, merchantID, productID uuid.UUID, req *AdjustStockRequest) (*InventoryItemResponse, error) {
	item, created, err := s.findOrCreateItem(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}

	if err := item.Adjust(req.Quantity, req.Reason); err != nil {
		return nil, err
	}

	if err := s.saveItem(ctx, item, created); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, item)

	return ToInventoryItemResponse(item), nil
}

// SetLowStockThreshold changes the quantity below which low-stock alerts fire
func (s *InventoryService) SetLowStockThreshold(ctx context.Context, merchantID, productID uuid.UUID, req *SetLowStockThresholdRequest) (*InventoryItemResponse, error) {
	item, created, err := s.findOrCreateItem(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}

	if err := item.SetLowStockThreshold(req.Threshold); err != nil {
		return nil, err
	}

	if err := s.saveItem(ctx, item, created); err != nil {
		return nil, err
	}

	return ToInventoryItemResponse(item), nil
}

// Get returns the stock levels for one of the merchant's listings
func (s *InventoryService) Get(ctx context.Context, merchantID, productID uuid.UUID) (*InventoryItemResponse, error) {
	item, err := s.inventoryRepo.FindByProduct(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}
	return ToInventoryItemResponse(item), nil
}

// List returns the merchant's inventory items with pagination
func (s *InventoryService) List(ctx context.Context, merchantID uuid.UUID, filter *InventoryListFilter) (*shared.Paginated[*InventoryItemResponse], error) {
	domainFilter := s.toDomainFilter(filter)

	items, err := s.inventoryRepo.FindAllForMerchant(ctx, merchantID, domainFilter)
	if err != nil {
		return nil, err
	}

	total, err := s.inventoryRepo.CountForMerchant(ctx, merchantID, domainFilter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(toItemResponses(items), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// ListLowStock returns the merchant's items whose available units sit below their alert threshold
func (s *InventoryService) ListLowStock(ctx context.Context, merchantID uuid.UUID, filter *InventoryListFilter) (*shared.Paginated[*InventoryItemResponse], error) {
	domainFilter := s.toDomainFilter(filter)

	items, err := s.inventoryRepo.FindLowStock(ctx, merchantID, domainFilter)
	if err != nil {
		return nil, err
	}

	domainFilter.Filters["low_stock"] = true
	total, err := s.inventoryRepo.CountForMerchant(ctx, merchantID, domainFilter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(toItemResponses(items), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// findOrCreateItem loads the inventory row for a listing, creating it when the
// listing has never carried stock. Creation verifies the listing belongs to
// the merchant first.
func (s *InventoryService) findOrCreateItem(ctx context.Context, merchantID, productID uuid.UUID) (*inventory.InventoryItem, bool, error) {
	item, err := s.inventoryRepo.FindByProduct(ctx, merchantID, productID)
	if err == nil {
		return item, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	if _, err := s.productRepo.FindByIDForMerchant(ctx, merchantID, productID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, false, shared.NewDomainError("PRODUCT_NOT_FOUND", "Listing not found")
		}
		return nil, false, err
	}

	item, err = inventory.NewInventoryItem(merchantID, productID)
	if err != nil {
		return nil, false, err
	}
	return item, true, nil
}

// saveItem persists the item, using optimistic locking for existing rows
func (s *InventoryService) saveItem(ctx context.Context, item *inventory.InventoryItem, created bool) error {
	if created {
		return s.inventoryRepo.Save(ctx, item)
	}
	return s.inventoryRepo.SaveWithLock(ctx, item)
}

func (s *InventoryService) toDomainFilter(filter *InventoryListFilter) shared.Filter {
	domainFilter := shared.DefaultFilter()
	domainFilter.OrderBy = "updated_at"
	if filter != nil {
		if filter.Page > 0 {
			domainFilter.Page = filter.Page
		}
		if filter.PageSize > 0 {
			domainFilter.PageSize = filter.PageSize
		}
		domainFilter.Search = filter.Search
		if filter.OrderBy != "" {
			domainFilter.OrderBy = filter.OrderBy
		}
		if filter.OrderDir != "" {
			domainFilter.OrderDir = filter.OrderDir
		}
	}
	return domainFilter
}

func toItemResponses(items []inventory.InventoryItem) []*InventoryItemResponse {
	responses := make([]*InventoryItemResponse, len(items))
	for i := range items {
		responses[i] = ToInventoryItemResponse(&items[i])
	}
	return responses
}

func (s *InventoryService) publishEvents(ctx context.Context, item *inventory.InventoryItem) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range item.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish inventory event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	item.ClearDomainEvents()
}
