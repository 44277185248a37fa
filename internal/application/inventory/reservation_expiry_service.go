package inventory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/inventory"
	"github.com/taic/backend/internal/domain/shared"
)

// DefaultExpiryBatchSize caps how many inventory items one sweep processes
const DefaultExpiryBatchSize = 100

// ReservationExpiryService releases stock held by reservations whose
// checkout window has lapsed. It is intended to run periodically from
// the scheduler.
type ReservationExpiryService struct {
	inventoryRepo   inventory.InventoryItemRepository
	reservationRepo inventory.StockReservationRepository
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
	batchSize       int
}

// NewReservationExpiryService creates a new ReservationExpiryService
func NewReservationExpiryService(
	inventoryRepo inventory.InventoryItemRepository,
	reservationRepo inventory.StockReservationRepository,
	logger *zap.Logger,
) *ReservationExpiryService {
	return &ReservationExpiryService{
		inventoryRepo:   inventoryRepo,
		reservationRepo: reservationRepo,
		logger:          logger,
		batchSize:       DefaultExpiryBatchSize,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReservationExpiryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBatchSize overrides how many items one sweep processes
func (s *ReservationExpiryService) SetBatchSize(size int) {
	if size > 0 {
		s.batchSize = size
	}
}

// ExpiredReservationStats summarizes one expiry sweep
type ExpiredReservationStats struct {
	ItemsProcessed       int       `json:"items_processed"`
	ReservationsReleased int       `json:"reservations_released"`
	FailedItems          int       `json:"failed_items"`
	ProcessedAt          time.Time `json:"processed_at"`
}

// ReleaseExpired finds inventory items holding lapsed reservations and
// returns their units to available stock. Committed reservations are
// never touched. Items that fail to save are skipped and retried on the
// next sweep.
func (s *ReservationExpiryService) ReleaseExpired(ctx context.Context) (*ExpiredReservationStats, error) {
	now := time.Now()
	stats := &ExpiredReservationStats{ProcessedAt: now}

	items, err := s.inventoryRepo.FindWithExpiredReservations(ctx, now, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired reservations: %w", err)
	}

	if len(items) == 0 {
		s.logger.Debug("No expired stock reservations found")
		return stats, nil
	}

	s.logger.Info("Found items with expired stock reservations",
		zap.Int("count", len(items)))

	for idx := range items {
		item := &items[idx]

		released := item.ReleaseExpired(now)
		if released == 0 {
			continue
		}

		if err := s.inventoryRepo.SaveWithLock(ctx, item); err != nil {
			// Likely a concurrent checkout touched the row; the next sweep retries.
			s.logger.Error("Failed to save item after releasing expired reservations",
				zap.String("item_id", item.ID.String()),
				zap.String("product_id", item.ProductID.String()),
				zap.Error(err))
			stats.FailedItems++
			continue
		}

		s.publishEvents(ctx, item)

		stats.ItemsProcessed++
		stats.ReservationsReleased += released
	}

	s.logger.Info("Expired reservation release completed",
		zap.Int("items_processed", stats.ItemsProcessed),
		zap.Int("reservations_released", stats.ReservationsReleased),
		zap.Int("failed_items", stats.FailedItems))

	return stats, nil
}

// ActiveReservationCount returns how many reservations are currently
// holding stock across all merchants
func (s *ReservationExpiryService) ActiveReservationCount(ctx context.Context) (int64, error) {
	return s.reservationRepo.CountActive(ctx)
}

func (s *ReservationExpiryService) publishEvents(ctx context.Context, item *inventory.InventoryItem) {
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
