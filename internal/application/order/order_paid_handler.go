package order

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/inventory"
	"github.com/taic/backend/internal/domain/order"
	"github.com/taic/backend/internal/domain/shared"
)

// OrderPaidHandler commits the stock reservations backing an order once
// its payment succeeds. Committed units leave both reserved and on-hand.
type OrderPaidHandler struct {
	inventoryRepo  inventory.InventoryItemRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewOrderPaidHandler creates a new order paid handler
func NewOrderPaidHandler(inventoryRepo inventory.InventoryItemRepository, logger *zap.Logger) *OrderPaidHandler {
	return &OrderPaidHandler{
		inventoryRepo: inventoryRepo,
		logger:        logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (h *OrderPaidHandler) SetEventPublisher(publisher shared.EventPublisher) {
	h.eventPublisher = publisher
}

// EventTypes returns the event types this handler processes
func (h *OrderPaidHandler) EventTypes() []string {
	return []string{order.EventTypeOrderPaid}
}

// Handle commits every active reservation held for the paid order
func (h *OrderPaidHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	paidEvent, ok := event.(*order.OrderPaidEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", order.EventTypeOrderPaid),
			zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: expected %s, got %s", order.EventTypeOrderPaid, event.EventType())
	}

	items, err := h.inventoryRepo.FindByOrderReservations(ctx, paidEvent.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load reservations for order %s: %w", paidEvent.OrderNumber, err)
	}
	if len(items) == 0 {
		// Replayed event, or the reservation expired before payment landed
		h.logger.Warn("No active reservations found for paid order",
			zap.String("order_id", paidEvent.OrderID.String()),
			zap.String("order_number", paidEvent.OrderNumber))
		return nil
	}

	committed := 0
	for idx := range items {
		item := &items[idx]
		reservation := item.FindReservationByOrder(paidEvent.OrderID)
		if reservation == nil {
			continue
		}
		if err := item.Commit(reservation.ID); err != nil {
			return fmt.Errorf("failed to commit reservation for order %s: %w", paidEvent.OrderNumber, err)
		}
		if err := h.inventoryRepo.SaveWithLock(ctx, item); err != nil {
			return fmt.Errorf("failed to save inventory for order %s: %w", paidEvent.OrderNumber, err)
		}
		h.publishEvents(ctx, item)
		committed++
	}

	h.logger.Info("Stock committed for paid order",
		zap.String("order_id", paidEvent.OrderID.String()),
		zap.String("order_number", paidEvent.OrderNumber),
		zap.Int("reservations_committed", committed))

	return nil
}

func (h *OrderPaidHandler) publishEvents(ctx context.Context, item *inventory.InventoryItem) {
	if h.eventPublisher == nil {
		return
	}
	for _, event := range item.GetDomainEvents() {
		if err := h.eventPublisher.Publish(ctx, event); err != nil {
			h.logger.Warn("Failed to publish inventory event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	item.ClearDomainEvents()
}

var _ shared.EventHandler = (*OrderPaidHandler)(nil)
