package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/inventory"
	"github.com/taic/backend/internal/domain/order"
	"github.com/taic/backend/internal/domain/shared"
)

// PaymentRefunder returns a captured payment to the buyer.
// Implemented by the payment application service.
type PaymentRefunder interface {
	RefundOrderPayment(ctx context.Context, orderID uuid.UUID) error
}

// OrderCancelledHandler releases the stock reservations held by a
// cancelled order and, when the order had already been paid, initiates
// a refund of the captured payment.
type OrderCancelledHandler struct {
	inventoryRepo  inventory.InventoryItemRepository
	refunder       PaymentRefunder
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewOrderCancelledHandler creates a new order cancelled handler
func NewOrderCancelledHandler(inventoryRepo inventory.InventoryItemRepository, refunder PaymentRefunder, logger *zap.Logger) *OrderCancelledHandler {
	return &OrderCancelledHandler{
		inventoryRepo: inventoryRepo,
		refunder:      refunder,
		logger:        logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (h *OrderCancelledHandler) SetEventPublisher(publisher shared.EventPublisher) {
	h.eventPublisher = publisher
}

// EventTypes returns the event types this handler processes
func (h *OrderCancelledHandler) EventTypes() []string {
	return []string{order.EventTypeOrderCancelled}
}

// Handle releases the order's reservations and refunds paid orders
func (h *OrderCancelledHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	cancelEvent, ok := event.(*order.OrderCancelledEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", order.EventTypeOrderCancelled),
			zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: expected %s, got %s", order.EventTypeOrderCancelled, event.EventType())
	}

	items, err := h.inventoryRepo.FindByOrderReservations(ctx, cancelEvent.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load reservations for order %s: %w", cancelEvent.OrderNumber, err)
	}

	released := 0
	for idx := range items {
		item := &items[idx]
		reservation := item.FindReservationByOrder(cancelEvent.OrderID)
		if reservation == nil {
			continue
		}
		if err := item.Release(reservation.ID); err != nil {
			return fmt.Errorf("failed to release reservation for order %s: %w", cancelEvent.OrderNumber, err)
		}
		if err := h.inventoryRepo.SaveWithLock(ctx, item); err != nil {
			return fmt.Errorf("failed to save inventory for order %s: %w", cancelEvent.OrderNumber, err)
		}
		h.publishEvents(ctx, item)
		released++
	}

	h.logger.Info("Stock released for cancelled order",
		zap.String("order_id", cancelEvent.OrderID.String()),
		zap.String("order_number", cancelEvent.OrderNumber),
		zap.Int("reservations_released", released),
		zap.Bool("was_paid", cancelEvent.WasPaid))

	if cancelEvent.WasPaid {
		if err := h.refunder.RefundOrderPayment(ctx, cancelEvent.OrderID); err != nil {
			return fmt.Errorf("failed to refund cancelled order %s: %w", cancelEvent.OrderNumber, err)
		}
		h.logger.Info("Refund initiated for cancelled paid order",
			zap.String("order_id", cancelEvent.OrderID.String()),
			zap.String("order_number", cancelEvent.OrderNumber))
	}

	return nil
}

func (h *OrderCancelledHandler) publishEvents(ctx context.Context, item *inventory.InventoryItem) {
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

var _ shared.EventHandler = (*OrderCancelledHandler)(nil)
