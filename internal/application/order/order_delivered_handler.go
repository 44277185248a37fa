package order

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/order"
	"github.com/taic/backend/internal/domain/shared"
)

// OrderDeliveredHandler completes an order as soon as its delivery is
// confirmed, which in turn credits the merchant's earnings
type OrderDeliveredHandler struct {
	orderRepo      order.OrderRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewOrderDeliveredHandler creates a new order delivered handler
func NewOrderDeliveredHandler(orderRepo order.OrderRepository, logger *zap.Logger) *OrderDeliveredHandler {
	return &OrderDeliveredHandler{
		orderRepo: orderRepo,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (h *OrderDeliveredHandler) SetEventPublisher(publisher shared.EventPublisher) {
	h.eventPublisher = publisher
}

// EventTypes returns the event types this handler processes
func (h *OrderDeliveredHandler) EventTypes() []string {
	return []string{order.EventTypeOrderDelivered}
}

// Handle moves a delivered order to COMPLETED
func (h *OrderDeliveredHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	deliveredEvent, ok := event.(*order.OrderDeliveredEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", order.EventTypeOrderDelivered),
			zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: expected %s, got %s", order.EventTypeOrderDelivered, event.EventType())
	}

	ord, err := h.orderRepo.FindByID(ctx, deliveredEvent.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load delivered order %s: %w", deliveredEvent.OrderNumber, err)
	}
	if ord.Status != order.OrderStatusDelivered {
		// Replayed event, or the order was refunded in the meantime
		h.logger.Info("Skipping completion, order no longer delivered",
			zap.String("order_id", ord.ID.String()),
			zap.String("status", ord.Status.String()))
		return nil
	}

	if err := ord.Complete(); err != nil {
		return fmt.Errorf("failed to complete order %s: %w", deliveredEvent.OrderNumber, err)
	}
	if err := h.orderRepo.SaveWithLock(ctx, ord); err != nil {
		return fmt.Errorf("failed to save completed order %s: %w", deliveredEvent.OrderNumber, err)
	}
	h.publishEvents(ctx, ord)

	h.logger.Info("Order completed on delivery confirmation",
		zap.String("order_id", ord.ID.String()),
		zap.String("order_number", ord.OrderNumber))

	return nil
}

func (h *OrderDeliveredHandler) publishEvents(ctx context.Context, ord *order.Order) {
	if h.eventPublisher == nil {
		return
	}
	for _, event := range ord.GetDomainEvents() {
		if err := h.eventPublisher.Publish(ctx, event); err != nil {
			h.logger.Warn("Failed to publish order event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	ord.ClearDomainEvents()
}

var _ shared.EventHandler = (*OrderDeliveredHandler)(nil)
