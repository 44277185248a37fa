package inventory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/inventory"
	"github.com/taic/backend/internal/domain/shared"
)

// StockLowHandler reacts to StockLow events by surfacing an alert in the
// logs. Merchants see the same information through the low-stock listing
// endpoint.
type StockLowHandler struct {
	logger *zap.Logger
}

// NewStockLowHandler creates a new handler for low stock events
func NewStockLowHandler(logger *zap.Logger) *StockLowHandler {
	return &StockLowHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *StockLowHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockLow}
}

// Handle processes a StockLowEvent
func (h *StockLowHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	lowEvent, ok := event.(*inventory.StockLowEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", inventory.EventTypeStockLow),
			zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockLow, event.EventType())
	}

	alertType := "low_stock"
	if lowEvent.Available <= 0 {
		alertType = "out_of_stock"
	}

	h.logger.Warn("stock below threshold",
		zap.String("alert_type", alertType),
		zap.String("merchant_id", lowEvent.MerchantID.String()),
		zap.String("product_id", lowEvent.ProductID.String()),
		zap.String("inventory_item_id", lowEvent.InventoryItemID.String()),
		zap.Int("available", lowEvent.Available),
		zap.Int("threshold", lowEvent.Threshold))

	return nil
}

// Ensure StockLowHandler implements shared.EventHandler
var _ shared.EventHandler = (*StockLowHandler)(nil)
