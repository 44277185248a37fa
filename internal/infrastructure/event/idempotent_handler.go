package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/shared"
)

// IdempotentHandler wraps an EventHandler so each event is successfully
// processed at most once per TTL window, keyed by handler name plus
// event ID. A failed attempt releases its claim, leaving the event free
// to be redelivered by the outbox processor. Events
// reach handlers twice by construction here: once synchronously from the
// publishing request and once from the outbox processor's re-delivery.
// Scoping the key to the handler keeps two handlers subscribed to the
// same event type from suppressing each other.
type IdempotentHandler struct {
	name   string
	inner  shared.EventHandler
	store  shared.IdempotencyStore
	config shared.IdempotencyConfig
	logger *zap.Logger

	processed  atomic.Int64
	duplicates atomic.Int64
	failures   atomic.Int64
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)

// IdempotentHandlerOption configures an IdempotentHandler.
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides the default TTL and enablement.
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// NewIdempotentHandler wraps handler with duplicate-delivery suppression
// backed by store.
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	h := &IdempotentHandler{
		name:   fmt.Sprintf("%T", handler),
		inner:  handler,
		store:  store,
		config: shared.DefaultIdempotencyConfig(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes delegates to the wrapped handler's subscriptions.
func (h *IdempotentHandler) EventTypes() []string {
	return h.inner.EventTypes()
}

// Handle processes the event unless its ID was already marked processed.
// A failing idempotency store does not block processing; duplicate work
// is the lesser failure compared to dropping an event.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.inner.Handle(ctx, event)
	}

	eventID := event.EventID().String()
	key := h.name + ":" + eventID
	firstDelivery, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	switch {
	case err != nil:
		h.logger.Warn("Idempotency check failed, processing anyway",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	case !firstDelivery:
		h.duplicates.Add(1)
		h.logger.Debug("Skipping duplicate event delivery",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	if err := h.inner.Handle(ctx, event); err != nil {
		h.failures.Add(1)
		// Hand the claim back so the outbox redelivery is not
		// suppressed as a duplicate and the event gets retried.
		if relErr := h.store.Release(ctx, key); relErr != nil {
			h.logger.Warn("Failed to release idempotency key after handler error",
				zap.String("event_id", eventID),
				zap.String("event_type", event.EventType()),
				zap.Error(relErr),
			)
		}
		return err
	}

	h.processed.Add(1)
	return nil
}

// IdempotencyStats is a snapshot of one handler's delivery counters.
type IdempotencyStats struct {
	Processed  int64 `json:"processed"`
	Duplicates int64 `json:"duplicates"`
	Failures   int64 `json:"failures"`
}

// Stats returns the current delivery counters.
func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		Processed:  h.processed.Load(),
		Duplicates: h.duplicates.Load(),
		Failures:   h.failures.Load(),
	}
}

// WrapHandlersWithIdempotency wraps each handler before bus subscription.
func WrapHandlersWithIdempotency(
	handlers []shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) []shared.EventHandler {
	wrapped := make([]shared.EventHandler, len(handlers))
	for i, h := range handlers {
		wrapped[i] = NewIdempotentHandler(h, store, logger, opts...)
	}
	return wrapped
}
