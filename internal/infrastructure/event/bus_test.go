package event

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taic/backend/internal/domain/shared"
)

// funcHandler adapts a function to shared.EventHandler for bus tests.
type funcHandler struct {
	types  []string
	handle func(ctx context.Context, evt shared.DomainEvent) error
}

func (h *funcHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	if h.handle == nil {
		return nil
	}
	return h.handle(ctx, evt)
}

func (h *funcHandler) EventTypes() []string { return h.types }

// recorder collects the event types a handler saw, in order.
type recorder struct {
	seen []string
}

func (r *recorder) handler(types ...string) *funcHandler {
	return &funcHandler{
		types: types,
		handle: func(_ context.Context, evt shared.DomainEvent) error {
			r.seen = append(r.seen, evt.EventType())
			return nil
		},
	}
}

// plainTestEvent carries no payload beyond the event envelope.
type plainTestEvent struct {
	shared.BaseDomainEvent
}

func busTestEvent(eventType string) shared.DomainEvent {
	return &plainTestEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
	}
}

func TestBusDeliversToExplicitSubscription(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	rec := &recorder{}

	bus.Subscribe(rec.handler(), "OrderCreated")

	require.NoError(t, bus.Publish(context.Background(), busTestEvent("OrderCreated")))
	require.NoError(t, bus.Publish(context.Background(), busTestEvent("OrderPaid")))

	assert.Equal(t, []string{"OrderCreated"}, rec.seen)
}

func TestBusSubscribeDefaultsToHandlerEventTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	rec := &recorder{}

	bus.Subscribe(rec.handler("StockLow", "StockReserved"))

	require.NoError(t, bus.Publish(context.Background(),
		busTestEvent("StockLow"),
		busTestEvent("StockReceived"),
		busTestEvent("StockReserved"),
	))

	assert.Equal(t, []string{"StockLow", "StockReserved"}, rec.seen)
}

func TestBusCatchAllReceivesEverything(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	rec := &recorder{}

	// No explicit types and EventTypes() is empty, so the handler is a
	// catch-all subscriber.
	bus.Subscribe(rec.handler())

	require.NoError(t, bus.Publish(context.Background(),
		busTestEvent("OrderCreated"),
		busTestEvent("PaymentSucceeded"),
	))

	assert.Equal(t, []string{"OrderCreated", "PaymentSucceeded"}, rec.seen)
}

func TestBusTypedHandlersRunBeforeCatchAll(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	var order []string
	typed := &funcHandler{handle: func(context.Context, shared.DomainEvent) error {
		order = append(order, "typed")
		return nil
	}}
	catchAll := &funcHandler{handle: func(context.Context, shared.DomainEvent) error {
		order = append(order, "catch-all")
		return nil
	}}

	bus.Subscribe(catchAll)
	bus.Subscribe(typed, "OrderCreated")

	require.NoError(t, bus.Publish(context.Background(), busTestEvent("OrderCreated")))
	assert.Equal(t, []string{"typed", "catch-all"}, order)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	typedRec := &recorder{}
	catchAllRec := &recorder{}

	typed := typedRec.handler()
	catchAll := catchAllRec.handler()
	bus.Subscribe(typed, "OrderCreated")
	bus.Subscribe(catchAll)

	bus.Unsubscribe(typed)
	bus.Unsubscribe(catchAll)

	require.NoError(t, bus.Publish(context.Background(), busTestEvent("OrderCreated")))
	assert.Empty(t, typedRec.seen)
	assert.Empty(t, catchAllRec.seen)
}

func TestBusPublishCancelledContext(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	rec := &recorder{}
	bus.Subscribe(rec.handler(), "OrderCreated")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bus.Publish(ctx, busTestEvent("OrderCreated"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.seen)
}

func TestBusHandlerErrorDoesNotStopOthers(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := &funcHandler{handle: func(context.Context, shared.DomainEvent) error {
		return errors.New("projection out of date")
	}}
	rec := &recorder{}

	bus.Subscribe(failing, "OrderCreated")
	bus.Subscribe(rec.handler(), "OrderCreated")

	err := bus.Publish(context.Background(), busTestEvent("OrderCreated"))
	require.ErrorContains(t, err, "projection out of date")

	assert.Equal(t, []string{"OrderCreated"}, rec.seen)
	require.Equal(t, 1, logs.FilterMessage("Event handler failed").Len())
}

func TestBusHandlerPanicIsContained(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	panicking := &funcHandler{handle: func(context.Context, shared.DomainEvent) error {
		panic("nil map write")
	}}
	rec := &recorder{}

	bus.Subscribe(panicking, "OrderCreated")
	bus.Subscribe(rec.handler(), "OrderCreated")

	err := bus.Publish(context.Background(), busTestEvent("OrderCreated"))
	require.ErrorContains(t, err, "handler panic")

	assert.Equal(t, []string{"OrderCreated"}, rec.seen)

	entries := logs.FilterMessage("Event handler failed").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "handler panic")
}

func TestBusStartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Stop(ctx))
}
