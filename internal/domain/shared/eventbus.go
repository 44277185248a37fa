package shared

import "context"

// EventHandler consumes domain events.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes names the event types the handler wants. Empty means
	// every event.
	EventTypes() []string
}

// EventPublisher is the write side of the bus. Application services
// depend on this instead of the full EventBus.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus dispatches published events to subscribed handlers.
type EventBus interface {
	EventPublisher
	// Subscribe registers the handler for the given event types,
	// defaulting to handler.EventTypes() when none are given.
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxEventSaver writes domain events to the outbox on the caller's
// open transaction, so events commit or roll back with the aggregate.
// txProvider is the repository's *gorm.DB transaction; the interface
// keeps the domain layer free of the gorm import.
type OutboxEventSaver interface {
	SaveEvents(ctx context.Context, txProvider interface{}, events ...DomainEvent) error
}
