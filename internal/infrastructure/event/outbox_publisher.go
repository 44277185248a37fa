package event

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/taic/backend/internal/domain/shared"
)

// OutboxPublisher serializes domain events and writes them to the outbox
// on the aggregate's own transaction. Repositories call it through the
// shared.OutboxEventSaver interface while their transaction is open, so a
// rollback discards the events together with the aggregate changes.
type OutboxPublisher struct {
	serializer Serializer
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)

// NewOutboxPublisher creates a publisher using the given serializer.
func NewOutboxPublisher(serializer Serializer) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer}
}

// SaveEvents writes the events to the outbox table. txProvider must be
// the *gorm.DB transaction the calling repository is committing on.
func (p *OutboxPublisher) SaveEvents(ctx context.Context, txProvider interface{}, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("txProvider must be a *gorm.DB, got %T", txProvider)
	}

	entries := make([]*shared.OutboxEntry, len(events))
	for i, evt := range events {
		payload, err := p.serializer.Serialize(evt)
		if err != nil {
			return fmt.Errorf("serialize %s event: %w", evt.EventType(), err)
		}
		entries[i] = shared.NewOutboxEntry(evt, payload)
	}

	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}
