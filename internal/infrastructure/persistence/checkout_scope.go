package persistence

import (
	"context"

	apporder "github.com/taic/backend/internal/application/order"
	"github.com/taic/backend/internal/domain/inventory"
	"github.com/taic/backend/internal/domain/order"
	"github.com/taic/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormCheckoutScope implements CheckoutScope using GORM transactions.
// Stock reservations and the order row commit or roll back together.
type GormCheckoutScope struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, propagated to the tx-scoped order repo
}

// NewGormCheckoutScope creates a new GormCheckoutScope
func NewGormCheckoutScope(db *gorm.DB) *GormCheckoutScope {
	return &GormCheckoutScope{db: db}
}

// SetOutboxEventSaver sets the outbox event saver. Order events raised
// during checkout then commit atomically with the order itself.
func (s *GormCheckoutScope) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	s.outboxSaver = saver
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormCheckoutScope) Execute(ctx context.Context, fn func(repos apporder.CheckoutRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormCheckoutRepositories{tx: tx, outboxSaver: s.outboxSaver})
	})
}

// gormCheckoutRepositories provides transaction-scoped repositories
type gormCheckoutRepositories struct {
	tx          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

// OrderRepo returns the order repository scoped to the current transaction
func (r *gormCheckoutRepositories) OrderRepo() order.OrderRepository {
	repo := NewGormOrderRepository(r.tx)
	if r.outboxSaver != nil {
		repo.SetOutboxEventSaver(r.outboxSaver)
	}
	return repo
}

// InventoryRepo returns the inventory repository scoped to the current transaction
func (r *gormCheckoutRepositories) InventoryRepo() inventory.InventoryItemRepository {
	return NewGormInventoryItemRepository(r.tx)
}

// Ensure GormCheckoutScope implements CheckoutScope
var _ apporder.CheckoutScope = (*GormCheckoutScope)(nil)

// Ensure gormCheckoutRepositories implements CheckoutRepositories
var _ apporder.CheckoutRepositories = (*gormCheckoutRepositories)(nil)
