package shared

import (
	"github.com/google/uuid"
)

// AggregateRoot is what the application layer needs from an aggregate
// after a state change: the events it raised during the transaction.
type AggregateRoot interface {
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot adds optimistic-lock versioning and an in-memory
// event buffer on top of BaseEntity. Events accumulate on the aggregate
// until the repository writes them to the outbox, or the service
// publishes and clears them.
type BaseAggregateRoot struct {
	BaseEntity
	Version      int           `gorm:"not null;default:1"`
	domainEvents []DomainEvent `gorm:"-"`
}

// NewBaseAggregateRoot starts a new aggregate at version 1.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}

func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent buffers an event for publication after save.
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// MerchantAggregateRoot scopes an aggregate to its owning merchant.
// Repositories filter on MerchantID so one merchant can never load or
// mutate another's rows.
type MerchantAggregateRoot struct {
	BaseAggregateRoot
	MerchantID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// NewMerchantAggregateRoot starts a new aggregate owned by merchantID.
func NewMerchantAggregateRoot(merchantID uuid.UUID) MerchantAggregateRoot {
	return MerchantAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		MerchantID:        merchantID,
	}
}
