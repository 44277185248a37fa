package payout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taic/backend/internal/domain/shared"
)

// LedgerEntryRepository defines the persistence interface for the
// append-only merchant ledger
type LedgerEntryRepository interface {
	// Append inserts a new ledger entry. Entries are never updated.
	Append(ctx context.Context, entry *LedgerEntry) error

	// FindByMerchant lists a merchant's ledger entries, newest first
	FindByMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) ([]LedgerEntry, error)

	// FindByPayout lists the entries referencing a payout
	FindByPayout(ctx context.Context, payoutID uuid.UUID) ([]LedgerEntry, error)

	// CountByMerchant counts a merchant's ledger entries
	CountByMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) (int64, error)

	// ExistsByOrderAndType checks whether the order already has an entry
	// of the given type. Guards against double-crediting a sale when an
	// event is redelivered.
	ExistsByOrderAndType(ctx context.Context, orderID uuid.UUID, entryType LedgerEntryType) (bool, error)

	// AvailableBalance sums the merchant's entry amounts
	AvailableBalance(ctx context.Context, merchantID uuid.UUID) (decimal.Decimal, error)

	// AvailableBalanceForUpdate sums the merchant's entry amounts while
	// holding the merchant's ledger lock until the surrounding
	// transaction ends. Balance checks that gate an Append go through
	// here so concurrent requests cannot both pass.
	AvailableBalanceForUpdate(ctx context.Context, merchantID uuid.UUID) (decimal.Decimal, error)
}

// PayoutRepository defines the persistence interface for payouts
type PayoutRepository interface {
	// FindByID retrieves a payout by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payout, error)

	// FindByIDForMerchant retrieves a payout by ID within a merchant
	FindByIDForMerchant(ctx context.Context, merchantID, id uuid.UUID) (*Payout, error)

	// FindByMerchant lists a merchant's payouts
	FindByMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) ([]Payout, error)

	// FindAll lists payouts across merchants (admin)
	FindAll(ctx context.Context, filter shared.Filter) ([]Payout, error)

	// Count counts payouts across merchants (admin)
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// FindDue lists pending payouts whose next attempt time has passed,
	// oldest first, up to limit
	FindDue(ctx context.Context, asOf time.Time, limit int) ([]*Payout, error)

	// PendingTotal sums the amounts of a merchant's in-flight payouts
	// (pending and processing)
	PendingTotal(ctx context.Context, merchantID uuid.UUID) (decimal.Decimal, error)

	// Save persists a payout (create or update)
	Save(ctx context.Context, p *Payout) error

	// SaveWithLock persists a payout with optimistic concurrency control.
	// Claims race between processor workers, so they go through here.
	SaveWithLock(ctx context.Context, p *Payout) error

	// CountByMerchant counts a merchant's payouts
	CountByMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) (int64, error)
}
