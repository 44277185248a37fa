package persistence

import (
	"context"

	apppayout "github.com/taic/backend/internal/application/payout"
	"github.com/taic/backend/internal/domain/payout"
	"gorm.io/gorm"
)

// GormLedgerScope implements LedgerScope using GORM transactions.
// Balance reads inside the scope hold the merchant's ledger lock until
// commit, so concurrent movements on one balance serialize.
type GormLedgerScope struct {
	db *gorm.DB
}

// NewGormLedgerScope creates a new GormLedgerScope
func NewGormLedgerScope(db *gorm.DB) *GormLedgerScope {
	return &GormLedgerScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormLedgerScope) Execute(ctx context.Context, fn func(repos apppayout.LedgerRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormLedgerRepositories{tx: tx})
	})
}

// gormLedgerRepositories provides transaction-scoped repositories
type gormLedgerRepositories struct {
	tx *gorm.DB
}

// PayoutRepo returns the payout repository scoped to the current transaction
func (r *gormLedgerRepositories) PayoutRepo() payout.PayoutRepository {
	return NewGormPayoutRepository(r.tx)
}

// LedgerRepo returns the ledger repository scoped to the current transaction
func (r *gormLedgerRepositories) LedgerRepo() payout.LedgerEntryRepository {
	return NewGormLedgerEntryRepository(r.tx)
}

// Ensure GormLedgerScope implements LedgerScope
var _ apppayout.LedgerScope = (*GormLedgerScope)(nil)

// Ensure gormLedgerRepositories implements LedgerRepositories
var _ apppayout.LedgerRepositories = (*gormLedgerRepositories)(nil)
