package payout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/payout"
	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/domain/shared/valueobject"
)

// LedgerRepositories exposes the repositories that participate in a
// ledger transaction
type LedgerRepositories interface {
	PayoutRepo() payout.PayoutRepository
	LedgerRepo() payout.LedgerEntryRepository
}

// LedgerScope runs a function within a database transaction so balance
// reads and ledger appends commit or roll back together. The balance
// read inside the scope holds the merchant's ledger lock, serializing
// concurrent movements on the same balance.
type LedgerScope interface {
	Execute(ctx context.Context, fn func(repos LedgerRepositories) error) error
}

// LedgerService appends entries to the merchant earnings ledger. It is
// the single writer for balance movements: order completion credits,
// refund clawbacks, payout debits and reversals all go through it or
// through services holding the same scope.
type LedgerService struct {
	scope  LedgerScope
	logger *zap.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(scope LedgerScope, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		scope:  scope,
		logger: logger,
	}
}

// CreditSale credits a merchant's earnings from a completed order.
// Idempotent across event redeliveries: an order is credited at most once.
func (s *LedgerService) CreditSale(ctx context.Context, merchantID, orderID uuid.UUID, amount decimal.Decimal, description string) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Sale credit must be positive")
	}

	return s.scope.Execute(ctx, func(repos LedgerRepositories) error {
		credited, err := repos.LedgerRepo().ExistsByOrderAndType(ctx, orderID, payout.LedgerEntryTypeSaleCredit)
		if err != nil {
			return fmt.Errorf("failed to check existing sale credit: %w", err)
		}
		if credited {
			s.logger.Info("Order already credited, skipping",
				zap.String("order_id", orderID.String()),
				zap.String("merchant_id", merchantID.String()))
			return nil
		}

		balance, err := repos.LedgerRepo().AvailableBalanceForUpdate(ctx, merchantID)
		if err != nil {
			return fmt.Errorf("failed to read merchant balance: %w", err)
		}

		entry, err := payout.NewSaleCredit(
			merchantID, orderID,
			valueobject.NewMoneyUSD(amount),
			valueobject.NewMoneyUSD(balance.Add(amount)),
			description,
		)
		if err != nil {
			return err
		}

		return repos.LedgerRepo().Append(ctx, entry)
	})
}

// ReverseSale claws back a merchant's earnings when a credited order is
// refunded. A no-op when the order was never credited (refund landed
// before completion) or was already reversed.
func (s *LedgerService) ReverseSale(ctx context.Context, merchantID, orderID uuid.UUID, amount decimal.Decimal, description string) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Sale reversal must be positive")
	}

	return s.scope.Execute(ctx, func(repos LedgerRepositories) error {
		credited, err := repos.LedgerRepo().ExistsByOrderAndType(ctx, orderID, payout.LedgerEntryTypeSaleCredit)
		if err != nil {
			return fmt.Errorf("failed to check existing sale credit: %w", err)
		}
		if !credited {
			// The order never completed, so there is nothing to claw back
			s.logger.Info("Refunded order was never credited, skipping reversal",
				zap.String("order_id", orderID.String()))
			return nil
		}

		reversed, err := repos.LedgerRepo().ExistsByOrderAndType(ctx, orderID, payout.LedgerEntryTypeRefundDebit)
		if err != nil {
			return fmt.Errorf("failed to check existing reversal: %w", err)
		}
		if reversed {
			s.logger.Info("Order earnings already reversed, skipping",
				zap.String("order_id", orderID.String()))
			return nil
		}

		balance, err := repos.LedgerRepo().AvailableBalanceForUpdate(ctx, merchantID)
		if err != nil {
			return fmt.Errorf("failed to read merchant balance: %w", err)
		}

		entry, err := payout.NewRefundDebit(
			merchantID, orderID,
			valueobject.NewMoneyUSD(amount),
			valueobject.NewMoneyUSD(balance.Sub(amount)),
			description,
		)
		if err != nil {
			return err
		}

		if err := repos.LedgerRepo().Append(ctx, entry); err != nil {
			return err
		}

		if balance.LessThan(amount) {
			// Earnings were withdrawn before the refund; the ledger goes
			// negative and future sales repay the platform
			s.logger.Warn("Refund reversal drove merchant balance negative",
				zap.String("merchant_id", merchantID.String()),
				zap.String("order_id", orderID.String()),
				zap.String("balance_after", balance.Sub(amount).String()))
		}

		return nil
	})
}
