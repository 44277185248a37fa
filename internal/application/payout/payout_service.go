package payout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/merchant"
	"github.com/taic/backend/internal/domain/payout"
	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/domain/shared/valueobject"
)

// PayoutService handles merchant withdrawal requests and payout queries.
// Requesting a payout debits the merchant's ledger inside the same
// transaction that creates the payout row, so the available balance can
// never be withdrawn twice.
type PayoutService struct {
	scope          LedgerScope
	merchantRepo   merchant.MerchantRepository
	payoutRepo     payout.PayoutRepository
	ledgerRepo     payout.LedgerEntryRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewPayoutService creates a new payout service
func NewPayoutService(
	scope LedgerScope,
	merchantRepo merchant.MerchantRepository,
	payoutRepo payout.PayoutRepository,
	ledgerRepo payout.LedgerEntryRepository,
	logger *zap.Logger,
) *PayoutService {
	return &PayoutService{
		scope:        scope,
		merchantRepo: merchantRepo,
		payoutRepo:   payoutRepo,
		ledgerRepo:   ledgerRepo,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *PayoutService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// RequestPayout creates a pending payout for the merchant's requested
// amount. The balance check, the payout row, and the payout_debit ledger
// entry commit in one transaction; the batch processor picks the payout
// up afterwards.
func (s *PayoutService) RequestPayout(ctx context.Context, merchantID uuid.UUID, req RequestPayoutRequest) (*PayoutResponse, error) {
	m, err := s.merchantRepo.FindByID(ctx, merchantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("MERCHANT_NOT_FOUND", "Merchant not found")
		}
		return nil, err
	}
	if !m.IsApproved() {
		return nil, shared.NewDomainError("MERCHANT_NOT_APPROVED", "Only approved merchants can request payouts")
	}
	if !m.HasPayoutSettings() {
		return nil, shared.NewDomainError("PAYOUT_SETTINGS_MISSING", "Configure a payout wallet before requesting a payout")
	}

	amount := valueobject.NewMoneyUSD(req.Amount)

	var created *payout.Payout
	err = s.scope.Execute(ctx, func(repos LedgerRepositories) error {
		available, err := repos.LedgerRepo().AvailableBalanceForUpdate(ctx, merchantID)
		if err != nil {
			return fmt.Errorf("failed to read merchant balance: %w", err)
		}
		if req.Amount.GreaterThan(available) {
			return shared.ErrInsufficientBalance
		}

		p, err := payout.NewPayout(
			merchantID,
			amount,
			m.GetMinPayoutMoney(),
			string(m.PayoutSettings.Currency),
			m.PayoutSettings.WalletAddress,
		)
		if err != nil {
			return err
		}

		if err := repos.PayoutRepo().Save(ctx, p); err != nil {
			return fmt.Errorf("failed to save payout: %w", err)
		}

		entry, err := payout.NewPayoutDebit(
			merchantID, p.ID,
			amount,
			valueobject.NewMoneyUSD(available.Sub(req.Amount)),
			fmt.Sprintf("Payout request %s", p.ID),
		)
		if err != nil {
			return err
		}
		if err := repos.LedgerRepo().Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append payout debit: %w", err)
		}

		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, created)

	s.logger.Info("Payout requested",
		zap.String("payout_id", created.ID.String()),
		zap.String("merchant_id", merchantID.String()),
		zap.String("amount", created.Amount.String()))

	return toPayoutResponse(created), nil
}

// GetForMerchant retrieves one of the merchant's payouts
func (s *PayoutService) GetForMerchant(ctx context.Context, merchantID, payoutID uuid.UUID) (*PayoutResponse, error) {
	p, err := s.payoutRepo.FindByIDForMerchant(ctx, merchantID, payoutID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("PAYOUT_NOT_FOUND", "Payout not found")
		}
		return nil, err
	}
	return toPayoutResponse(p), nil
}

// ListForMerchant lists the merchant's payouts, newest first
func (s *PayoutService) ListForMerchant(ctx context.Context, merchantID uuid.UUID, filter PayoutListFilter) (*shared.Paginated[PayoutResponse], error) {
	f := buildPayoutFilter(filter)

	payouts, err := s.payoutRepo.FindByMerchant(ctx, merchantID, f)
	if err != nil {
		return nil, err
	}
	total, err := s.payoutRepo.CountByMerchant(ctx, merchantID, f)
	if err != nil {
		return nil, err
	}

	items := make([]PayoutResponse, len(payouts))
	for i := range payouts {
		items[i] = *toPayoutResponse(&payouts[i])
	}

	result := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &result, nil
}

// ListAll lists payouts across merchants for the admin console
func (s *PayoutService) ListAll(ctx context.Context, filter PayoutListFilter) (*shared.Paginated[PayoutResponse], error) {
	f := buildPayoutFilter(filter)

	payouts, err := s.payoutRepo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.payoutRepo.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	items := make([]PayoutResponse, len(payouts))
	for i := range payouts {
		items[i] = *toPayoutResponse(&payouts[i])
	}

	result := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &result, nil
}

// GetBalance returns the merchant's available and in-flight balances
func (s *PayoutService) GetBalance(ctx context.Context, merchantID uuid.UUID) (*BalanceResponse, error) {
	available, err := s.ledgerRepo.AvailableBalance(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	pending, err := s.payoutRepo.PendingTotal(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	return &BalanceResponse{
		MerchantID:    merchantID,
		Available:     available,
		PendingPayout: pending,
		Currency:      string(valueobject.DefaultCurrency),
	}, nil
}

// ListLedger lists the merchant's ledger entries, newest first
func (s *PayoutService) ListLedger(ctx context.Context, merchantID uuid.UUID, filter LedgerListFilter) (*shared.Paginated[LedgerEntryResponse], error) {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.Type != "" {
		f.Filters["type"] = filter.Type
	}

	entries, err := s.ledgerRepo.FindByMerchant(ctx, merchantID, f)
	if err != nil {
		return nil, err
	}
	total, err := s.ledgerRepo.CountByMerchant(ctx, merchantID, f)
	if err != nil {
		return nil, err
	}

	items := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		items[i] = *toLedgerEntryResponse(&entries[i])
	}

	result := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &result, nil
}

func buildPayoutFilter(filter PayoutListFilter) shared.Filter {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		f.Filters["status"] = filter.Status
	}
	return f
}

func (s *PayoutService) publishEvents(ctx context.Context, p *payout.Payout) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range p.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish payout event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	p.ClearDomainEvents()
}
