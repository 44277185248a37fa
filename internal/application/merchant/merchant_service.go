package merchant

import (
	"context"
	"errors"

	"github.com/taic/backend/internal/domain/identity"
	"github.com/taic/backend/internal/domain/merchant"
	"github.com/taic/backend/internal/domain/order"
	"github.com/taic/backend/internal/domain/payout"
	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MerchantServiceConfig contains configuration for the merchant service
type MerchantServiceConfig struct {
	DefaultCommissionRate decimal.Decimal // Percent applied to new merchants
}

// MerchantService handles merchant onboarding, review, and settings
type MerchantService struct {
	merchantRepo   merchant.MerchantRepository
	userRepo       identity.UserRepository
	orderRepo      order.OrderRepository
	ledgerRepo     payout.LedgerEntryRepository
	payoutRepo     payout.PayoutRepository
	eventPublisher shared.EventPublisher
	config         MerchantServiceConfig
	logger         *zap.Logger
}

// NewMerchantService creates a new MerchantService
func NewMerchantService(
	merchantRepo merchant.MerchantRepository,
	userRepo identity.UserRepository,
	orderRepo order.OrderRepository,
	ledgerRepo payout.LedgerEntryRepository,
	payoutRepo payout.PayoutRepository,
	config MerchantServiceConfig,
	logger *zap.Logger,
) *MerchantService {
	return &MerchantService{
		merchantRepo: merchantRepo,
		userRepo:     userRepo,
		orderRepo:    orderRepo,
		ledgerRepo:   ledgerRepo,
		payoutRepo:   payoutRepo,
		config:       config,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *MerchantService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Apply submits a merchant application for the given user.
// The application starts in pending_review; the owner keeps the shopper
// role until an admin approves.
func (s *MerchantService) Apply(ctx context.Context, userID uuid.UUID, req ApplyMerchantRequest) (*MerchantResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		return nil, err
	}
	if user.MerchantID != nil {
		return nil, shared.NewDomainError("MERCHANT_ALREADY_EXISTS", "User already owns a merchant account")
	}

	exists, err := s.merchantRepo.ExistsByOwnerUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("MERCHANT_ALREADY_EXISTS", "User already has a merchant application")
	}

	taken, err := s.merchantRepo.ExistsBySlug(ctx, req.Slug)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, shared.NewDomainError("SLUG_ALREADY_TAKEN", "A merchant with this slug already exists")
	}

	m, err := merchant.NewMerchant(userID, req.BusinessName, req.Slug, req.ContactEmail, s.config.DefaultCommissionRate)
	if err != nil {
		return nil, err
	}
	if req.ContactPhone != "" {
		if err := m.SetContact(req.ContactEmail, req.ContactPhone); err != nil {
			return nil, err
		}
	}
	if req.Description != "" {
		if err := m.UpdateProfile(req.BusinessName, req.Description); err != nil {
			return nil, err
		}
	}

	if err := s.merchantRepo.Save(ctx, m); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("SLUG_ALREADY_TAKEN", "A merchant with this slug already exists")
		}
		return nil, err
	}

	s.publishEvents(ctx, m)

	s.logger.Info("Merchant application submitted",
		zap.String("merchant_id", m.ID.String()),
		zap.String("owner_user_id", userID.String()),
		zap.String("slug", m.Slug))

	response := ToMerchantResponse(m)
	return &response, nil
}

// GetByID returns a merchant by ID
func (s *MerchantService) GetByID(ctx context.Context, merchantID uuid.UUID) (*MerchantResponse, error) {
	m, err := s.merchantRepo.FindByID(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	response := ToMerchantResponse(m)
	return &response, nil
}

// GetByOwner returns the merchant owned by the given user
func (s *MerchantService) GetByOwner(ctx context.Context, userID uuid.UUID) (*MerchantResponse, error) {
	m, err := s.merchantRepo.FindByOwnerUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	response := ToMerchantResponse(m)
	return &response, nil
}

// List returns merchants matching the filter, optionally narrowed to a status
func (s *MerchantService) List(ctx context.Context, filter MerchantListFilter) (*shared.Paginated[MerchantResponse], error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = filter.Search

	var (
		merchants []merchant.Merchant
		err       error
	)
	if filter.Status != "" {
		status := merchant.MerchantStatus(filter.Status)
		merchants, err = s.merchantRepo.FindByStatus(ctx, status, domainFilter)
		if err != nil {
			return nil, err
		}
		domainFilter.Filters["status"] = string(status)
	} else {
		merchants, err = s.merchantRepo.FindAll(ctx, domainFilter)
		if err != nil {
			return nil, err
		}
	}

	total, err := s.merchantRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(ToMerchantResponses(merchants), total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}

// Approve approves a pending merchant application and links the owner's
// account, upgrading their role to merchant. The owner's next token
// refresh picks up the merchant claims.
func (s *MerchantService) Approve(ctx context.Context, merchantID, reviewerID uuid.UUID, req ApproveMerchantRequest) (*MerchantResponse, error) {
	m, err := s.merchantRepo.FindByID(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	if err := m.Approve(reviewerID, req.Notes); err != nil {
		return nil, err
	}

	if err := s.merchantRepo.SaveWithLock(ctx, m); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, m.OwnerUserID)
	if err != nil {
		s.logger.Error("Approved merchant has no owner user",
			zap.String("merchant_id", m.ID.String()),
			zap.String("owner_user_id", m.OwnerUserID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("USER_NOT_FOUND", "Merchant owner account not found")
	}
	if err := user.LinkMerchant(m.ID); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, m)
	s.publishUserEvents(ctx, user)

	s.logger.Info("Merchant approved",
		zap.String("merchant_id", m.ID.String()),
		zap.String("reviewer_id", reviewerID.String()))

	response := ToMerchantResponse(m)
	return &response, nil
}

// Reject rejects a pending merchant application
func (s *MerchantService) Reject(ctx context.Context, merchantID, reviewerID uuid.UUID, req RejectMerchantRequest) (*MerchantResponse, error) {
	m, err := s.merchantRepo.FindByID(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	if err := m.Reject(reviewerID, req.Reason); err != nil {
		return nil, err
	}

	if err := s.merchantRepo.SaveWithLock(ctx, m); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, m)

	s.logger.Info("Merchant application rejected",
		zap.String("merchant_id", m.ID.String()),
		zap.String("reviewer_id", reviewerID.String()))

	response := ToMerchantResponse(m)
	return &response, nil
}

// Suspend suspends an approved merchant, taking its catalog off sale
func (s *MerchantService) Suspend(ctx context.Context, merchantID uuid.UUID, req SuspendMerchantRequest) (*MerchantResponse, error) {
	m, err := s.merchantRepo.FindByID(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	if err := m.Suspend(req.Reason); err != nil {
		return nil, err
	}

	if err := s.merchantRepo.SaveWithLock(ctx, m); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, m)

	s.logger.Warn("Merchant suspended",
		zap.String("merchant_id", m.ID.String()),
		zap.String("reason", req.Reason))

	response := ToMerchantResponse(m)
	return &response, nil
}

// Reinstate restores a suspended merchant to approved status
func (s *MerchantService) Reinstate(ctx context.Context, merchantID uuid.UUID) (*MerchantResponse, error) {
	m, err := s.merchantRepo.FindByID(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	if err := m.Reinstate(); err != nil {
		return nil, err
	}

	if err := s.merchantRepo.SaveWithLock(ctx, m); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, m)

	s.logger.Info("Merchant reinstated", zap.String("merchant_id", m.ID.String()))

	response := ToMerchantResponse(m)
	return &response, nil
}

// SetCommissionRate sets a merchant-specific commission rate.
// Existing orders keep the rate they snapshotted at checkout.
func (s *MerchantService) SetCommissionRate(ctx context.Context, merchantID uuid.UUID, req SetCommissionRateRequest) (*MerchantResponse, error) {
	m, err := s.merchantRepo.FindByID(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	if err := m.SetCommissionRate(req.CommissionRate); err != nil {
		return nil, err
	}

	if err := s.merchantRepo.SaveWithLock(ctx, m); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, m)

	s.logger.Info("Merchant commission rate changed",
		zap.String("merchant_id", m.ID.String()),
		zap.String("rate", req.CommissionRate.String()))

	response := ToMerchantResponse(m)
	return &response, nil
}

// UpdateProfile updates the storefront profile of the caller's merchant
func (s *MerchantService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*MerchantResponse, error) {
	m, err := s.merchantRepo.FindByOwnerUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := m.UpdateProfile(req.BusinessName, req.Description); err != nil {
		return nil, err
	}
	if req.LogoURL != nil {
		if err := m.SetLogoURL(*req.LogoURL); err != nil {
			return nil, err
		}
	}
	if req.ContactEmail != nil || req.ContactPhone != nil {
		email := m.ContactEmail
		phone := m.ContactPhone
		if req.ContactEmail != nil {
			email = *req.ContactEmail
		}
		if req.ContactPhone != nil {
			phone = *req.ContactPhone
		}
		if err := m.SetContact(email, phone); err != nil {
			return nil, err
		}
	}

	if err := s.merchantRepo.SaveWithLock(ctx, m); err != nil {
		return nil, err
	}

	response := ToMerchantResponse(m)
	return &response, nil
}

// UpdatePayoutSettings sets the payout destination of the caller's merchant
func (s *MerchantService) UpdatePayoutSettings(ctx context.Context, userID uuid.UUID, req UpdatePayoutSettingsRequest) (*MerchantResponse, error) {
	m, err := s.merchantRepo.FindByOwnerUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	minPayout := valueobject.NewMoneyUSD(req.MinPayoutAmount)
	if err := m.UpdatePayoutSettings(merchant.PayoutCurrency(req.Currency), req.WalletAddress, minPayout); err != nil {
		return nil, err
	}

	if err := s.merchantRepo.SaveWithLock(ctx, m); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, m)

	s.logger.Info("Merchant payout settings updated",
		zap.String("merchant_id", m.ID.String()),
		zap.String("currency", req.Currency))

	response := ToMerchantResponse(m)
	return &response, nil
}

// Dashboard returns order counts, sales figures, and balances for the
// caller's merchant
func (s *MerchantService) Dashboard(ctx context.Context, merchantID uuid.UUID) (*DashboardResponse, error) {
	m, err := s.merchantRepo.FindByID(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	totalOrders, err := s.orderRepo.CountByMerchant(ctx, m.ID, shared.DefaultFilter())
	if err != nil {
		return nil, err
	}
	awaiting, err := s.orderRepo.CountByMerchantAndStatus(ctx, m.ID, order.OrderStatusPaid)
	if err != nil {
		return nil, err
	}
	processing, err := s.orderRepo.CountByMerchantAndStatus(ctx, m.ID, order.OrderStatusProcessing)
	if err != nil {
		return nil, err
	}
	shipped, err := s.orderRepo.CountByMerchantAndStatus(ctx, m.ID, order.OrderStatusShipped)
	if err != nil {
		return nil, err
	}

	// Cancelled and refunded orders are excluded from sales figures
	stats, err := s.orderRepo.MerchantSalesStats(ctx, m.ID,
		order.OrderStatusPaid,
		order.OrderStatusProcessing,
		order.OrderStatusShipped,
		order.OrderStatusDelivered,
		order.OrderStatusCompleted,
	)
	if err != nil {
		return nil, err
	}

	balance, err := s.ledgerRepo.AvailableBalance(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	pendingPayouts, err := s.payoutRepo.PendingTotal(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	return &DashboardResponse{
		TotalOrders:        totalOrders,
		AwaitingProcessing: awaiting,
		Processing:         processing,
		Shipped:            shipped,
		GrossSales:         stats.GrossSales,
		Earnings:           stats.Earnings,
		AvailableBalance:   balance,
		PendingPayouts:     pendingPayouts,
	}, nil
}

// publishEvents publishes any domain events the aggregate collected
func (s *MerchantService) publishEvents(ctx context.Context, m *merchant.Merchant) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range m.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish merchant event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	m.ClearDomainEvents()
}

func (s *MerchantService) publishUserEvents(ctx context.Context, user *identity.User) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range user.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish identity event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	user.ClearDomainEvents()
}
