package merchant

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/domain/shared/valueobject"
)

// MerchantStatus represents the review/lifecycle status of a merchant
type MerchantStatus string

const (
	MerchantStatusPendingReview MerchantStatus = "pending_review" // Awaiting admin review
	MerchantStatusApproved      MerchantStatus = "approved"
	MerchantStatusSuspended     MerchantStatus = "suspended"
	MerchantStatusRejected      MerchantStatus = "rejected"
)

// PayoutCurrency is the stablecoin a merchant receives payouts in
type PayoutCurrency string

const (
	PayoutCurrencyUSDC PayoutCurrency = "USDC"
	PayoutCurrencyUSDT PayoutCurrency = "USDT"
)

// evmAddressRegex matches a 0x-prefixed 20-byte hex address.
// Both supported stablecoins settle on EVM-compatible chains.
var evmAddressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// PayoutSettings holds a merchant's crypto payout destination.
// Payouts below MinPayoutAmount are held until the balance accrues.
type PayoutSettings struct {
	Currency        PayoutCurrency  `gorm:"type:varchar(10)"`
	WalletAddress   string          `gorm:"type:varchar(64)"`
	MinPayoutAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// IsConfigured returns true if a payout destination has been set
func (s PayoutSettings) IsConfigured() bool {
	return s.WalletAddress != "" && s.Currency != ""
}

// Merchant represents a seller account on the marketplace.
// It is the aggregate root for merchant onboarding, review, and payout configuration.
type Merchant struct {
	shared.BaseAggregateRoot
	OwnerUserID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	BusinessName   string          `gorm:"type:varchar(200);not null"`
	Slug           string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	Description    string          `gorm:"type:text"`
	LogoURL        string          `gorm:"type:varchar(500)"`
	ContactEmail   string          `gorm:"type:varchar(320);not null;index"`
	ContactPhone   string          `gorm:"type:varchar(50)"`
	Status         MerchantStatus  `gorm:"type:varchar(20);not null;default:'pending_review';index"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"` // Platform cut, percent of each line total
	PayoutSettings PayoutSettings  `gorm:"embedded;embeddedPrefix:payout_"`
	ReviewedAt     *time.Time
	ReviewedBy     *uuid.UUID `gorm:"type:uuid"`
	ReviewNotes    string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Merchant) TableName() string {
	return "merchants"
}

// NewMerchant creates a new merchant application in pending_review status.
// commissionRate is the platform's default rate at application time, as a percent.
func NewMerchant(ownerUserID uuid.UUID, businessName, slug, contactEmail string, commissionRate decimal.Decimal) (*Merchant, error) {
	if ownerUserID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner user ID cannot be empty")
	}
	if err := validateBusinessName(businessName); err != nil {
		return nil, err
	}
	if err := validateSlug(slug); err != nil {
		return nil, err
	}
	if err := validateContactEmail(contactEmail); err != nil {
		return nil, err
	}
	if err := validateCommissionRate(commissionRate); err != nil {
		return nil, err
	}

	merchant := &Merchant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OwnerUserID:       ownerUserID,
		BusinessName:      businessName,
		Slug:              strings.ToLower(slug),
		ContactEmail:      strings.ToLower(contactEmail),
		Status:            MerchantStatusPendingReview,
		CommissionRate:    commissionRate,
	}

	merchant.AddDomainEvent(NewMerchantAppliedEvent(merchant))

	return merchant, nil
}

// UpdateProfile updates the merchant's public storefront information
func (m *Merchant) UpdateProfile(businessName, description string) error {
	if err := validateBusinessName(businessName); err != nil {
		return err
	}
	if len(description) > 5000 {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 5000 characters")
	}

	m.BusinessName = businessName
	m.Description = description
	m.Touch()

	return nil
}

// SetLogoURL sets the merchant's logo URL
func (m *Merchant) SetLogoURL(url string) error {
	if url != "" && len(url) > 500 {
		return shared.NewDomainError("INVALID_LOGO_URL", "Logo URL cannot exceed 500 characters")
	}

	m.LogoURL = url
	m.Touch()

	return nil
}

// SetContact updates the merchant's contact information
func (m *Merchant) SetContact(email, phone string) error {
	if err := validateContactEmail(email); err != nil {
		return err
	}
	if phone != "" {
		if len(phone) > 50 {
			return shared.NewDomainError("INVALID_PHONE", "Phone number cannot exceed 50 characters")
		}
		validPhone := regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)
		if !validPhone.MatchString(phone) {
			return shared.NewDomainError("INVALID_PHONE", "Invalid phone number format")
		}
	}

	m.ContactEmail = strings.ToLower(email)
	m.ContactPhone = phone
	m.Touch()

	return nil
}

// Approve approves a pending merchant application.
// Only pending_review merchants can be approved.
func (m *Merchant) Approve(reviewerID uuid.UUID, notes string) error {
	if m.Status != MerchantStatusPendingReview {
		return shared.NewDomainError("INVALID_STATUS", "Only pending applications can be approved")
	}

	now := time.Now()
	m.Status = MerchantStatusApproved
	m.ReviewedAt = &now
	m.ReviewedBy = &reviewerID
	m.ReviewNotes = notes
	m.UpdatedAt = now

	m.AddDomainEvent(NewMerchantApprovedEvent(m))

	return nil
}

// Reject rejects a pending merchant application with a reason
func (m *Merchant) Reject(reviewerID uuid.UUID, reason string) error {
	if m.Status != MerchantStatusPendingReview {
		return shared.NewDomainError("INVALID_STATUS", "Only pending applications can be rejected")
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("REASON_REQUIRED", "Rejection reason is required")
	}

	now := time.Now()
	m.Status = MerchantStatusRejected
	m.ReviewedAt = &now
	m.ReviewedBy = &reviewerID
	m.ReviewNotes = reason
	m.UpdatedAt = now

	m.AddDomainEvent(NewMerchantRejectedEvent(m, reason))

	return nil
}

// Suspend suspends an approved merchant, hiding its products from sale
func (m *Merchant) Suspend(reason string) error {
	if m.Status != MerchantStatusApproved {
		return shared.NewDomainError("INVALID_STATUS", "Only approved merchants can be suspended")
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("REASON_REQUIRED", "Suspension reason is required")
	}

	m.Status = MerchantStatusSuspended
	m.ReviewNotes = reason
	m.Touch()

	m.AddDomainEvent(NewMerchantSuspendedEvent(m, reason))

	return nil
}

// Reinstate restores a suspended merchant to approved status
func (m *Merchant) Reinstate() error {
	if m.Status != MerchantStatusSuspended {
		return shared.NewDomainError("INVALID_STATUS", "Only suspended merchants can be reinstated")
	}

	m.Status = MerchantStatusApproved
	m.Touch()

	m.AddDomainEvent(NewMerchantReinstatedEvent(m))

	return nil
}

// SetCommissionRate sets the platform commission rate for this merchant.
// Orders snapshot the rate at checkout, so existing orders are unaffected.
func (m *Merchant) SetCommissionRate(rate decimal.Decimal) error {
	if err := validateCommissionRate(rate); err != nil {
		return err
	}

	oldRate := m.CommissionRate
	m.CommissionRate = rate
	m.Touch()

	m.AddDomainEvent(NewMerchantCommissionRateChangedEvent(m, oldRate, rate))

	return nil
}

// UpdatePayoutSettings sets the merchant's crypto payout destination.
// The wallet address format is checked against the selected currency's chain.
func (m *Merchant) UpdatePayoutSettings(currency PayoutCurrency, walletAddress string, minPayout valueobject.Money) error {
	if err := validatePayoutCurrency(currency); err != nil {
		return err
	}
	if err := validateWalletAddress(currency, walletAddress); err != nil {
		return err
	}
	if minPayout.IsNegative() {
		return shared.NewDomainError("INVALID_MIN_PAYOUT", "Minimum payout cannot be negative")
	}

	m.PayoutSettings = PayoutSettings{
		Currency:        currency,
		WalletAddress:   walletAddress,
		MinPayoutAmount: minPayout.Amount(),
	}
	m.Touch()

	m.AddDomainEvent(NewMerchantPayoutSettingsChangedEvent(m))

	return nil
}

// CanSell returns true if the merchant may list products and receive orders
func (m *Merchant) CanSell() bool {
	return m.Status == MerchantStatusApproved
}

// IsPendingReview returns true if the application awaits review
func (m *Merchant) IsPendingReview() bool {
	return m.Status == MerchantStatusPendingReview
}

// IsApproved returns true if the merchant is approved
func (m *Merchant) IsApproved() bool {
	return m.Status == MerchantStatusApproved
}

// IsSuspended returns true if the merchant is suspended
func (m *Merchant) IsSuspended() bool {
	return m.Status == MerchantStatusSuspended
}

// IsRejected returns true if the application was rejected
func (m *Merchant) IsRejected() bool {
	return m.Status == MerchantStatusRejected
}

// HasPayoutSettings returns true if a payout destination has been configured
func (m *Merchant) HasPayoutSettings() bool {
	return m.PayoutSettings.IsConfigured()
}

// GetMinPayoutMoney returns the minimum payout threshold as Money
func (m *Merchant) GetMinPayoutMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(m.PayoutSettings.MinPayoutAmount)
}

// Validation functions

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func validateBusinessName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_BUSINESS_NAME", "Business name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_BUSINESS_NAME", "Business name cannot exceed 200 characters")
	}
	return nil
}

func validateSlug(slug string) error {
	if slug == "" {
		return shared.NewDomainError("INVALID_SLUG", "Slug cannot be empty")
	}
	if len(slug) < 2 || len(slug) > 100 {
		return shared.NewDomainError("INVALID_SLUG", "Slug must be between 2 and 100 characters")
	}
	if !slugRegex.MatchString(strings.ToLower(slug)) {
		return shared.NewDomainError("INVALID_SLUG", "Slug can only contain lowercase letters, numbers, and hyphens")
	}
	return nil
}

func validateContactEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Contact email cannot be empty")
	}
	if len(email) > 320 {
		return shared.NewDomainError("INVALID_EMAIL", "Contact email cannot exceed 320 characters")
	}
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func validateCommissionRate(rate decimal.Decimal) error {
	if rate.IsNegative() {
		return shared.NewDomainError("INVALID_COMMISSION_RATE", "Commission rate cannot be negative")
	}
	if rate.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_COMMISSION_RATE", "Commission rate cannot exceed 100 percent")
	}
	return nil
}

func validatePayoutCurrency(currency PayoutCurrency) error {
	switch currency {
	case PayoutCurrencyUSDC, PayoutCurrencyUSDT:
		return nil
	default:
		return shared.NewDomainError("UNSUPPORTED_CURRENCY", "Payout currency must be USDC or USDT")
	}
}

func validateWalletAddress(currency PayoutCurrency, address string) error {
	if address == "" {
		return shared.NewDomainError("INVALID_WALLET_ADDRESS", "Wallet address cannot be empty")
	}
	switch currency {
	case PayoutCurrencyUSDC, PayoutCurrencyUSDT:
		if !evmAddressRegex.MatchString(address) {
			return shared.NewDomainError("INVALID_WALLET_ADDRESS", "Wallet address must be a 0x-prefixed 40-character hex address")
		}
	}
	return nil
}
