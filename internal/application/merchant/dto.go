package merchant

import (
	"time"

	"github.com/taic/backend/internal/domain/merchant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApplyMerchantRequest represents a merchant application
type ApplyMerchantRequest struct {
	BusinessName string `json:"business_name" binding:"required,min=1,max=200"`
	Slug         string `json:"slug" binding:"required,min=2,max=100"`
	ContactEmail string `json:"contact_email" binding:"required,email"`
	ContactPhone string `json:"contact_phone" binding:"max=50"`
	Description  string `json:"description" binding:"max=5000"`
}

// UpdateProfileRequest represents a request to update the storefront profile
type UpdateProfileRequest struct {
	BusinessName string  `json:"business_name" binding:"required,min=1,max=200"`
	Description  string  `json:"description" binding:"max=5000"`
	LogoURL      *string `json:"logo_url" binding:"omitempty,max=500"`
	ContactEmail *string `json:"contact_email" binding:"omitempty,email"`
	ContactPhone *string `json:"contact_phone" binding:"omitempty,max=50"`
}

// UpdatePayoutSettingsRequest represents a request to set the payout destination
type UpdatePayoutSettingsRequest struct {
	Currency        string          `json:"currency" binding:"required,oneof=USDC USDT"`
	WalletAddress   string          `json:"wallet_address" binding:"required,max=64"`
	MinPayoutAmount decimal.Decimal `json:"min_payout_amount"`
}

// ApproveMerchantRequest carries optional reviewer notes
type ApproveMerchantRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

// RejectMerchantRequest carries the mandatory rejection reason
type RejectMerchantRequest struct {
	Reason string `json:"reason" binding:"required,max=2000"`
}

// SuspendMerchantRequest carries the mandatory suspension reason
type SuspendMerchantRequest struct {
	Reason string `json:"reason" binding:"required,max=2000"`
}

// SetCommissionRateRequest sets a merchant-specific platform commission rate
type SetCommissionRateRequest struct {
	CommissionRate decimal.Decimal `json:"commission_rate" binding:"required"`
}

// MerchantListFilter represents filter options for the admin merchant list
type MerchantListFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=pending_review approved suspended rejected"`
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"min=1"`
	PageSize int    `form:"page_size" binding:"min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PayoutSettingsResponse represents payout settings in API responses
type PayoutSettingsResponse struct {
	Currency        string          `json:"currency"`
	WalletAddress   string          `json:"wallet_address"`
	MinPayoutAmount decimal.Decimal `json:"min_payout_amount"`
}

// MerchantResponse represents a merchant in API responses
type MerchantResponse struct {
	ID             uuid.UUID               `json:"id"`
	OwnerUserID    uuid.UUID               `json:"owner_user_id"`
	BusinessName   string                  `json:"business_name"`
	Slug           string                  `json:"slug"`
	Description    string                  `json:"description"`
	LogoURL        string                  `json:"logo_url"`
	ContactEmail   string                  `json:"contact_email"`
	ContactPhone   string                  `json:"contact_phone"`
	Status         string                  `json:"status"`
	CommissionRate decimal.Decimal         `json:"commission_rate"`
	PayoutSettings *PayoutSettingsResponse `json:"payout_settings,omitempty"`
	ReviewedAt     *time.Time              `json:"reviewed_at,omitempty"`
	ReviewNotes    string                  `json:"review_notes,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
	Version        int                     `json:"version"`
}

// DashboardResponse summarizes a merchant's sales and balance
type DashboardResponse struct {
	TotalOrders        int64           `json:"total_orders"`
	AwaitingProcessing int64           `json:"awaiting_processing"` // Paid, not yet started
	Processing         int64           `json:"processing"`
	Shipped            int64           `json:"shipped"`
	GrossSales         decimal.Decimal `json:"gross_sales"`
	Earnings           decimal.Decimal `json:"earnings"`
	AvailableBalance   decimal.Decimal `json:"available_balance"`
	PendingPayouts     decimal.Decimal `json:"pending_payouts"`
}

// ToMerchantResponse converts a domain Merchant to MerchantResponse
func ToMerchantResponse(m *merchant.Merchant) MerchantResponse {
	resp := MerchantResponse{
		ID:             m.ID,
		OwnerUserID:    m.OwnerUserID,
		BusinessName:   m.BusinessName,
		Slug:           m.Slug,
		Description:    m.Description,
		LogoURL:        m.LogoURL,
		ContactEmail:   m.ContactEmail,
		ContactPhone:   m.ContactPhone,
		Status:         string(m.Status),
		CommissionRate: m.CommissionRate,
		ReviewedAt:     m.ReviewedAt,
		ReviewNotes:    m.ReviewNotes,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		Version:        m.Version,
	}
	if m.HasPayoutSettings() {
		resp.PayoutSettings = &PayoutSettingsResponse{
			Currency:        string(m.PayoutSettings.Currency),
			WalletAddress:   m.PayoutSettings.WalletAddress,
			MinPayoutAmount: m.PayoutSettings.MinPayoutAmount,
		}
	}
	return resp
}

// ToMerchantResponses converts a slice of merchants
func ToMerchantResponses(merchants []merchant.Merchant) []MerchantResponse {
	responses := make([]MerchantResponse, 0, len(merchants))
	for i := range merchants {
		responses = append(responses, ToMerchantResponse(&merchants[i]))
	}
	return responses
}
