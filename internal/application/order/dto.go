package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/taic/backend/internal/domain/order"
)

// CheckoutItemRequest is one cart line submitted to quote or checkout
type CheckoutItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,gt=0"`
}

// ShippingAddressRequest is the delivery destination submitted at checkout
type ShippingAddressRequest struct {
	RecipientName string `json:"recipient_name" binding:"required,max=200"`
	Phone         string `json:"phone" binding:"max=50"`
	Line1         string `json:"line1" binding:"required,max=200"`
	Line2         string `json:"line2" binding:"max=200"`
	City          string `json:"city" binding:"required,max=100"`
	State         string `json:"state" binding:"max=100"`
	PostalCode    string `json:"postal_code" binding:"required,max=20"`
	Country       string `json:"country" binding:"required,len=2"`
}

// QuoteRequest represents a request to price a cart before checkout
type QuoteRequest struct {
	Items []CheckoutItemRequest `json:"items" binding:"required,min=1,max=50,dive"`
}

// PlaceOrderRequest represents a request to place an order
type PlaceOrderRequest struct {
	Items           []CheckoutItemRequest  `json:"items" binding:"required,min=1,max=50,dive"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address" binding:"required"`
}

// CancelOrderRequest represents a request to cancel an order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ShipOrderRequest represents a request to mark an order shipped
type ShipOrderRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"required,max=100"`
	Carrier        string `json:"carrier" binding:"max=100"`
}

// OrderListFilter represents filter options for order listings
type OrderListFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=PENDING PAID PROCESSING SHIPPED DELIVERED COMPLETED CANCELLED REFUNDED"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// QuoteLineResponse is one priced cart line in a quote
type QuoteLineResponse struct {
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	SKU              string          `json:"sku"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Quantity         int             `json:"quantity"`
	LineTotal        decimal.Decimal `json:"line_total"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	MerchantEarnings decimal.Decimal `json:"merchant_earnings"`
	InStock          bool            `json:"in_stock"`
}

// QuoteResponse is the priced preview of a cart
type QuoteResponse struct {
	MerchantID       uuid.UUID           `json:"merchant_id"`
	Lines            []QuoteLineResponse `json:"lines"`
	Subtotal         decimal.Decimal     `json:"subtotal"`
	ShippingFee      decimal.Decimal     `json:"shipping_fee"`
	Total            decimal.Decimal     `json:"total"`
	PlatformFee      decimal.Decimal     `json:"platform_fee"`
	MerchantEarnings decimal.Decimal     `json:"merchant_earnings"`
}

// ShippingAddressResponse is the delivery destination snapshot on an order
type ShippingAddressResponse struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone,omitempty"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2,omitempty"`
	City          string `json:"city"`
	State         string `json:"state,omitempty"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
}

// OrderItemResponse is one purchased line in an order response
type OrderItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	SKU              string          `json:"sku,omitempty"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Quantity         int             `json:"quantity"`
	LineTotal        decimal.Decimal `json:"line_total"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	MerchantEarnings decimal.Decimal `json:"merchant_earnings"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID               uuid.UUID               `json:"id"`
	OrderNumber      string                  `json:"order_number"`
	MerchantID       uuid.UUID               `json:"merchant_id"`
	BuyerID          uuid.UUID               `json:"buyer_id"`
	BuyerEmail       string                  `json:"buyer_email"`
	Status           string                  `json:"status"`
	ShippingAddress  ShippingAddressResponse `json:"shipping_address"`
	Items            []OrderItemResponse     `json:"items"`
	Subtotal         decimal.Decimal         `json:"subtotal"`
	ShippingFee      decimal.Decimal         `json:"shipping_fee"`
	TotalAmount      decimal.Decimal         `json:"total_amount"`
	PlatformFee      decimal.Decimal         `json:"platform_fee"`
	MerchantEarnings decimal.Decimal         `json:"merchant_earnings"`
	TrackingNumber   string                  `json:"tracking_number,omitempty"`
	Carrier          string                  `json:"carrier,omitempty"`
	CancelReason     string                  `json:"cancel_reason,omitempty"`
	PaidAt           *time.Time              `json:"paid_at,omitempty"`
	ShippedAt        *time.Time              `json:"shipped_at,omitempty"`
	DeliveredAt      *time.Time              `json:"delivered_at,omitempty"`
	CompletedAt      *time.Time              `json:"completed_at,omitempty"`
	CancelledAt      *time.Time              `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
	Version          int                     `json:"version"`
}

// OrderListResponse is the lighter per-row shape for order listings
type OrderListResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderNumber string          `json:"order_number"`
	MerchantID  uuid.UUID       `json:"merchant_id"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PlaceOrderResponse is returned by checkout: the created order plus what
// the client needs to collect payment
type PlaceOrderResponse struct {
	Order        *OrderResponse `json:"order"`
	PaymentID    uuid.UUID      `json:"payment_id"`
	ClientSecret string         `json:"client_secret"`
}

func toShippingAddress(req ShippingAddressRequest) order.ShippingAddress {
	return order.ShippingAddress{
		RecipientName: req.RecipientName,
		Phone:         req.Phone,
		Line1:         req.Line1,
		Line2:         req.Line2,
		City:          req.City,
		State:         req.State,
		PostalCode:    req.PostalCode,
		Country:       req.Country,
	}
}

// ToOrderItemResponse converts a domain order item to a response DTO
func ToOrderItemResponse(item *order.OrderItem) OrderItemResponse {
	return OrderItemResponse{
		ID:               item.ID,
		ProductID:        item.ProductID,
		ProductName:      item.ProductName,
		SKU:              item.SKU,
		UnitPrice:        item.UnitPrice,
		Quantity:         item.Quantity,
		LineTotal:        item.LineTotal,
		CommissionRate:   item.CommissionRate,
		CommissionAmount: item.CommissionAmount,
		MerchantEarnings: item.MerchantEarnings,
	}
}

// ToOrderResponse converts a domain order to a response DTO
func ToOrderResponse(o *order.Order) *OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i := range o.Items {
		items[i] = ToOrderItemResponse(&o.Items[i])
	}

	return &OrderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		MerchantID:  o.MerchantID,
		BuyerID:     o.BuyerID,
		BuyerEmail:  o.BuyerEmail,
		Status:      o.Status.String(),
		ShippingAddress: ShippingAddressResponse{
			RecipientName: o.ShippingAddress.RecipientName,
			Phone:         o.ShippingAddress.Phone,
			Line1:         o.ShippingAddress.Line1,
			Line2:         o.ShippingAddress.Line2,
			City:          o.ShippingAddress.City,
			State:         o.ShippingAddress.State,
			PostalCode:    o.ShippingAddress.PostalCode,
			Country:       o.ShippingAddress.Country,
		},
		Items:            items,
		Subtotal:         o.Subtotal,
		ShippingFee:      o.ShippingFee,
		TotalAmount:      o.TotalAmount,
		PlatformFee:      o.PlatformFee,
		MerchantEarnings: o.GetMerchantEarningsMoney().Amount(),
		TrackingNumber:   o.TrackingNumber,
		Carrier:          o.Carrier,
		CancelReason:     o.CancelReason,
		PaidAt:           o.PaidAt,
		ShippedAt:        o.ShippedAt,
		DeliveredAt:      o.DeliveredAt,
		CompletedAt:      o.CompletedAt,
		CancelledAt:      o.CancelledAt,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		Version:          o.Version,
	}
}

// ToOrderListResponse converts a domain order to a list row DTO
func ToOrderListResponse(o *order.Order) *OrderListResponse {
	return &OrderListResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		MerchantID:  o.MerchantID,
		BuyerID:     o.BuyerID,
		Status:      o.Status.String(),
		TotalAmount: o.TotalAmount,
		ItemCount:   len(o.Items),
		CreatedAt:   o.CreatedAt,
	}
}
