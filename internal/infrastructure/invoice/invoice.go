package invoice

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/taic/backend/internal/domain/order"
	"github.com/taic/backend/internal/domain/shared"
)

// InvoiceData is the snapshot an invoice is rendered from. All values are
// copied out of the order at build time so the document never changes when
// catalog or merchant records do.
type InvoiceData struct {
	InvoiceNumber string
	OrderNumber   string
	IssuedAt      time.Time
	Status        string

	PlatformName string
	MerchantName string
	BuyerEmail   string
	BillTo       BillingAddress

	Currency    string
	Lines       []InvoiceLine
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Total       decimal.Decimal
}

// InvoiceLine is one line item on the invoice
type InvoiceLine struct {
	Index       int
	ProductName string
	SKU         string
	UnitPrice   decimal.Decimal
	Quantity    int
	LineTotal   decimal.Decimal
}

// BillingAddress is the buyer address printed on the invoice
type BillingAddress struct {
	RecipientName string
	Line1         string
	Line2         string
	City          string
	State         string
	PostalCode    string
	Country       string
}

// invoiceNumberPrefix is prepended to the order number to form the
// invoice number. One order produces at most one invoice.
const invoiceNumberPrefix = "INV-"

// BuildInvoiceData assembles the invoice snapshot for a paid order.
// Orders that were never paid have no invoice.
func BuildInvoiceData(ord *order.Order, merchantName, platformName, currency string) (*InvoiceData, error) {
	if ord == nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order is required")
	}
	if ord.PaidAt == nil {
		return nil, shared.NewDomainError("INVOICE_UNAVAILABLE", "Invoice is only available for paid orders")
	}

	lines := make([]InvoiceLine, len(ord.Items))
	for i, item := range ord.Items {
		lines[i] = InvoiceLine{
			Index:       i + 1,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal,
		}
	}

	return &InvoiceData{
		InvoiceNumber: invoiceNumberPrefix + ord.OrderNumber,
		OrderNumber:   ord.OrderNumber,
		IssuedAt:      *ord.PaidAt,
		Status:        string(ord.Status),
		PlatformName:  platformName,
		MerchantName:  merchantName,
		BuyerEmail:    ord.BuyerEmail,
		BillTo: BillingAddress{
			RecipientName: ord.ShippingAddress.RecipientName,
			Line1:         ord.ShippingAddress.Line1,
			Line2:         ord.ShippingAddress.Line2,
			City:          ord.ShippingAddress.City,
			State:         ord.ShippingAddress.State,
			PostalCode:    ord.ShippingAddress.PostalCode,
			Country:       ord.ShippingAddress.Country,
		},
		Currency:    currency,
		Lines:       lines,
		Subtotal:    ord.Subtotal,
		ShippingFee: ord.ShippingFee,
		Total:       ord.TotalAmount,
	}, nil
}
