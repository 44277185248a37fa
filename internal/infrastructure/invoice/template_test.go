package invoice

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInvoiceData() *InvoiceData {
	return &InvoiceData{
		InvoiceNumber: "INV-TAIC-20260825-ABC234",
		OrderNumber:   "TAIC-20260825-ABC234",
		IssuedAt:      time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC),
		Status:        "PAID",
		PlatformName:  "TAIC Marketplace",
		MerchantName:  "Blue Bottle Ceramics",
		BuyerEmail:    "buyer@example.test",
		BillTo: BillingAddress{
			RecipientName: "Jordan Reyes",
			Line1:         "42 Harbor St",
			City:          "Portland",
			State:         "OR",
			PostalCode:    "97201",
			Country:       "US",
		},
		Currency: "USD",
		Lines: []InvoiceLine{
			{
				Index:       1,
				ProductName: "Ceramic Mug",
				SKU:         "MUG-01",
				UnitPrice:   decimal.RequireFromString("25.00"),
				Quantity:    2,
				LineTotal:   decimal.RequireFromString("50.00"),
			},
		},
		Subtotal:    decimal.RequireFromString("50.00"),
		ShippingFee: decimal.RequireFromString("5.00"),
		Total:       decimal.RequireFromString("55.00"),
	}
}

func TestTemplate_Render(t *testing.T) {
	tmpl, err := NewTemplate()
	require.NoError(t, err)

	t.Run("renders invoice fields", func(t *testing.T) {
		html, err := tmpl.Render(testInvoiceData())
		require.NoError(t, err)

		assert.Contains(t, html, "INV-TAIC-20260825-ABC234")
		assert.Contains(t, html, "TAIC Marketplace")
		assert.Contains(t, html, "Blue Bottle Ceramics")
		assert.Contains(t, html, "Jordan Reyes")
		assert.Contains(t, html, "Ceramic Mug")
		assert.Contains(t, html, "MUG-01")
		assert.Contains(t, html, "buyer@example.test")
		assert.Contains(t, html, "2026-08-25")
	})

	t.Run("formats money with currency symbol", func(t *testing.T) {
		html, err := tmpl.Render(testInvoiceData())
		require.NoError(t, err)

		assert.Contains(t, html, "$25.00")
		assert.Contains(t, html, "$50.00")
		assert.Contains(t, html, "$5.00")
		assert.Contains(t, html, "$55.00")
	})

	t.Run("title cases labels and status", func(t *testing.T) {
		html, err := tmpl.Render(testInvoiceData())
		require.NoError(t, err)

		assert.Contains(t, html, "Invoice")
		assert.Contains(t, html, "Billed To")
		assert.Contains(t, html, "Sold By")
		assert.Contains(t, html, "Status: Paid")
	})

	t.Run("escapes HTML in user supplied values", func(t *testing.T) {
		data := testInvoiceData()
		data.Lines[0].ProductName = `<script>alert("mug")</script>`

		html, err := tmpl.Render(data)
		require.NoError(t, err)

		assert.NotContains(t, html, "<script>")
	})

	t.Run("rejects nil data", func(t *testing.T) {
		_, err := tmpl.Render(nil)
		require.Error(t, err)

		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrCodeTemplateError, renderErr.Code)
	})
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     string
	}{
		{"dollar with cents", "25.5", "USD", "$25.50"},
		{"thousand separators", "1234567.8", "USD", "$1,234,567.80"},
		{"negative amount", "-42.10", "USD", "-$42.10"},
		{"euro symbol", "10", "EUR", "€10.00"},
		{"unknown currency falls back to code", "10", "XTS", "XTS 10.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatMoney(decimal.RequireFromString(tt.amount), tt.currency)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Paid", statusText("PAID"))
	assert.Equal(t, "Processing", statusText("PROCESSING"))
	assert.Equal(t, "", statusText(""))
}

func TestFormatDate(t *testing.T) {
	ts := time.Date(2026, 8, 25, 14, 30, 45, 0, time.UTC)
	assert.Equal(t, "2026-08-25", formatDate(ts))
	assert.Equal(t, "2026-08-25 14:30:45", formatDateTime(ts))
	assert.Empty(t, formatDate(time.Time{}))
	assert.Empty(t, formatDateTime(time.Time{}))
}
