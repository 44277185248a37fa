package invoice

import (
	"context"

	"github.com/taic/backend/internal/domain/order"
	"go.uber.org/zap"
)

// Generator turns a paid order into an invoice PDF. It binds the order
// snapshot to the invoice template and hands the HTML to the PDF renderer.
type Generator struct {
	template     *Template
	renderer     PDFRenderer
	platformName string
	currency     string
	logger       *zap.Logger
}

// NewGenerator creates an invoice generator. The platform name and currency
// come from marketplace configuration and appear on every invoice.
func NewGenerator(template *Template, renderer PDFRenderer, platformName, currency string, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		template:     template,
		renderer:     renderer,
		platformName: platformName,
		currency:     currency,
		logger:       logger,
	}
}

// Generate renders the invoice PDF for a paid order. The merchant name is
// passed by the caller since the order only carries the merchant ID.
func (g *Generator) Generate(ctx context.Context, ord *order.Order, merchantName string) (*RenderResult, error) {
	data, err := BuildInvoiceData(ord, merchantName, g.platformName, g.currency)
	if err != nil {
		return nil, err
	}

	html, err := g.template.Render(data)
	if err != nil {
		g.logger.Error("invoice template rendering failed",
			zap.String("order_number", data.OrderNumber),
			zap.Error(err))
		return nil, err
	}

	result, err := g.renderer.Render(ctx, &RenderRequest{
		HTML:  html,
		Title: data.InvoiceNumber,
	})
	if err != nil {
		g.logger.Error("invoice PDF rendering failed",
			zap.String("order_number", data.OrderNumber),
			zap.Error(err))
		return nil, err
	}

	return result, nil
}

// FileName returns the download file name for an order's invoice
func FileName(orderNumber string) string {
	return invoiceNumberPrefix + orderNumber + ".pdf"
}
