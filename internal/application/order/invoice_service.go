package order

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/merchant"
	"github.com/taic/backend/internal/domain/order"
	"github.com/taic/backend/internal/infrastructure/invoice"
)

// InvoiceDocument is a rendered order invoice ready to be served
type InvoiceDocument struct {
	FileName string
	PDFData  []byte
}

// InvoiceService renders PDF invoices for orders. Access is scoped the
// same way as order reads: buyers see their own orders, merchants their
// own sales, admins anything.
type InvoiceService struct {
	orderRepo    order.OrderRepository
	merchantRepo merchant.MerchantRepository
	generator    *invoice.Generator
	logger       *zap.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	orderRepo order.OrderRepository,
	merchantRepo merchant.MerchantRepository,
	generator *invoice.Generator,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		orderRepo:    orderRepo,
		merchantRepo: merchantRepo,
		generator:    generator,
		logger:       logger,
	}
}

// GenerateForBuyer renders the invoice for an order placed by the buyer
func (s *InvoiceService) GenerateForBuyer(ctx context.Context, buyerID, orderID uuid.UUID) (*InvoiceDocument, error) {
	ord, err := s.orderRepo.FindByIDForBuyer(ctx, buyerID, orderID)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, ord)
}

// GenerateForMerchant renders the invoice for an order sold by the merchant
func (s *InvoiceService) GenerateForMerchant(ctx context.Context, merchantID, orderID uuid.UUID) (*InvoiceDocument, error) {
	ord, err := s.orderRepo.FindByIDForMerchant(ctx, merchantID, orderID)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, ord)
}

// Generate renders the invoice for any order (admin)
func (s *InvoiceService) Generate(ctx context.Context, orderID uuid.UUID) (*InvoiceDocument, error) {
	ord, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, ord)
}

func (s *InvoiceService) render(ctx context.Context, ord *order.Order) (*InvoiceDocument, error) {
	m, err := s.merchantRepo.FindByID(ctx, ord.MerchantID)
	if err != nil {
		return nil, err
	}

	result, err := s.generator.Generate(ctx, ord, m.BusinessName)
	if err != nil {
		s.logger.Error("Failed to render order invoice",
			zap.String("order_id", ord.ID.String()),
			zap.String("order_number", ord.OrderNumber),
			zap.Error(err))
		return nil, err
	}

	return &InvoiceDocument{
		FileName: invoice.FileName(ord.OrderNumber),
		PDFData:  result.PDFData,
	}, nil
}
