package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/catalog"
	"github.com/taic/backend/internal/domain/inventory"
	"github.com/taic/backend/internal/domain/merchant"
	"github.com/taic/backend/internal/domain/order"
	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/domain/shared/valueobject"
	"github.com/taic/backend/internal/infrastructure/telemetry"
)

// orderNumberAttempts bounds retries when a generated order number collides
const orderNumberAttempts = 3

// PaymentIntentService creates the payment a buyer completes after checkout.
// Implemented by the payment application service.
type PaymentIntentService interface {
	CreateIntent(ctx context.Context, ord *order.Order) (paymentID uuid.UUID, clientSecret string, err error)
}

// CheckoutRepositories exposes the repositories that participate in the
// checkout transaction
type CheckoutRepositories interface {
	OrderRepo() order.OrderRepository
	InventoryRepo() inventory.InventoryItemRepository
}

// CheckoutScope runs a function within a database transaction so stock
// reservations and the order row commit or roll back together
type CheckoutScope interface {
	Execute(ctx context.Context, fn func(repos CheckoutRepositories) error) error
}

// CheckoutServiceConfig carries the pricing knobs applied at checkout
type CheckoutServiceConfig struct {
	ShippingFee    decimal.Decimal // Flat fee per order
	ReservationTTL time.Duration   // How long unpaid orders hold stock
}

// DefaultCheckoutServiceConfig returns the checkout defaults
func DefaultCheckoutServiceConfig() CheckoutServiceConfig {
	return CheckoutServiceConfig{
		ShippingFee:    decimal.NewFromFloat(5.00),
		ReservationTTL: 30 * time.Minute,
	}
}

// CheckoutService prices carts and turns them into orders. Placing an order
// reserves stock and creates the order atomically, then asks the payment
// provider for an intent the buyer completes client-side.
type CheckoutService struct {
	scope          CheckoutScope
	productRepo    catalog.ProductRepository
	merchantRepo   merchant.MerchantRepository
	inventoryRepo  inventory.InventoryItemRepository
	paymentService PaymentIntentService
	eventPublisher shared.EventPublisher
	metrics        *telemetry.BusinessMetrics
	config         CheckoutServiceConfig
	logger         *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	scope CheckoutScope,
	productRepo catalog.ProductRepository,
	merchantRepo merchant.MerchantRepository,
	inventoryRepo inventory.InventoryItemRepository,
	paymentService PaymentIntentService,
	config CheckoutServiceConfig,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		scope:          scope,
		productRepo:    productRepo,
		merchantRepo:   merchantRepo,
		inventoryRepo:  inventoryRepo,
		paymentService: paymentService,
		config:         config,
		logger:         logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *CheckoutService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics enables order volume metrics on successful checkouts
func (s *CheckoutService) SetBusinessMetrics(metrics *telemetry.BusinessMetrics) {
	s.metrics = metrics
}

// Quote prices a cart without placing an order. Lines are snapshotted the
// same way checkout snapshots them, so a quote's totals match the order the
// same cart would produce.
func (s *CheckoutService) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	sellingMerchant, lines, err := s.buildLines(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, len(lines))
	for i, line := range lines {
		productIDs[i] = line.ProductID
	}
	items, err := s.inventoryRepo.FindByProducts(ctx, sellingMerchant.ID, productIDs)
	if err != nil {
		return nil, err
	}
	availability := make(map[uuid.UUID]*inventory.InventoryItem, len(items))
	for i := range items {
		availability[items[i].ProductID] = &items[i]
	}

	resp := &QuoteResponse{
		MerchantID:       sellingMerchant.ID,
		Lines:            make([]QuoteLineResponse, 0, len(lines)),
		Subtotal:         decimal.Zero,
		ShippingFee:      s.config.ShippingFee,
		PlatformFee:      decimal.Zero,
		MerchantEarnings: decimal.Zero,
	}
	for _, line := range lines {
		// Reuse the order item math so quoted commissions round identically
		item, err := order.NewOrderItem(uuid.New(), sellingMerchant.ID, line)
		if err != nil {
			return nil, err
		}

		inStock := false
		if inv, ok := availability[line.ProductID]; ok {
			inStock = inv.CanFulfill(line.Quantity)
		}

		resp.Lines = append(resp.Lines, QuoteLineResponse{
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			SKU:              item.SKU,
			UnitPrice:        item.UnitPrice,
			Quantity:         item.Quantity,
			LineTotal:        item.LineTotal,
			CommissionRate:   item.CommissionRate,
			CommissionAmount: item.CommissionAmount,
			MerchantEarnings: item.MerchantEarnings,
			InStock:          inStock,
		})
		resp.Subtotal = resp.Subtotal.Add(item.LineTotal)
		resp.PlatformFee = resp.PlatformFee.Add(item.CommissionAmount)
		resp.MerchantEarnings = resp.MerchantEarnings.Add(item.MerchantEarnings)
	}
	resp.Total = resp.Subtotal.Add(resp.ShippingFee)

	return resp, nil
}

// PlaceOrder converts a cart into a PENDING order. Stock is reserved and the
// order saved in one transaction; the payment intent is created after commit
// and the order cancelled again if the provider rejects it.
func (s *CheckoutService) PlaceOrder(ctx context.Context, buyerID uuid.UUID, buyerEmail string, req PlaceOrderRequest) (*PlaceOrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "place_order")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBuyerID, buyerID.String(),
		telemetry.SpanAttrLineCount, len(req.Items),
	)

	sellingMerchant, lines, err := s.buildLines(ctx, req.Items)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrMerchantID, sellingMerchant.ID.String())

	shipping := toShippingAddress(req.ShippingAddress)
	shippingFee := valueobject.NewMoneyUSD(s.config.ShippingFee)

	var (
		ord           *order.Order
		reservedItems []*inventory.InventoryItem
	)
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		ord, err = order.NewOrder(sellingMerchant.ID, buyerID, order.NewOrderNumber(time.Now()), buyerEmail, shipping, lines, shippingFee)
		if err != nil {
			return nil, err
		}

		reservedItems = reservedItems[:0]
		err = s.scope.Execute(ctx, func(repos CheckoutRepositories) error {
			expiresAt := time.Now().Add(s.config.ReservationTTL)
			for _, line := range lines {
				item, err := repos.InventoryRepo().FindByProduct(ctx, sellingMerchant.ID, line.ProductID)
				if err != nil {
					if errors.Is(err, shared.ErrNotFound) {
						return shared.NewDomainError("INSUFFICIENT_STOCK", fmt.Sprintf("%s is out of stock", line.ProductName))
					}
					return err
				}
				if _, err := item.Reserve(line.Quantity, ord.ID, expiresAt); err != nil {
					var domainErr *shared.DomainError
					if errors.As(err, &domainErr) && domainErr.Code == "INSUFFICIENT_STOCK" {
						return shared.NewDomainError("INSUFFICIENT_STOCK", fmt.Sprintf("Not enough stock for %s", line.ProductName))
					}
					return err
				}
				if err := repos.InventoryRepo().SaveWithLock(ctx, item); err != nil {
					return err
				}
				reservedItems = append(reservedItems, item)
				telemetry.AddEvent(span, "stock_reserved",
					telemetry.SpanAttrProductID, line.ProductID.String(),
					telemetry.SpanAttrSKU, line.SKU,
					telemetry.SpanAttrQuantity, line.Quantity,
				)
			}
			return repos.OrderRepo().Save(ctx, ord)
		})
		if err == nil {
			break
		}
		if errors.Is(err, shared.ErrAlreadyExists) && attempt < orderNumberAttempts-1 {
			s.logger.Warn("Order number collision, regenerating",
				zap.String("order_number", ord.OrderNumber))
			continue
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.AddEvent(span, "order_reserved",
		telemetry.SpanAttrOrderNumber, ord.OrderNumber,
		telemetry.SpanAttrAmount, ord.TotalAmount.String(),
	)

	s.publishEvents(ctx, ord)
	for _, item := range reservedItems {
		s.publishEvents(ctx, item)
	}

	paymentID, clientSecret, err := s.paymentService.CreateIntent(ctx, ord)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Payment intent creation failed, cancelling order",
			zap.String("order_id", ord.ID.String()),
			zap.String("order_number", ord.OrderNumber),
			zap.Error(err))
		if cancelErr := s.cancelUnpaidOrder(ctx, ord, "payment initialization failed"); cancelErr != nil {
			s.logger.Error("Failed to cancel order after payment intent failure",
				zap.String("order_id", ord.ID.String()),
				zap.Error(cancelErr))
		}
		return nil, shared.NewDomainError("PAYMENT_PROVIDER_ERROR", "Could not initialize payment for this order")
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, ord.ID.String(),
		telemetry.SpanAttrPaymentID, paymentID.String(),
	)
	telemetry.SetOK(span)

	if s.metrics != nil {
		s.metrics.RecordOrderWithAmount(ctx, sellingMerchant.ID, ord.TotalAmount)
	}

	s.logger.Info("Order placed",
		zap.String("order_id", ord.ID.String()),
		zap.String("order_number", ord.OrderNumber),
		zap.String("merchant_id", sellingMerchant.ID.String()),
		zap.String("buyer_id", buyerID.String()),
		zap.String("total", ord.TotalAmount.String()))

	return &PlaceOrderResponse{
		Order:        ToOrderResponse(ord),
		PaymentID:    paymentID,
		ClientSecret: clientSecret,
	}, nil
}

// buildLines resolves cart items into order lines, snapshotting listing
// name, SKU, price, and the merchant's commission rate. Duplicate product
// entries are merged. All items must belong to one approved merchant.
func (s *CheckoutService) buildLines(ctx context.Context, items []CheckoutItemRequest) (*merchant.Merchant, []order.OrderLine, error) {
	quantities := make(map[uuid.UUID]int, len(items))
	productIDs := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if _, seen := quantities[it.ProductID]; !seen {
			productIDs = append(productIDs, it.ProductID)
		}
		quantities[it.ProductID] += it.Quantity
	}

	products, err := s.productRepo.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	var merchantID uuid.UUID
	for _, id := range productIDs {
		product, ok := byID[id]
		if !ok {
			return nil, nil, shared.NewDomainError("PRODUCT_NOT_FOUND", fmt.Sprintf("Listing %s does not exist", id))
		}
		if !product.IsActive() {
			return nil, nil, shared.NewDomainError("PRODUCT_NOT_AVAILABLE", fmt.Sprintf("%s is not available for purchase", product.Name))
		}
		if merchantID == uuid.Nil {
			merchantID = product.MerchantID
		} else if product.MerchantID != merchantID {
			return nil, nil, shared.NewDomainError("MULTIPLE_MERCHANTS", "All items in an order must come from the same merchant")
		}
	}

	sellingMerchant, err := s.merchantRepo.FindByID(ctx, merchantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, shared.NewDomainError("MERCHANT_NOT_FOUND", "The selling merchant no longer exists")
		}
		return nil, nil, err
	}
	if !sellingMerchant.CanSell() {
		return nil, nil, shared.NewDomainError("MERCHANT_NOT_APPROVED", "This merchant is not currently accepting orders")
	}

	lines := make([]order.OrderLine, 0, len(productIDs))
	for _, id := range productIDs {
		product := byID[id]
		lines = append(lines, order.OrderLine{
			ProductID:      product.ID,
			ProductName:    product.Name,
			SKU:            product.SKU,
			UnitPrice:      product.GetPriceMoney(),
			Quantity:       quantities[id],
			CommissionRate: sellingMerchant.CommissionRate,
		})
	}

	return sellingMerchant, lines, nil
}

// cancelUnpaidOrder backs out an order whose payment intent could not be
// created. The cancellation event releases the stock reservations.
func (s *CheckoutService) cancelUnpaidOrder(ctx context.Context, ord *order.Order, reason string) error {
	if err := ord.Cancel(reason); err != nil {
		return err
	}
	err := s.scope.Execute(ctx, func(repos CheckoutRepositories) error {
		return repos.OrderRepo().SaveWithLock(ctx, ord)
	})
	if err != nil {
		return err
	}
	s.publishEvents(ctx, ord)
	return nil
}

func (s *CheckoutService) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range aggregate.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish checkout event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	aggregate.ClearDomainEvents()
}
