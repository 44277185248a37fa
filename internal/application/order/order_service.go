package order

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/order"
	"github.com/taic/backend/internal/domain/shared"
)

// OrderService drives the order lifecycle after checkout: buyer and
// merchant views, cancellations, and the fulfillment transitions.
// Payment-driven transitions (MarkPaid, MarkRefunded) happen in the
// payment service and webhook handlers.
type OrderService struct {
	orderRepo      order.OrderRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(orderRepo order.OrderRepository, logger *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// GetForBuyer returns an order placed by the buyer
func (s *OrderService) GetForBuyer(ctx context.Context, buyerID, orderID uuid.UUID) (*OrderResponse, error) {
	ord, err := s.orderRepo.FindByIDForBuyer(ctx, buyerID, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderResponse(ord), nil
}

// GetForMerchant returns an order sold by the merchant
func (s *OrderService) GetForMerchant(ctx context.Context, merchantID, orderID uuid.UUID) (*OrderResponse, error) {
	ord, err := s.orderRepo.FindByIDForMerchant(ctx, merchantID, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderResponse(ord), nil
}

// Get returns any order by ID (admin)
func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	ord, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderResponse(ord), nil
}

// ListForBuyer returns the buyer's orders with pagination
func (s *OrderService) ListForBuyer(ctx context.Context, buyerID uuid.UUID, filter *OrderListFilter) (*shared.Paginated[*OrderListResponse], error) {
	domainFilter := s.toDomainFilter(filter)

	orders, err := s.orderRepo.FindByBuyer(ctx, buyerID, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.orderRepo.CountByBuyer(ctx, buyerID, domainFilter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(toListResponses(orders), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// ListForMerchant returns the merchant's orders with pagination
func (s *OrderService) ListForMerchant(ctx context.Context, merchantID uuid.UUID, filter *OrderListFilter) (*shared.Paginated[*OrderListResponse], error) {
	domainFilter := s.toDomainFilter(filter)

	orders, err := s.orderRepo.FindByMerchant(ctx, merchantID, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.orderRepo.CountByMerchant(ctx, merchantID, domainFilter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(toListResponses(orders), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// List returns all orders with pagination (admin)
func (s *OrderService) List(ctx context.Context, filter *OrderListFilter) (*shared.Paginated[*OrderListResponse], error) {
	domainFilter := s.toDomainFilter(filter)

	orders, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.orderRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(toListResponses(orders), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// CancelForBuyer cancels the buyer's own order. Buyers may only cancel
// while the order is still awaiting payment; afterwards they go through
// the merchant or the refund flow.
func (s *OrderService) CancelForBuyer(ctx context.Context, buyerID, orderID uuid.UUID, req *CancelOrderRequest) (*OrderResponse, error) {
	ord, err := s.orderRepo.FindByIDForBuyer(ctx, buyerID, orderID)
	if err != nil {
		return nil, err
	}
	if !ord.IsCancellableByBuyer() {
		return nil, shared.NewDomainError("CANNOT_CANCEL", "Order can no longer be cancelled by the buyer")
	}
	return s.cancel(ctx, ord, req.Reason)
}

// CancelForMerchant cancels an order on the merchant side. The transition
// table allows this while the order is PENDING or PAID; paid orders are
// refunded by the cancellation handler.
func (s *OrderService) CancelForMerchant(ctx context.Context, merchantID, orderID uuid.UUID, req *CancelOrderRequest) (*OrderResponse, error) {
	ord, err := s.orderRepo.FindByIDForMerchant(ctx, merchantID, orderID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, ord, req.Reason)
}

// Cancel cancels any PENDING or PAID order (admin)
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID, req *CancelOrderRequest) (*OrderResponse, error) {
	ord, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, ord, req.Reason)
}

// StartProcessing marks a paid order as being prepared by the merchant
func (s *OrderService) StartProcessing(ctx context.Context, merchantID, orderID uuid.UUID) (*OrderResponse, error) {
	ord, err := s.orderRepo.FindByIDForMerchant(ctx, merchantID, orderID)
	if err != nil {
		return nil, err
	}
	if err := ord.StartProcessing(); err != nil {
		return nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, ord); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, ord)
	return ToOrderResponse(ord), nil
}

// Ship marks an order as shipped with tracking details
func (s *OrderService) Ship(ctx context.Context, merchantID, orderID uuid.UUID, req *ShipOrderRequest) (*OrderResponse, error) {
	ord, err := s.orderRepo.FindByIDForMerchant(ctx, merchantID, orderID)
	if err != nil {
		return nil, err
	}
	if err := ord.MarkShipped(req.TrackingNumber, req.Carrier); err != nil {
		return nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, ord); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, ord)

	s.logger.Info("Order shipped",
		zap.String("order_id", ord.ID.String()),
		zap.String("order_number", ord.OrderNumber),
		zap.String("tracking_number", req.TrackingNumber))

	return ToOrderResponse(ord), nil
}

// Deliver marks a shipped order as delivered. Completion follows through
// the delivery event handler.
func (s *OrderService) Deliver(ctx context.Context, merchantID, orderID uuid.UUID) (*OrderResponse, error) {
	ord, err := s.orderRepo.FindByIDForMerchant(ctx, merchantID, orderID)
	if err != nil {
		return nil, err
	}
	if err := ord.MarkDelivered(); err != nil {
		return nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, ord); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, ord)
	return ToOrderResponse(ord), nil
}

// Complete finalizes a delivered order (admin). Completion credits the
// merchant's earnings through the completion handler.
func (s *OrderService) Complete(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	ord, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := ord.Complete(); err != nil {
		return nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, ord); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, ord)
	return ToOrderResponse(ord), nil
}

func (s *OrderService) cancel(ctx context.Context, ord *order.Order, reason string) (*OrderResponse, error) {
	if err := ord.Cancel(reason); err != nil {
		return nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, ord); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, ord)

	s.logger.Info("Order cancelled",
		zap.String("order_id", ord.ID.String()),
		zap.String("order_number", ord.OrderNumber),
		zap.String("reason", reason))

	return ToOrderResponse(ord), nil
}

func (s *OrderService) toDomainFilter(filter *OrderListFilter) shared.Filter {
	domainFilter := shared.DefaultFilter()
	if filter == nil {
		return domainFilter
	}
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
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	return domainFilter
}

func toListResponses(orders []order.Order) []*OrderListResponse {
	responses := make([]*OrderListResponse, len(orders))
	for i := range orders {
		responses[i] = ToOrderListResponse(&orders[i])
	}
	return responses
}

func (s *OrderService) publishEvents(ctx context.Context, ord *order.Order) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range ord.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish order event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	ord.ClearDomainEvents()
}
