package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/order"
	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/domain/shared/valueobject"
)

// ============================================================================
// Helpers
// ============================================================================

type orderServiceMocks struct {
	orderRepo *MockOrderRepository
	publisher *MockEventPublisher
}

func newOrderService() (*OrderService, *orderServiceMocks) {
	mocks := &orderServiceMocks{
		orderRepo: new(MockOrderRepository),
		publisher: new(MockEventPublisher),
	}
	service := NewOrderService(mocks.orderRepo, zap.NewNop())
	return service, mocks
}

func createTestOrder(t *testing.T, merchantID, buyerID uuid.UUID) *order.Order {
	t.Helper()
	lines := []order.OrderLine{{
		ProductID:      uuid.New(),
		ProductName:    "Trail Backpack",
		SKU:            "PACK-001",
		UnitPrice:      valueobject.NewMoneyUSDFromFloat(89.99),
		Quantity:       2,
		CommissionRate: decimal.NewFromInt(10),
	}}
	ord, err := order.NewOrder(merchantID, buyerID, order.NewOrderNumber(time.Now()), "buyer@example.test",
		toShippingAddress(testShippingAddress()), lines, valueobject.NewMoneyUSDFromFloat(5.00))
	require.NoError(t, err)
	ord.ClearDomainEvents()
	return ord
}

func createPaidOrder(t *testing.T, merchantID, buyerID uuid.UUID) *order.Order {
	t.Helper()
	ord := createTestOrder(t, merchantID, buyerID)
	require.NoError(t, ord.MarkPaid(uuid.New()))
	ord.ClearDomainEvents()
	return ord
}

func createShippedOrder(t *testing.T, merchantID, buyerID uuid.UUID) *order.Order {
	t.Helper()
	ord := createPaidOrder(t, merchantID, buyerID)
	require.NoError(t, ord.StartProcessing())
	require.NoError(t, ord.MarkShipped("1ZT4IC0042", "UPS"))
	ord.ClearDomainEvents()
	return ord
}

// ============================================================================
// Get / List
// ============================================================================

func TestOrderService_GetForBuyer_ReturnsOrder(t *testing.T) {
	service, mocks := newOrderService()
	ctx := context.Background()

	buyerID := uuid.New()
	ord := createTestOrder(t, uuid.New(), buyerID)
	mocks.orderRepo.On("FindByIDForBuyer", ctx, buyerID, ord.ID).Return(ord, nil)

	resp, err := service.GetForBuyer(ctx, buyerID, ord.ID)

	require.NoError(t, err)
	assert.Equal(t, ord.OrderNumber, resp.OrderNumber)
	assert.Equal(t, "PENDING", resp.Status)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "179.98", resp.Subtotal.StringFixed(2))
	assert.Equal(t, "184.98", resp.TotalAmount.StringFixed(2))
	assert.Equal(t, "18.00", resp.PlatformFee.StringFixed(2))
	assert.Equal(t, "161.98", resp.MerchantEarnings.StringFixed(2))
	assert.Equal(t, "Monterey", resp.ShippingAddress.City)
}

func TestOrderService_GetForBuyer_NotFound(t *testing.T) {
	service, mocks := newOrderService()
	ctx := context.Background()

	buyerID := uuid.New()
	orderID := uuid.New()
	mocks.orderRepo.On("FindByIDForBuyer", ctx, buyerID, orderID).Return(nil, shared.ErrNotFound)

	_, err := service.GetForBuyer(ctx, buyerID, orderID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestOrderService_ListForMerchant_FiltersByStatus(t *testing.T) {
	service, mocks := newOrderService()
	ctx := context.Background()

	merchantID := uuid.New()
	paid := createPaidOrder(t, merchantID, uuid.New())

	statusFilter := mock.MatchedBy(func(f shared.Filter) bool {
		return f.Filters["status"] == "PAID" && f.Page == 1 && f.PageSize == 20
	})
	mocks.orderRepo.On("FindByMerchant", ctx, merchantID, statusFilter).Return([]order.Order{*paid}, nil)
	mocks.orderRepo.On("CountByMerchant", ctx, merchantID, statusFilter).Return(int64(1), nil)

	page, err := service.ListForMerchant(ctx, merchantID, &OrderListFilter{Status: "PAID"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "PAID", page.Items[0].Status)
	assert.Equal(t, 1, page.Items[0].ItemCount)
}

func TestOrderService_ListForBuyer_Paginates(t *testing.T) {
	service, mocks := newOrderService()
	ctx := context.Background()

	buyerID := uuid.New()
	first := createTestOrder(t, uuid.New(), buyerID)
	second := createTestOrder(t, uuid.New(), buyerID)

	pagedFilter := mock.MatchedBy(func(f shared.Filter) bool {
		return f.Page == 2 && f.PageSize == 10
	})
	mocks.orderRepo.On("FindByBuyer", ctx, buyerID, pagedFilter).Return([]order.Order{*first, *second}, nil)
	mocks.orderRepo.On("CountByBuyer", ctx, buyerID, pagedFilter).Return(int64(12), nil)

	page, err := service.ListForBuyer(ctx, buyerID, &OrderListFilter{Page: 2, PageSize: 10})

	require.NoError(t, err)
	assert.Equal(t, int64(12), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 2)
}

// ============================================================================
// Cancel
// ============================================================================

func TestOrderService_CancelForBuyer_PendingOrder(t *testing.T) {
	service, mocks := newOrderService()
	ctx := context.Background()

	buyerID := uuid.New()
	ord := createTestOrder(t, uuid.New(), buyerID)

	mocks.orderRepo.On("FindByIDForBuyer", ctx, buyerID, ord.ID).Return(ord, nil)
	mocks.orderRepo.On("SaveWithLock", ctx, ord).Return(nil)

	resp, err := service.CancelForBuyer(ctx, buyerID, ord.ID, &CancelOrderRequest{Reason: "changed my mind"})

	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", resp.Status)
	assert.Equal(t, "changed my mind", resp.CancelReason)
	assert.NotNil(t, resp.CancelledAt)
}

func TestOrderService_CancelForBuyer_PaidOrderBlocked(t *testing.T) {
	service, mocks := newOrderService()
	ctx := context.Background()

	buyerID := uuid.New()
	ord := createPaidOrder(t, uuid.New(), buyerID)

	mocks.orderRepo.On("FindByIDForBuyer", ctx, buyerID, ord.ID).Return(ord, nil)

	_, err := service.CancelForBuyer(ctx, buyerID, ord.ID, &CancelOrderRequest{Reason: "changed my mind"})

	require.Error(t, err)
	assertDomainErrorCode(t, err, "CANNOT_CANCEL")
	assert.Equal(t, order.OrderStatusPaid, ord.Status)
	mocks.orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestOrderService_CancelForMerchant_PaidOrderAllowed(t *testing.T) {
	service, mocks := newOrderService()
	service.SetEventPublisher(mocks.publisher)
	ctx := context.Background()

	merchantID := uuid.New()
	ord := createPaidOrder(t, merchantID, uuid.New())

	mocks.orderRepo.On("FindByIDForMerchant", ctx, merchantID, ord.ID).Return(ord, nil)
	mocks.orderRepo.On("SaveWithLock", ctx, ord).Return(nil)
	mocks.publisher.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		if len(events) != 1 {
			return false
		}
		cancelled, ok := events[0].(*order.OrderCancelledEvent)
		return ok && cancelled.WasPaid
	})).Return(nil).Once()

	resp, err := service.CancelForMerchant(ctx, merchantID, ord.ID, &CancelOrderRequest{Reason: "item damaged in warehouse"})

	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", resp.Status)
	mocks.publisher.AssertExpectations(t)
}

func TestOrderService_CancelForMerchant_ShippedOrderRejected(t *testing.T) {
	service, mocks := newOrderService()
	ctx := context.Background()

	merchantID := uuid.New()
	ord := createShippedOrder(t, merchantID, uuid.New())

	mocks.orderRepo.On("FindByIDForMerchant", ctx, merchantID, ord.ID).Return(ord, nil)

	_, err := service.CancelForMerchant(ctx, merchantID, ord.ID, &CancelOrderRequest{Reason: "too late"})

	require.Error(t, err)
	assertDomainErrorCode(t, err, "INVALID_STATUS_TRANSITION")
}

// ============================================================================
// Fulfillment transitions
// ============================================================================

func TestOrderService_StartProcessing_FromPaid(t *testing.T) {
	service, mocks := newOrderService()
	ctx := context.Background()

	merchantID := uuid.New()
	ord := createPaidOrder(t, merchantID, uuid.New())

	mocks.orderRepo.On("FindByIDForMerchant", ctx, merchantID, ord.ID).Return(ord, nil)
	mocks.orderRepo.On("SaveWithLock", ctx, ord).Return(nil)

	resp, err := service.StartProcessing(ctx, merchantID, ord.ID)

	require.NoError(t, err)
	assert.Equal(t, "PROCESSING", resp.Status)
}

func TestOrderService_StartProcessing_FromPendingRejected(t *testing.T) {
	service, mocks := newOrderService()
	ctx := context.Background()

	merchantID := uuid.New()
	ord := createTestOrder(t, merchantID, uuid.New())

	mocks.orderRepo.On("FindByIDForMerchant", ctx, merchantID, ord.ID).Return(ord, nil)

	_, err := service.StartProcessing(ctx, merchantID, ord.ID)

	require.Error(t, err)
	assertDomainErrorCode(t, err, "INVALID_STATUS_TRANSITION")
	mocks.orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestOrderService_Ship_RecordsTracking(t *testing.T) {
	service, mocks := newOrderService()
	ctx := context.Background()

	merchantID := uuid.New()
	ord := createPaidOrder(t, merchantID, uuid.New())
	require.NoError(t, ord.StartProcessing())
	ord.ClearDomainEvents()

	mocks.orderRepo.On("FindByIDForMerchant", ctx, merchantID, ord.ID).Return(ord, nil)
	mocks.orderRepo.On("SaveWithLock", ctx, ord).Return(nil)

	resp, err := service.Ship(ctx, merchantID, ord.ID, &ShipOrderRequest{TrackingNumber: "1ZT4IC0042", Carrier: "UPS"})

	require.NoError(t, err)
	assert.Equal(t, "SHIPPED", resp.Status)
	assert.Equal(t, "1ZT4IC0042", resp.TrackingNumber)
	assert.Equal(t, "UPS", resp.Carrier)
	assert.NotNil(t, resp.ShippedAt)
}

func TestOrderService_Ship_EmptyTrackingRejected(t *testing.T) {
	service, mocks := newOrderService()
	ctx := context.Background()

	merchantID := uuid.New()
	ord := createPaidOrder(t, merchantID, uuid.New())
	require.NoError(t, ord.StartProcessing())
	ord.ClearDomainEvents()

	mocks.orderRepo.On("FindByIDForMerchant", ctx, merchantID, ord.ID).Return(ord, nil)

	_, err := service.Ship(ctx, merchantID, ord.ID, &ShipOrderRequest{TrackingNumber: "   "})

	require.Error(t, err)
	assertDomainErrorCode(t, err, "TRACKING_REQUIRED")
}

func TestOrderService_Deliver_FromShipped(t *testing.T) {
	service, mocks := newOrderService()
	ctx := context.Background()

	merchantID := uuid.New()
	ord := createShippedOrder(t, merchantID, uuid.New())

	mocks.orderRepo.On("FindByIDForMerchant", ctx, merchantID, ord.ID).Return(ord, nil)
	mocks.orderRepo.On("SaveWithLock", ctx, ord).Return(nil)

	resp, err := service.Deliver(ctx, merchantID, ord.ID)

	require.NoError(t, err)
	assert.Equal(t, "DELIVERED", resp.Status)
	assert.NotNil(t, resp.DeliveredAt)
}

func TestOrderService_Complete_FromDelivered(t *testing.T) {
	service, mocks := newOrderService()
	ctx := context.Background()

	ord := createShippedOrder(t, uuid.New(), uuid.New())
	require.NoError(t, ord.MarkDelivered())
	ord.ClearDomainEvents()

	mocks.orderRepo.On("FindByID", ctx, ord.ID).Return(ord, nil)
	mocks.orderRepo.On("SaveWithLock", ctx, ord).Return(nil)

	resp, err := service.Complete(ctx, ord.ID)

	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", resp.Status)
	assert.NotNil(t, resp.CompletedAt)
}

func TestOrderService_Complete_FromPendingRejected(t *testing.T) {
	service, mocks := newOrderService()
	ctx := context.Background()

	ord := createTestOrder(t, uuid.New(), uuid.New())

	mocks.orderRepo.On("FindByID", ctx, ord.ID).Return(ord, nil)

	_, err := service.Complete(ctx, ord.ID)

	require.Error(t, err)
	assertDomainErrorCode(t, err, "INVALID_STATUS_TRANSITION")
}
