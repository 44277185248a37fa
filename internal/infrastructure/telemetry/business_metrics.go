package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const defaultCollectInterval = 5 * time.Minute

// ErrMeterNil is returned when BusinessMetrics is built without a meter.
var ErrMeterNil = errors.New("business metrics: meter cannot be nil")

// BusinessMetrics tracks marketplace activity: orders placed with their
// amounts, payment outcomes from webhook processing, terminal payout
// states, and periodically sampled inventory health gauges.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	ordersPlaced *Counter
	orderAmount  *Counter
	payments     *Counter
	payouts      *Counter

	reservedQuantity *Gauge
	lowStockCount    *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	inventoryProvider InventoryMetricsProvider
}

// InventoryMetricsProvider supplies inventory state for the periodic
// gauges without making this package depend on the inventory domain.
type InventoryMetricsProvider interface {
	// GetReservedQuantityByMerchant returns total reserved quantity per merchant.
	GetReservedQuantityByMerchant(ctx context.Context) (map[uuid.UUID]int64, error)

	// GetLowStockCount returns how many of the merchant's listings sit at
	// or below their low stock threshold.
	GetLowStockCount(ctx context.Context, merchantID uuid.UUID) (int64, error)
}

// MerchantProvider supplies the merchant IDs swept by periodic collection.
type MerchantProvider interface {
	GetActiveMerchantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
	// CollectInterval is the periodic gauge sampling interval, zero for
	// the 5 minute default.
	CollectInterval   time.Duration
	InventoryProvider InventoryMetricsProvider
}

// NewBusinessMetrics registers the marketplace instruments on the meter.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:             cfg.Meter,
		logger:            logger,
		stopChan:          make(chan struct{}),
		inventoryProvider: cfg.InventoryProvider,
	}

	var firstErr error
	counter := func(name, description, unit string) *Counter {
		c, err := NewCounter(cfg.Meter, name, description, unit)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return c
	}
	gauge := func(name, description, unit string) *Gauge {
		g, err := NewGauge(cfg.Meter, name, description, unit)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return g
	}

	bm.ordersPlaced = counter("marketplace_order_placed_total",
		"Total number of orders placed", "{orders}")
	bm.orderAmount = counter("marketplace_order_amount_total",
		"Total order amount in cents", "{cents}")
	bm.payments = counter("marketplace_payment_total",
		"Total number of payment transactions", "{payments}")
	bm.payouts = counter("marketplace_payout_total",
		"Total number of payout submissions", "{payouts}")
	bm.reservedQuantity = gauge("marketplace_inventory_reserved_quantity",
		"Current reserved inventory quantity", "{units}")
	bm.lowStockCount = gauge("marketplace_inventory_low_stock_count",
		"Number of listings at or below their low stock threshold", "{listings}")

	if firstErr != nil {
		return nil, firstErr
	}
	return bm, nil
}

// RecordOrderWithAmount counts a successful checkout and accumulates the
// order total, converted to cents, attributed to the selling merchant.
func (bm *BusinessMetrics) RecordOrderWithAmount(ctx context.Context, merchantID uuid.UUID, amount decimal.Decimal) {
	merchant := AttrMerchantID.String(merchantID.String())
	bm.ordersPlaced.Inc(ctx, merchant)
	bm.orderAmount.Add(ctx, amount.Mul(decimal.NewFromInt(100)).IntPart(), merchant)
}

// PaymentOutcome labels a payment transaction for metrics.
type PaymentOutcome string

const (
	PaymentOutcomeSucceeded PaymentOutcome = "succeeded"
	PaymentOutcomeFailed    PaymentOutcome = "failed"
	PaymentOutcomeRefunded  PaymentOutcome = "refunded"
)

// RecordPayment counts a payment outcome observed in webhook processing.
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, merchantID uuid.UUID, outcome PaymentOutcome) {
	bm.payments.Inc(ctx,
		AttrMerchantID.String(merchantID.String()),
		AttrPaymentStatus.String(string(outcome)),
	)
}

// RecordPayout counts a payout reaching a terminal state.
func (bm *BusinessMetrics) RecordPayout(ctx context.Context, merchantID uuid.UUID, status string) {
	bm.payouts.Inc(ctx,
		AttrMerchantID.String(merchantID.String()),
		AttrPayoutStatus.String(status),
	)
}

func (bm *BusinessMetrics) recordReservedQuantity(ctx context.Context, merchantID uuid.UUID, quantity int64) {
	bm.reservedQuantity.Record(ctx, quantity, AttrMerchantID.String(merchantID.String()))
}

func (bm *BusinessMetrics) recordLowStockCount(ctx context.Context, merchantID uuid.UUID, count int64) {
	bm.lowStockCount.Record(ctx, count, AttrMerchantID.String(merchantID.String()))
}

// StartPeriodicCollection begins sampling the inventory gauges in the
// background. Only the first call starts a collector; use Stop to end it.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, merchants MerchantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = defaultCollectInterval
		}
		go bm.collectLoop(ctx, merchants, interval)
	})
}

func (bm *BusinessMetrics) collectLoop(ctx context.Context, merchants MerchantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First sample immediately so gauges are populated before the first
	// full interval elapses.
	bm.collectInventoryMetrics(ctx, merchants)

	for {
		select {
		case <-bm.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			bm.collectInventoryMetrics(ctx, merchants)
		}
	}
}

// collectInventoryMetrics samples reserved quantity and low stock gauges.
// Per-merchant failures are logged and skipped so one bad merchant does
// not starve the rest of the sweep.
func (bm *BusinessMetrics) collectInventoryMetrics(ctx context.Context, merchants MerchantProvider) {
	if bm.inventoryProvider == nil {
		return
	}

	reservedByMerchant, err := bm.inventoryProvider.GetReservedQuantityByMerchant(ctx)
	if err != nil {
		bm.logger.Error("Failed to get reserved quantities", zap.Error(err))
	} else {
		for merchantID, quantity := range reservedByMerchant {
			bm.recordReservedQuantity(ctx, merchantID, quantity)
		}
	}

	merchantIDs, err := merchants.GetActiveMerchantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to list merchants for metrics collection", zap.Error(err))
		return
	}

	for _, merchantID := range merchantIDs {
		count, err := bm.inventoryProvider.GetLowStockCount(ctx, merchantID)
		if err != nil {
			bm.logger.Warn("Failed to get low stock count",
				zap.String("merchant_id", merchantID.String()),
				zap.Error(err),
			)
			continue
		}
		bm.recordLowStockCount(ctx, merchantID, count)
	}
}

// Stop ends periodic collection. Safe to call more than once.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}
