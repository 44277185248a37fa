package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/payout"
	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/domain/shared/valueobject"
	"github.com/taic/backend/internal/infrastructure/telemetry"
	"github.com/taic/backend/internal/infrastructure/treasury"
)

// TreasuryGateway executes crypto transfers through the external
// wallet/treasury service. Implemented by the treasury client.
type TreasuryGateway interface {
	ExecuteTransfer(ctx context.Context, input treasury.TransferInput) (*treasury.TransferOutput, error)
}

// ProcessorConfig carries the batch processor knobs
type ProcessorConfig struct {
	BatchSize    int
	FiatCurrency string
	RetryPolicy  payout.RetryPolicy
}

// DefaultProcessorConfig returns the processor defaults
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		BatchSize:    50,
		FiatCurrency: string(valueobject.DefaultCurrency),
		RetryPolicy:  payout.DefaultRetryPolicy,
	}
}

// ProcessorStats summarizes one processing sweep
type ProcessorStats struct {
	Due       int
	Claimed   int
	Sent      int
	Retried   int
	Failed    int // Terminal failures, balance restored
	Conflicts int // Lost claim races, picked up by another worker
}

// PayoutProcessor drains due payouts: it claims each one, asks the
// treasury to execute the transfer, and records the outcome. Transfer
// submission reuses the payout's fixed idempotency key, so a crash
// between the treasury call and the local save cannot double-send.
type PayoutProcessor struct {
	scope          LedgerScope
	payoutRepo     payout.PayoutRepository
	gateway        TreasuryGateway
	eventPublisher shared.EventPublisher
	metrics        *telemetry.BusinessMetrics
	config         ProcessorConfig
	logger         *zap.Logger
}

// NewPayoutProcessor creates a new payout processor
func NewPayoutProcessor(
	scope LedgerScope,
	payoutRepo payout.PayoutRepository,
	gateway TreasuryGateway,
	config ProcessorConfig,
	logger *zap.Logger,
) *PayoutProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultProcessorConfig().BatchSize
	}
	if config.FiatCurrency == "" {
		config.FiatCurrency = string(valueobject.DefaultCurrency)
	}
	if config.RetryPolicy.MaxAttempts <= 0 {
		config.RetryPolicy = payout.DefaultRetryPolicy
	}
	return &PayoutProcessor{
		scope:      scope,
		payoutRepo: payoutRepo,
		gateway:    gateway,
		config:     config,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (p *PayoutProcessor) SetEventPublisher(publisher shared.EventPublisher) {
	p.eventPublisher = publisher
}

// SetBusinessMetrics enables payout outcome metrics
func (p *PayoutProcessor) SetBusinessMetrics(metrics *telemetry.BusinessMetrics) {
	p.metrics = metrics
}

// ProcessDue runs one sweep over due payouts. Individual payout failures
// are counted, not propagated: the sweep continues and failed payouts
// come back on their retry schedule.
func (p *PayoutProcessor) ProcessDue(ctx context.Context) (ProcessorStats, error) {
	stats := ProcessorStats{}

	due, err := p.payoutRepo.FindDue(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("failed to list due payouts: %w", err)
	}
	stats.Due = len(due)
	if len(due) == 0 {
		return stats, nil
	}

	p.logger.Info("Processing due payouts", zap.Int("count", len(due)))

	var swept error
	telemetry.NewProfilingScope(nil).
		WithOperation("payout_sweep").
		Run(ctx, func(sweepCtx context.Context) {
			for _, pt := range due {
				if sweepCtx.Err() != nil {
					swept = sweepCtx.Err()
					return
				}
				p.processOne(sweepCtx, pt, &stats)
			}
		})
	if swept != nil {
		return stats, swept
	}

	p.logger.Info("Payout sweep finished",
		zap.Int("due", stats.Due),
		zap.Int("sent", stats.Sent),
		zap.Int("retried", stats.Retried),
		zap.Int("failed", stats.Failed),
		zap.Int("conflicts", stats.Conflicts))

	return stats, nil
}

func (p *PayoutProcessor) processOne(ctx context.Context, pt *payout.Payout, stats *ProcessorStats) {
	if err := pt.MarkProcessing(); err != nil {
		// Already claimed between FindDue and here
		stats.Conflicts++
		return
	}
	if err := p.payoutRepo.SaveWithLock(ctx, pt); err != nil {
		if isConcurrentModification(err) {
			stats.Conflicts++
			return
		}
		p.logger.Error("Failed to claim payout",
			zap.String("payout_id", pt.ID.String()),
			zap.Error(err))
		return
	}
	stats.Claimed++

	transferCtx, span := telemetry.StartServiceSpan(ctx, "payout", "execute_transfer",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrPayoutID, pt.ID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrMerchantID, pt.MerchantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, pt.Amount.String()),
		telemetry.WithAttribute(telemetry.SpanAttrCurrency, pt.CryptoCurrency))
	defer span.End()

	output, err := p.gateway.ExecuteTransfer(transferCtx, treasury.TransferInput{
		IdempotencyKey: pt.IdempotencyKey,
		PayoutID:       pt.ID,
		MerchantID:     pt.MerchantID,
		Amount:         pt.Amount,
		FiatCurrency:   p.config.FiatCurrency,
		CryptoCurrency: pt.CryptoCurrency,
		WalletAddress:  pt.WalletAddress,
	})

	switch {
	case err != nil:
		telemetry.RecordError(span, err)
		p.recordFailure(ctx, pt, err.Error(), treasury.IsPermanentError(err), stats)
	case output.Status == treasury.TransferStatusRejected:
		telemetry.AddEvent(span, "transfer_rejected", "transfer_id", output.TransferID)
		p.recordFailure(ctx, pt, fmt.Sprintf("treasury rejected transfer %s", output.TransferID), true, stats)
	default:
		telemetry.SetOK(span)
		p.recordSent(ctx, pt, output, stats)
	}
}

func (p *PayoutProcessor) recordSent(ctx context.Context, pt *payout.Payout, output *treasury.TransferOutput, stats *ProcessorStats) {
	if err := pt.MarkSent(output.TransferID, output.TxHash); err != nil {
		p.logger.Error("Failed to mark payout sent",
			zap.String("payout_id", pt.ID.String()),
			zap.Error(err))
		return
	}
	if err := p.payoutRepo.SaveWithLock(ctx, pt); err != nil {
		// The transfer went out; the next sweep re-drives this payout and
		// the idempotency key makes the resubmission a read
		p.logger.Error("Failed to save sent payout, will converge on retry",
			zap.String("payout_id", pt.ID.String()),
			zap.String("transfer_id", output.TransferID),
			zap.Error(err))
		return
	}

	stats.Sent++
	if p.metrics != nil {
		p.metrics.RecordPayout(ctx, pt.MerchantID, string(pt.Status))
	}
	p.publishEvents(ctx, pt)

	p.logger.Info("Payout sent",
		zap.String("payout_id", pt.ID.String()),
		zap.String("merchant_id", pt.MerchantID.String()),
		zap.String("transfer_id", output.TransferID),
		zap.String("tx_hash", output.TxHash))
}

// recordFailure marks a failed attempt. Permanent rejections skip the
// remaining retries; terminal failures restore the merchant's balance
// in the same transaction that settles the payout.
func (p *PayoutProcessor) recordFailure(ctx context.Context, pt *payout.Payout, reason string, permanent bool, stats *ProcessorStats) {
	policy := p.config.RetryPolicy
	if permanent {
		policy.MaxAttempts = pt.Attempts
	}

	if err := pt.MarkFailed(reason, policy); err != nil {
		p.logger.Error("Failed to mark payout failed",
			zap.String("payout_id", pt.ID.String()),
			zap.Error(err))
		return
	}

	if pt.Status != payout.PayoutStatusFailed {
		if err := p.payoutRepo.SaveWithLock(ctx, pt); err != nil {
			p.logger.Error("Failed to save payout retry schedule",
				zap.String("payout_id", pt.ID.String()),
				zap.Error(err))
			return
		}
		stats.Retried++
		p.logger.Warn("Payout attempt failed, retry scheduled",
			zap.String("payout_id", pt.ID.String()),
			zap.Int("attempts", pt.Attempts),
			zap.String("reason", reason))
		return
	}

	err := p.scope.Execute(ctx, func(repos LedgerRepositories) error {
		if err := repos.PayoutRepo().SaveWithLock(ctx, pt); err != nil {
			return err
		}

		balance, err := repos.LedgerRepo().AvailableBalanceForUpdate(ctx, pt.MerchantID)
		if err != nil {
			return fmt.Errorf("failed to read merchant balance: %w", err)
		}

		amount := pt.GetAmountMoney()
		entry, err := payout.NewPayoutReversal(
			pt.MerchantID, pt.ID,
			amount,
			valueobject.NewMoneyUSD(balance.Add(pt.Amount)),
			fmt.Sprintf("Reversal of failed payout %s", pt.ID),
		)
		if err != nil {
			return err
		}
		return repos.LedgerRepo().Append(ctx, entry)
	})
	if err != nil {
		p.logger.Error("Failed to settle terminal payout failure",
			zap.String("payout_id", pt.ID.String()),
			zap.Error(err))
		return
	}

	stats.Failed++
	if p.metrics != nil {
		p.metrics.RecordPayout(ctx, pt.MerchantID, string(pt.Status))
	}
	p.publishEvents(ctx, pt)

	p.logger.Error("Payout terminally failed, balance restored",
		zap.String("payout_id", pt.ID.String()),
		zap.String("merchant_id", pt.MerchantID.String()),
		zap.Int("attempts", pt.Attempts),
		zap.String("reason", reason))
}

func (p *PayoutProcessor) publishEvents(ctx context.Context, pt *payout.Payout) {
	if p.eventPublisher == nil {
		return
	}
	for _, event := range pt.GetDomainEvents() {
		if err := p.eventPublisher.Publish(ctx, event); err != nil {
			p.logger.Warn("Failed to publish payout event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	pt.ClearDomainEvents()
}

func isConcurrentModification(err error) bool {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == "CONCURRENT_MODIFICATION" || domainErr.Code == shared.ErrConcurrencyConflict.Code
	}
	return false
}
