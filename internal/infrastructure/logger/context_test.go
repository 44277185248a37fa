package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// spanContextForTest starts a real span from a local provider so trace
// and span IDs are valid. The global provider is left untouched.
func spanContextForTest(t *testing.T) context.Context {
	t.Helper()
	provider := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	ctx, span := provider.Tracer("logger.test").Start(context.Background(), "test-span")
	t.Cleanup(span.End)
	return ctx
}

func TestWithContextRoundTrip(t *testing.T) {
	log, _ := observedLogger()
	ctx := WithContext(context.Background(), log)
	assert.Same(t, log, FromContext(ctx))
}

func TestFromContextMissingReturnsNop(t *testing.T) {
	log := FromContext(context.Background())
	require.NotNil(t, log)
	assert.False(t, log.Core().Enabled(zapcore.ErrorLevel))
}

func TestWithRequestID(t *testing.T) {
	log, logs := observedLogger()

	ctx, enriched := WithRequestID(context.Background(), log, "req-123")
	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Same(t, enriched, FromContext(ctx))

	enriched.Info("handling")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-123", logs.All()[0].ContextMap()["request_id"])
}

func TestWithUserID(t *testing.T) {
	log, logs := observedLogger()

	ctx, enriched := WithUserID(context.Background(), log, "user-9")
	assert.Equal(t, "user-9", GetUserID(ctx))

	enriched.Info("authenticated")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "user-9", logs.All()[0].ContextMap()["user_id"])
}

func TestWithMerchantID(t *testing.T) {
	log, logs := observedLogger()

	ctx, enriched := WithMerchantID(context.Background(), log, "merch-7")
	assert.Equal(t, "merch-7", GetMerchantID(ctx))

	enriched.Info("acting as merchant")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "merch-7", logs.All()[0].ContextMap()["merchant_id"])
}

func TestGettersOnEmptyContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetUserID(ctx))
	assert.Empty(t, GetMerchantID(ctx))
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSpanID(ctx))
}

func TestEnrichmentStacks(t *testing.T) {
	log, logs := observedLogger()

	ctx, enriched := WithRequestID(context.Background(), log, "req-1")
	ctx, enriched = WithUserID(ctx, enriched, "user-1")
	ctx, enriched = WithMerchantID(ctx, enriched, "merch-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "user-1", GetUserID(ctx))
	assert.Equal(t, "merch-1", GetMerchantID(ctx))

	enriched.Info("fully tagged")
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "user-1", fields["user_id"])
	assert.Equal(t, "merch-1", fields["merchant_id"])
}

func TestGetTraceAndSpanID(t *testing.T) {
	ctx := spanContextForTest(t)

	traceID := GetTraceID(ctx)
	spanID := GetSpanID(ctx)
	assert.Len(t, traceID, 32)
	assert.Len(t, spanID, 16)
}

func TestWithTraceContext(t *testing.T) {
	log, logs := observedLogger()
	ctx := spanContextForTest(t)

	WithTraceContext(ctx, log).Info("traced")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, GetTraceID(ctx), fields["trace_id"])
	assert.Equal(t, GetSpanID(ctx), fields["span_id"])
}

func TestWithTraceContextNoSpan(t *testing.T) {
	log, _ := observedLogger()
	assert.Same(t, log, WithTraceContext(context.Background(), log))
}
