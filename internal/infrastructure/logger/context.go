package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Unexported struct keys keep context values collision-free across packages.
type (
	loggerKey     struct{}
	requestIDKey  struct{}
	userIDKey     struct{}
	merchantIDKey struct{}
)

// WithContext returns a context carrying the logger.
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// FromContext returns the logger stored in the context, or a no-op logger
// when none was attached.
func FromContext(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID and a logger tagged with it in the
// context. SQL trace logs read the ID back to correlate with the request.
func WithRequestID(ctx context.Context, log *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, requestIDKey{}, requestID)
	log = log.With(zap.String("request_id", requestID))
	return WithContext(ctx, log), log
}

// WithUserID stores the authenticated user ID and a logger tagged with it.
func WithUserID(ctx context.Context, log *zap.Logger, userID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, userIDKey{}, userID)
	log = log.With(zap.String("user_id", userID))
	return WithContext(ctx, log), log
}

// WithMerchantID stores the acting merchant ID and a logger tagged with it.
func WithMerchantID(ctx context.Context, log *zap.Logger, merchantID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, merchantIDKey{}, merchantID)
	log = log.With(zap.String("merchant_id", merchantID))
	return WithContext(ctx, log), log
}

// GetRequestID returns the request ID from the context, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// GetUserID returns the authenticated user ID from the context, or "".
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// GetMerchantID returns the acting merchant ID from the context, or "".
func GetMerchantID(ctx context.Context) string {
	id, _ := ctx.Value(merchantIDKey{}).(string)
	return id
}

// activeSpanContext returns the span context when the context carries a
// valid recording or propagated span.
func activeSpanContext(ctx context.Context) (trace.SpanContext, bool) {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	return spanCtx, spanCtx.IsValid()
}

// GetTraceID returns the current trace ID, or "" without an active span.
func GetTraceID(ctx context.Context) string {
	if spanCtx, ok := activeSpanContext(ctx); ok {
		return spanCtx.TraceID().String()
	}
	return ""
}

// GetSpanID returns the current span ID, or "" without an active span.
func GetSpanID(ctx context.Context) string {
	if spanCtx, ok := activeSpanContext(ctx); ok {
		return spanCtx.SpanID().String()
	}
	return ""
}

// WithTraceContext tags the logger with trace_id and span_id so log lines
// can be joined with traces in the collector. Without an active span the
// logger is returned unchanged.
func WithTraceContext(ctx context.Context, log *zap.Logger) *zap.Logger {
	spanCtx, ok := activeSpanContext(ctx)
	if !ok {
		return log
	}
	return log.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}
