// Business-level span helpers for application services. The HTTP and GORM
// layers are traced by otelgin/otelgorm; these helpers add spans around
// money-critical operations (checkout, payout submission) where the
// automatic instrumentation is too coarse.

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer used for business spans.
const TracerName = "taic-backend"

// Attribute keys for business spans. Metric attributes live in metrics.go
// as attribute.Key types; these string constants are for trace span
// attributes only.
const (
	SpanAttrOrderID     = "order_id"
	SpanAttrOrderNumber = "order_number"

	SpanAttrBuyerID    = "buyer_id"
	SpanAttrMerchantID = "merchant_id"

	SpanAttrProductID = "product_id"
	SpanAttrSKU       = "sku"
	SpanAttrQuantity  = "quantity"
	SpanAttrLineCount = "line_count"

	SpanAttrPaymentID = "payment_id"
	SpanAttrPayoutID  = "payout_id"
	SpanAttrAmount    = "amount"
	SpanAttrCurrency  = "currency"
)

// SpanOption configures span start options.
type SpanOption func(*spanSettings)

type spanSettings struct {
	attrs []attribute.KeyValue
	kind  trace.SpanKind
}

// WithAttribute attaches an attribute to the span at start time.
func WithAttribute(key string, value interface{}) SpanOption {
	return func(s *spanSettings) {
		s.attrs = append(s.attrs, anyAttribute(key, value))
	}
}

// WithSpanKind sets the span kind. The default is internal; outbound
// calls to payment and treasury providers should use SpanKindClient.
func WithSpanKind(kind trace.SpanKind) SpanOption {
	return func(s *spanSettings) {
		s.kind = kind
	}
}

// StartSpan starts a span with the given name. The caller owns span.End().
//
//	ctx, span := telemetry.StartSpan(ctx, "checkout.place_order")
//	defer span.End()
func StartSpan(ctx context.Context, spanName string, opts ...SpanOption) (context.Context, trace.Span) {
	settings := spanSettings{kind: trace.SpanKindInternal}
	for _, opt := range opts {
		opt(&settings)
	}

	startOpts := []trace.SpanStartOption{trace.WithSpanKind(settings.kind)}
	if len(settings.attrs) > 0 {
		startOpts = append(startOpts, trace.WithAttributes(settings.attrs...))
	}

	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, spanName, startOpts...)
}

// StartServiceSpan starts a span named {service}.{method}, e.g.
// "checkout.place_order" or "payout.execute_transfer".
func StartServiceSpan(ctx context.Context, service, method string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, opts...)
}

// SetAttribute adds a single attribute to the span.
func SetAttribute(span trace.Span, key string, value interface{}) {
	if span == nil {
		return
	}
	span.SetAttributes(anyAttribute(key, value))
}

// SetAttributes adds attributes to an existing span from alternating
// key/value pairs. Pairs with non-string keys are skipped.
func SetAttributes(span trace.Span, keyValues ...interface{}) {
	if span == nil {
		return
	}
	span.SetAttributes(pairsToAttributes(keyValues)...)
}

// AddEvent adds a timestamped annotation to the span from alternating
// key/value pairs.
//
//	telemetry.AddEvent(span, "stock_reserved",
//	    telemetry.SpanAttrProductID, productID.String(),
//	    telemetry.SpanAttrQuantity, qty,
//	)
func AddEvent(span trace.Span, name string, keyValues ...interface{}) {
	if span == nil {
		return
	}
	span.AddEvent(name, trace.WithAttributes(pairsToAttributes(keyValues)...))
}

// RecordError records the error on the span and marks the span status as
// error. Nil spans and nil errors are no-ops.
func RecordError(span trace.Span, err error, opts ...trace.EventOption) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// SetOK marks the span as successful. Optional; spans without an error
// status already count as successful.
func SetOK(span trace.Span) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, "")
}

func pairsToAttributes(keyValues []interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, anyAttribute(key, keyValues[i+1]))
	}
	return attrs
}

func anyAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case []int:
		return attribute.IntSlice(key, v)
	case []int64:
		return attribute.Int64Slice(key, v)
	case []float64:
		return attribute.Float64Slice(key, v)
	case []bool:
		return attribute.BoolSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
