package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "laptopkita/catalogsync"

// Telemetry records one span, one counter increment and one latency sample
// per controller operation. With no SDK installed the global providers are
// no-ops.
type Telemetry struct {
	tracer   trace.Tracer
	ops      metric.Int64Counter
	duration metric.Float64Histogram
}

func New(tp trace.TracerProvider, mp metric.MeterProvider) *Telemetry {
	meter := mp.Meter(instrumentationName)
	ops, err := meter.Int64Counter("catalogsync.operations",
		metric.WithDescription("Catalog operations by outcome"))
	if err != nil {
		otel.Handle(err)
	}
	duration, err := meter.Float64Histogram("catalogsync.operation.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Catalog operation latency"))
	if err != nil {
		otel.Handle(err)
	}
	return &Telemetry{tracer: tp.Tracer(instrumentationName), ops: ops, duration: duration}
}

func Default() *Telemetry {
	return New(otel.GetTracerProvider(), otel.GetMeterProvider())
}

// Start opens a span for op. The returned func ends it and must be called
// exactly once with the operation's error (nil on success).
func (t *Telemetry) Start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := t.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		set := metric.WithAttributes(Operation(op), attribute.String("outcome", outcome))
		if t.ops != nil {
			t.ops.Add(ctx, 1, set)
		}
		if t.duration != nil {
			t.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, set)
		}
		span.End()
	}
}

// Annotate adds attributes to the span carried by ctx, if any.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

func Operation(op string) attribute.KeyValue {
	return attribute.String("operation", op)
}

func UserEmail(email string) attribute.KeyValue {
	return attribute.String("user.email", email)
}

func LaptopID(id int64) attribute.KeyValue {
	return attribute.Int64("laptop.id", id)
}

func ItemCount(n int) attribute.KeyValue {
	return attribute.Int("catalog.items", n)
}
