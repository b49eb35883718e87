package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"laptopkita/internal/logging"
)

type Config struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// Providers holds the SDK providers installed by Setup. Both are nil when
// export is disabled.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
}

// Setup installs OTLP gRPC trace and metric exporters as the global
// providers. A provider that fails to build is skipped with a warning.
func Setup(ctx context.Context, cfg Config, log *logging.Logger) (*Providers, error) {
	if log == nil {
		log = logging.Discard()
	}
	if !cfg.Enabled {
		log.Debugf("telemetry export disabled (set OTEL_ENABLED=true to enable)")
		return &Providers{}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
		resource.WithHost(),
	)
	if err != nil {
		return nil, err
	}

	p := &Providers{}
	if p.TracerProvider, err = newTracerProvider(ctx, cfg.Endpoint, res); err != nil {
		log.WithError(err).Warnf("tracing disabled")
	} else {
		otel.SetTracerProvider(p.TracerProvider)
	}
	if p.MeterProvider, err = newMeterProvider(ctx, cfg.Endpoint, res); err != nil {
		log.WithError(err).Warnf("metrics disabled")
	} else {
		otel.SetMeterProvider(p.MeterProvider)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.WithField("endpoint", cfg.Endpoint).Infof("telemetry export enabled")
	return p, nil
}

func newTracerProvider(ctx context.Context, endpoint string, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithTimeout(30*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(512),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}

func newMeterProvider(ctx context.Context, endpoint string, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithTimeout(30*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(30*time.Second),
		)),
		sdkmetric.WithResource(res),
	), nil
}

// Telemetry returns instruments bound to the installed providers, falling
// back to the globals for any that are missing.
func (p *Providers) Telemetry() *Telemetry {
	if p == nil || (p.TracerProvider == nil && p.MeterProvider == nil) {
		return Default()
	}
	tp, mp := otel.GetTracerProvider(), otel.GetMeterProvider()
	if p.TracerProvider != nil {
		tp = p.TracerProvider
	}
	if p.MeterProvider != nil {
		mp = p.MeterProvider
	}
	return New(tp, mp)
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.TracerProvider != nil {
		errs = append(errs, p.TracerProvider.Shutdown(ctx))
	}
	if p.MeterProvider != nil {
		errs = append(errs, p.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
