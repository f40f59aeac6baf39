// Package telemetry wires OpenTelemetry tracing and metrics for the HTTP
// surface and exports domain counters to Prometheus.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	shutdownTimeout = 5 * time.Second
	exportInterval  = 30 * time.Second
)

// Config holds telemetry configuration.
type Config struct {
	Enabled bool

	// Endpoint is the collector URL; an http:// scheme disables TLS.
	Endpoint     string
	ServiceName  string
	Version      string
	Environment  string
	SamplingRate float64

	// Attributes describe the deployment, e.g. the storage driver or the
	// profile time zone. Keys are prefixed with "daily_quote.".
	Attributes map[string]string
}

// Provider owns the SDK providers. The zero value is a noop.
type Provider struct {
	tracers *trace.TracerProvider
	meters  *metric.MeterProvider
}

// New installs global tracer and meter providers exporting over OTLP gRPC.
// It returns a noop provider when telemetry is disabled.
func New(ctx context.Context, cfg *Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return nil, errors.Join(
			fmt.Errorf("creating metric exporter: %w", err),
			traceExporter.Shutdown(ctx))
	}

	p := &Provider{
		tracers: trace.NewTracerProvider(
			trace.WithResource(res),
			trace.WithBatcher(traceExporter),
			trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(cfg.SamplingRate))),
		),
		meters: metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(exportInterval))),
		),
	}

	otel.SetTracerProvider(p.tracers)
	otel.SetMeterProvider(p.meters)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return p, nil
}

func newResource(cfg *Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
		semconv.DeploymentEnvironment(cfg.Environment),
	}

	keys := make([]string, 0, len(cfg.Attributes))
	for k := range cfg.Attributes {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		attrs = append(attrs, attribute.String("daily_quote."+k, cfg.Attributes[k]))
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	return res, nil
}

// Enabled reports whether New installed exporting providers.
func (p *Provider) Enabled() bool {
	return p.tracers != nil
}

// Shutdown flushes and stops both providers within shutdownTimeout.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error

	if err := p.tracers.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down tracer provider: %w", err))
	}

	if err := p.meters.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down meter provider: %w", err))
	}

	return errors.Join(errs...)
}
