// Package tracing wires OpenTelemetry span export for probe and scan spans.
// Without an endpoint every span goes to a no-op tracer.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/waymap/waymap/pkg/defaults"
	"github.com/waymap/waymap/pkg/duration"
)

// InstrumentationName names the tracer that produces waymap spans.
const InstrumentationName = "github.com/waymap/waymap"

// Options configures span export.
type Options struct {
	// Endpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables export.
	Endpoint string

	// ServiceName defaults to "waymap".
	ServiceName string

	// Insecure dials the collector without TLS.
	Insecure bool

	// ConnectTimeout bounds exporter creation (default: 10s).
	ConnectTimeout time.Duration

	// Exporter overrides the OTLP exporter. Tests pass an in-memory one.
	Exporter sdktrace.SpanExporter
}

// Provider hands out the tracer and flushes spans on Shutdown.
type Provider struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// Setup builds a Provider. With neither Endpoint nor Exporter set, the
// Provider is a no-op.
func Setup(ctx context.Context, opts Options) (*Provider, error) {
	if opts.Endpoint == "" && opts.Exporter == nil {
		return &Provider{tracer: noop.NewTracerProvider().Tracer(InstrumentationName)}, nil
	}
	if opts.ServiceName == "" {
		opts.ServiceName = defaults.ToolName
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = duration.ExporterConnect
	}

	exporter := opts.Exporter
	if exporter == nil {
		exporterOpts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(opts.Endpoint),
		}
		if opts.Insecure {
			exporterOpts = append(exporterOpts,
				otlptracegrpc.WithInsecure(),
				otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			)
		}

		connectCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()

		var err error
		exporter, err = otlptracegrpc.New(connectCtx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("tracing: create exporter for %s: %w", opts.Endpoint, err)
		}
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
		attribute.String("service.component", "scanner"),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	return &Provider{
		tracer:   tp.Tracer(InstrumentationName),
		provider: tp,
	}, nil
}

// Tracer returns the tracer for waymap spans.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tracer == nil {
		return Noop()
	}
	return p.tracer
}

// Enabled reports whether spans are exported anywhere.
func (p *Provider) Enabled() bool {
	return p != nil && p.provider != nil
}

// Flush exports every span ended so far.
func (p *Provider) Flush(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.provider.ForceFlush(ctx)
}

// Shutdown flushes pending spans, bounded by a 5s grace period.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, duration.TraceShutdown)
	defer cancel()
	if err := p.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracing: shutdown: %w", err)
	}
	return nil
}

// Noop returns a tracer that records nothing.
func Noop() trace.Tracer {
	return noop.NewTracerProvider().Tracer(InstrumentationName)
}
