// Package telemetry wraps the daemon's per-request dispatch in an optional
// OpenTelemetry span, exported over OTLP/HTTP when enabled via config. With
// tracing disabled (the default) every call runs against the global no-op
// tracer provider, so the dependency costs nothing at rest.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/nexusdaemon/nexus/internal/common/config"
)

const tracerName = "nexus/daemon"

// Init configures the global tracer provider from cfg. When cfg.Enabled is
// false it leaves the default no-op provider in place and returns a no-op
// shutdown. Otherwise it registers an OTLP/HTTP exporter pointed at
// cfg.OTLPEndpoint and returns a shutdown func flushing and closing it.
func Init(ctx context.Context, cfg config.TelemetryConfig) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
	if cfg.OTLPEndpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		res = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// StartCommandSpan starts a span for one dispatched daemon command, tagged
// with the command name. Callers should defer span.End().
func StartCommandSpan(ctx context.Context, command string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, "nexus.command",
		trace.WithAttributes(attribute.String("nexus.command", command)))
}

// RecordOutcome tags span with whether the command succeeded, and with its
// error message if it failed.
func RecordOutcome(span trace.Span, ok bool, errMsg string) {
	span.SetAttributes(attribute.Bool("nexus.ok", ok))
	if !ok && errMsg != "" {
		span.SetAttributes(attribute.String("nexus.error", errMsg))
	}
}
