// Package telemetry wires the engine's tracer and meter providers. Every
// instrumented package (internal/txn, internal/pull) pulls its tracer and
// meter from the global otel provider at package-init time, which is a
// no-op until Init runs — so instrumentation is present whether or not a
// caller ever installs a real exporter.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

// Shutdown flushes and detaches the providers installed by Init.
type Shutdown func(context.Context) error

// Init installs stdout-based trace and metric exporters as the global OTel
// providers, writing newline-delimited JSON to w. Passing a discard writer
// (io.Discard) is the usual choice for tests, keeping instrumentation live
// without polluting test output.
func Init(w io.Writer) (Shutdown, error) {
	if w == nil {
		w = os.Stderr
	}

	spanExporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, fmt.Errorf("telemetry: building trace exporter: %w", err)
	}
	tp := trace.NewTracerProvider(trace.WithBatcher(spanExporter))
	otel.SetTracerProvider(tp)

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("telemetry: building metric exporter: %w", err)
	}
	mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(metricExporter)))
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
		return mp.Shutdown(ctx)
	}, nil
}

// Discard installs providers that export nowhere, for callers (tests,
// embedders) that want live instrumentation calls without any exporter
// I/O.
func Discard() (Shutdown, error) {
	return Init(io.Discard)
}
