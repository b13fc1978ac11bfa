package pull

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/brindlewood/facts/internal/ident"
	"github.com/brindlewood/facts/internal/txn"
)

var pullTracer = otel.Tracer("github.com/brindlewood/facts/internal/pull")

var pullMetrics struct {
	calls    metric.Int64Counter
	patterns metric.Int64Histogram
}

func init() {
	meter := otel.Meter("github.com/brindlewood/facts/internal/pull")

	var err error
	pullMetrics.calls, err = meter.Int64Counter(
		"facts.pull.calls",
		metric.WithDescription("Number of pull evaluations performed."),
	)
	if err != nil {
		otel.Handle(err)
	}
	pullMetrics.patterns, err = meter.Int64Histogram(
		"facts.pull.pattern_size",
		metric.WithDescription("Number of top-level elements in the pattern evaluated per pull call."),
	)
	if err != nil {
		otel.Handle(err)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// PullTraced wraps Pull with a span and call counters, for callers that want
// tracing without threading a context through Pull's pure signature.
func PullTraced(ctx context.Context, db txn.Database, pattern Pattern, start ident.ID) (Result, error) {
	_, span := pullTracer.Start(ctx, "pull.eval",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("facts.pattern_size", len(pattern)),
			attribute.String("facts.start_id", start.String()),
		),
	)
	pullMetrics.calls.Add(ctx, 1)
	pullMetrics.patterns.Record(ctx, int64(len(pattern)))

	result, err := Pull(db, pattern, start)
	endSpan(span, err)
	return result, err
}
