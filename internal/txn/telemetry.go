package txn

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var txnTracer = otel.Tracer("github.com/brindlewood/facts/internal/txn")

var txnMetrics struct {
	applied  metric.Int64Counter
	failed   metric.Int64Counter
	formSize metric.Int64Histogram
}

func init() {
	meter := otel.Meter("github.com/brindlewood/facts/internal/txn")

	var err error
	txnMetrics.applied, err = meter.Int64Counter(
		"facts.txn.applied",
		metric.WithDescription("Number of transactions committed successfully."),
	)
	if err != nil {
		otel.Handle(err)
	}
	txnMetrics.failed, err = meter.Int64Counter(
		"facts.txn.failed",
		metric.WithDescription("Number of transactions rejected by a fatal diagnostic."),
	)
	if err != nil {
		otel.Handle(err)
	}
	txnMetrics.formSize, err = meter.Int64Histogram(
		"facts.txn.form_count",
		metric.WithDescription("Number of top-level forms submitted per transaction."),
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

// ApplyTraced wraps Apply with a transaction span and form/conflict counters,
// for callers that want tracing without threading a context through Apply's
// pure signature.
func ApplyTraced(ctx context.Context, db Database, forms []Form) (TxReport, error) {
	ctx, span := txnTracer.Start(ctx, "txn.apply",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("facts.form_count", len(forms)),
			attribute.Int64("facts.tx_count", db.TxCount),
		),
	)
	defer func() {
		txnMetrics.formSize.Record(ctx, int64(len(forms)))
	}()

	report, err := Apply(db, forms)
	if err != nil {
		txnMetrics.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("facts.error_kind", errKind(err))))
		endSpan(span, err)
		return report, err
	}

	txnMetrics.applied.Add(ctx, 1)
	span.SetAttributes(attribute.Int("facts.tempid_count", len(report.TempIDs)))
	endSpan(span, nil)
	return report, nil
}

func errKind(err error) string {
	if txErr, ok := err.(*TxError); ok {
		return string(txErr.Kind)
	}
	return "unknown"
}
