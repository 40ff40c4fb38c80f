package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/framepulse/internal/timeline"
)

// StartRunSpan starts a new span covering one measurement run. source is
// where the samples come from, e.g. "live" or a trace file path.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, source string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "measurement run",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	if source != "" {
		span.SetAttributes(attribute.String("framepulse.source", source))
	}
	return ctx, span
}

// RecordSummary attaches the aggregate frame timing metrics to a run span.
func RecordSummary(span trace.Span, sum *timeline.Summary) {
	build := sum.Build()
	raster := sum.Raster()
	span.SetAttributes(
		attribute.Int("framepulse.frame_count", sum.FrameCount()),
		attribute.Float64("framepulse.budget_ms", float64(sum.Budget().Microseconds())/1000.0),
		attribute.Float64("framepulse.build.avg_ms", float64(build.Average.Microseconds())/1000.0),
		attribute.Float64("framepulse.build.p90_ms", float64(build.P90.Microseconds())/1000.0),
		attribute.Float64("framepulse.build.p99_ms", float64(build.P99.Microseconds())/1000.0),
		attribute.Float64("framepulse.build.worst_ms", float64(build.Worst.Microseconds())/1000.0),
		attribute.Int("framepulse.build.missed", build.MissedBudget),
		attribute.Float64("framepulse.raster.avg_ms", float64(raster.Average.Microseconds())/1000.0),
		attribute.Float64("framepulse.raster.p90_ms", float64(raster.P90.Microseconds())/1000.0),
		attribute.Float64("framepulse.raster.p99_ms", float64(raster.P99.Microseconds())/1000.0),
		attribute.Float64("framepulse.raster.worst_ms", float64(raster.Worst.Microseconds())/1000.0),
		attribute.Int("framepulse.raster.missed", raster.MissedBudget),
	)
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers, so the
// application under test can correlate its own spans with the harness run.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
