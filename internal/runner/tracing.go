package runner

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("eqsat.runner")

// startRunSpan creates the span covering a whole run.
func startRunSpan(ctx context.Context, runID string, rules int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Runner.Run",
		trace.WithAttributes(
			attribute.String("eqsat.run_id", runID),
			attribute.Int("eqsat.rules", rules),
		),
	)
}

// startIterationSpan creates the span covering one iteration.
func startIterationSpan(ctx context.Context, index int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Runner.iteration",
		trace.WithAttributes(attribute.Int("eqsat.iteration", index)),
	)
}

// endIterationSpan records the iteration outcome and ends the span.
func endIterationSpan(span trace.Span, it Iteration) {
	span.SetAttributes(
		attribute.Int("eqsat.nodes", it.Nodes),
		attribute.Int("eqsat.classes", it.Classes),
		attribute.Int("eqsat.unions", it.TotalApplied()),
		attribute.Int("eqsat.rebuild_unions", it.Rebuild.Unions),
	)
	span.End()
}

// endRunSpan records the stop reason and ends the span.
func endRunSpan(span trace.Span, res *Result, err error) {
	span.SetAttributes(
		attribute.String("eqsat.stop_reason", string(res.StopReason.Code)),
		attribute.Int("eqsat.iterations", len(res.Iterations)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
