package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instruments holds the metric instruments recorded during thought
// processing and action dispatch.
type Instruments struct {
	DispatchTotal    metric.Int64Counter
	DispatchDuration metric.Float64Histogram
	PonderTotal      metric.Int64Counter
	DeferralTotal    metric.Int64Counter
}

// NewInstruments creates the instruments on the given meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	dispatchTotal, err := meter.Int64Counter("cogito.dispatch.total",
		metric.WithDescription("Number of action dispatches by action and outcome"))
	if err != nil {
		return nil, err
	}
	dispatchDuration, err := meter.Float64Histogram("cogito.dispatch.duration",
		metric.WithDescription("Handler execution duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	ponderTotal, err := meter.Int64Counter("cogito.ponder.total",
		metric.WithDescription("Number of ponder rounds taken"))
	if err != nil {
		return nil, err
	}
	deferralTotal, err := meter.Int64Counter("cogito.deferral.total",
		metric.WithDescription("Number of thoughts deferred to the wise authority"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		DispatchTotal:    dispatchTotal,
		DispatchDuration: dispatchDuration,
		PonderTotal:      ponderTotal,
		DeferralTotal:    deferralTotal,
	}, nil
}

// RecordDispatch records one dispatch with its duration in seconds.
func (i *Instruments) RecordDispatch(ctx context.Context, actionType string, seconds float64, ok bool) {
	if i == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("action", actionType),
		attribute.Bool("success", ok),
	)
	i.DispatchTotal.Add(ctx, 1, attrs)
	i.DispatchDuration.Record(ctx, seconds, attrs)
}

// StartDispatchSpan starts a span covering one handler invocation.
func StartDispatchSpan(ctx context.Context, tracer trace.Tracer, actionType, thoughtID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "dispatch."+actionType,
		trace.WithAttributes(
			attribute.String("action", actionType),
			attribute.String("thought.id", thoughtID),
		))
}
