package lifecycle

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "lab_borrow_portal/lifecycle"

	TransitionsMetric = "borrow_request_transitions_total"

	OutcomeSuccess           = "success"
	OutcomeInvalidTransition = "invalid_transition"
	OutcomeForbidden         = "forbidden"
	OutcomeConflict          = "conflict"
	OutcomeNotFound          = "not_found"
	OutcomeTransient         = "transient"
	OutcomeValidation        = "validation"
	OutcomeCanceled          = "canceled"
	OutcomeError             = "error"
)

type instruments struct {
	tracer      trace.Tracer
	transitions metric.Int64Counter
}

func newInstruments(mp metric.MeterProvider, tp trace.TracerProvider) instruments {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	in := instruments{tracer: tp.Tracer(instrumentationName)}
	c, err := mp.Meter(instrumentationName).Int64Counter(
		TransitionsMetric,
		metric.WithDescription("Borrow request transitions by event and outcome"),
	)
	if err == nil {
		in.transitions = c
	}
	return in
}

func (in instruments) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return in.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (in instruments) countTransition(ctx context.Context, ev Event, from, to, outcome string) {
	if in.transitions == nil {
		return
	}
	in.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", string(ev)),
		attribute.String("from", from),
		attribute.String("to", to),
		attribute.String("outcome", outcome),
	))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrInvalidTransition):
		return OutcomeInvalidTransition
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrUnauthenticated):
		return OutcomeForbidden
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrTransient):
		return OutcomeTransient
	case errors.Is(err, ErrValidation):
		return OutcomeValidation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	}
	return OutcomeError
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcomeOf(err))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
