// Package observe records tool-call telemetry.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Outcome classifies how a tool call ended.
type Outcome string

const (
	OutcomeOK                Outcome = "ok"
	OutcomeToolError         Outcome = "tool_error"
	OutcomeInvalidParams     Outcome = "invalid_params"
	OutcomeEngineUnavailable Outcome = "engine_unavailable"
	OutcomeNotFound          Outcome = "not_found"
	OutcomeInternalError     Outcome = "internal_error"
)

// Failed reports whether the outcome is anything other than OutcomeOK.
func (o Outcome) Failed() bool {
	return o != OutcomeOK
}

// CallObservation describes one finished tool call.
type CallObservation struct {
	Tool     string
	Outcome  Outcome
	Duration time.Duration
}

// Observer receives tool-call observations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: observing is best-effort and must not panic.
type Observer interface {
	// ObserveCall is called once per finished call with the call's context.
	ObserveCall(ctx context.Context, obs CallObservation)
}

// Nop discards observations.
type Nop struct{}

// ObserveCall implements Observer.
func (Nop) ObserveCall(context.Context, CallObservation) {}

// OTelObserver records tool calls into OpenTelemetry.
type OTelObserver struct {
	tracer trace.Tracer

	calls   metric.Int64Counter
	latency metric.Float64Histogram
}

// NewOTelObserver creates an observer bound to the provided meter/tracer.
// tracer may be nil to skip spans.
func NewOTelObserver(meter metric.Meter, tracer trace.Tracer) (*OTelObserver, error) {
	calls, err := meter.Int64Counter(
		"toolmath.tool.calls",
		metric.WithDescription("Number of tool calls"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"toolmath.tool.latency",
		metric.WithDescription("Tool call latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &OTelObserver{
		tracer:  tracer,
		calls:   calls,
		latency: latency,
	}, nil
}

// ObserveCall records one call. The span is a child of any span in ctx.
func (o *OTelObserver) ObserveCall(ctx context.Context, obs CallObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool_name", obs.Tool),
		attribute.String("outcome", string(obs.Outcome)),
		attribute.Bool("success", !obs.Outcome.Failed()),
	}

	if ctx == nil {
		ctx = context.Background()
	}
	options := metric.WithAttributes(attrs...)
	o.calls.Add(ctx, 1, options)
	o.latency.Record(ctx, obs.Duration.Seconds(), options)

	if o.tracer == nil {
		return
	}
	end := time.Now()
	_, span := o.tracer.Start(ctx, "tool.call",
		trace.WithAttributes(attrs...),
		trace.WithTimestamp(end.Add(-obs.Duration)))
	if obs.Outcome.Failed() {
		span.SetStatus(codes.Error, string(obs.Outcome))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(end))
}

var (
	_ Observer = (*OTelObserver)(nil)
	_ Observer = Nop{}
)
