package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestOTelObserver_RecordsCalls(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	obs, err := NewOTelObserver(provider.Meter("toolmath/test"), tp.Tracer("toolmath/test"))
	if err != nil {
		t.Fatalf("NewOTelObserver() error = %v", err)
	}

	obs.ObserveCall(context.Background(), CallObservation{Tool: "execute_mathematica", Outcome: OutcomeOK, Duration: 20 * time.Millisecond})
	obs.ObserveCall(context.Background(), CallObservation{Tool: "execute_mathematica", Outcome: OutcomeToolError, Duration: time.Millisecond})
	obs.ObserveCall(context.Background(), CallObservation{Tool: "verify_derivation", Outcome: OutcomeOK, Duration: time.Second})

	metrics := collect(t, reader)

	calls, ok := metrics["toolmath.tool.calls"]
	if !ok {
		t.Fatal("toolmath.tool.calls not recorded")
	}
	sum, ok := calls.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("calls data = %T, want Sum[int64]", calls.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("total calls = %d, want 3", total)
	}
	if len(sum.DataPoints) != 3 {
		t.Errorf("data points = %d, want one per tool/outcome pair (3)", len(sum.DataPoints))
	}

	latency, ok := metrics["toolmath.tool.latency"]
	if !ok {
		t.Fatal("toolmath.tool.latency not recorded")
	}
	if latency.Unit != "s" {
		t.Errorf("latency unit = %q, want %q", latency.Unit, "s")
	}

	ended := spans.Ended()
	if len(ended) != 3 {
		t.Fatalf("spans = %d, want 3", len(ended))
	}
	var failed int
	for _, span := range ended {
		if span.Name() != "tool.call" {
			t.Errorf("span name = %q, want tool.call", span.Name())
		}
		if span.Status().Code == codes.Error {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("error spans = %d, want 1", failed)
	}
	if d := ended[2].EndTime().Sub(ended[2].StartTime()); d != time.Second {
		t.Errorf("span duration = %v, want the observed 1s", d)
	}
}

func TestOTelObserver_NilSafe(t *testing.T) {
	var obs *OTelObserver
	obs.ObserveCall(context.Background(), CallObservation{Tool: "x", Outcome: OutcomeOK})
}

func TestOTelObserver_NilTracer(t *testing.T) {
	provider := sdkmetric.NewMeterProvider()
	obs, err := NewOTelObserver(provider.Meter("toolmath/test"), nil)
	if err != nil {
		t.Fatalf("NewOTelObserver() error = %v", err)
	}
	obs.ObserveCall(context.Background(), CallObservation{Tool: "x", Outcome: OutcomeInternalError})
}

func TestOutcomeFailed(t *testing.T) {
	if OutcomeOK.Failed() {
		t.Error("OutcomeOK.Failed() = true")
	}
	for _, o := range []Outcome{OutcomeToolError, OutcomeInvalidParams, OutcomeEngineUnavailable, OutcomeNotFound, OutcomeInternalError} {
		if !o.Failed() {
			t.Errorf("%s.Failed() = false", o)
		}
	}
}

func TestOTelObserver_SpanJoinsCallerTrace(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	obs, err := NewOTelObserver(sdkmetric.NewMeterProvider().Meter("toolmath/test"), tp.Tracer("toolmath/test"))
	if err != nil {
		t.Fatalf("NewOTelObserver() error = %v", err)
	}

	ctx, parent := tp.Tracer("toolmath/test").Start(context.Background(), "tools/call")
	obs.ObserveCall(ctx, CallObservation{Tool: "verify_derivation", Outcome: OutcomeOK, Duration: time.Millisecond})
	parent.End()

	var child sdktrace.ReadOnlySpan
	for _, span := range spans.Ended() {
		if span.Name() == "tool.call" {
			child = span
		}
	}
	if child == nil {
		t.Fatal("tool.call span not recorded")
	}
	if child.Parent().SpanID() != parent.SpanContext().SpanID() {
		t.Errorf("parent span = %s, want %s", child.Parent().SpanID(), parent.SpanContext().SpanID())
	}
	if child.SpanContext().TraceID() != parent.SpanContext().TraceID() {
		t.Errorf("trace id = %s, want %s", child.SpanContext().TraceID(), parent.SpanContext().TraceID())
	}
}
