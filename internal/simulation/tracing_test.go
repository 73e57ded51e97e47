package simulation

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRun_RecordsSpanPerRun(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	cfg := decayConfig(t, 4, nil)
	cfg.RunTill = 5
	cfg.Tracer = tp.Tracer("test")
	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "simulation.run" {
		t.Errorf("Expected span simulation.run, got %s", span.Name())
	}
	if got := len(span.Events()); got != res.Steps {
		t.Errorf("Expected one event per step (%d), got %d", res.Steps, got)
	}
	var found bool
	for _, attr := range span.Attributes() {
		if attr.Key == "chemsim.run_id" && attr.Value.AsString() == res.RunID {
			found = true
		}
	}
	if !found {
		t.Error("Expected run ID attribute on span")
	}
}
