package observability

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry owns the SDK providers installed as the OTel globals. Metrics
// are kept in memory and read back with Snapshot.
type Telemetry struct {
	reader *sdkmetric.ManualReader
	meters *sdkmetric.MeterProvider
	traces *sdktrace.TracerProvider

	prevMeters metric.MeterProvider
	prevTraces trace.TracerProvider
}

// Setup installs SDK meter and tracer providers. With logSpans every
// finished span is written to the log.
func Setup(logSpans bool) *Telemetry {
	t := &Telemetry{
		reader:     sdkmetric.NewManualReader(),
		prevMeters: otel.GetMeterProvider(),
		prevTraces: otel.GetTracerProvider(),
	}
	t.meters = sdkmetric.NewMeterProvider(sdkmetric.WithReader(t.reader))

	var opts []sdktrace.TracerProviderOption
	if logSpans {
		opts = append(opts, sdktrace.WithSpanProcessor(spanLogger{}))
	}
	t.traces = sdktrace.NewTracerProvider(opts...)

	otel.SetMeterProvider(t.meters)
	otel.SetTracerProvider(t.traces)
	resetDefaultMetrics()
	return t
}

// Shutdown flushes the providers and restores the previous globals.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	otel.SetMeterProvider(t.prevMeters)
	otel.SetTracerProvider(t.prevTraces)
	resetDefaultMetrics()
	return errors.Join(t.traces.Shutdown(ctx), t.meters.Shutdown(ctx))
}

// Summary holds the totals recorded since Setup.
type Summary struct {
	Runs           int64 `json:"runs"`
	FailedRuns     int64 `json:"failed_runs"`
	NodeExecutions int64 `json:"node_executions"`
	NodeAttempts   int64 `json:"node_attempts"`
	NodeErrors     int64 `json:"node_errors"`
	LLMCalls       int64 `json:"llm_calls"`
	CachedLLMCalls int64 `json:"cached_llm_calls"`
	FailedLLMCalls int64 `json:"failed_llm_calls"`
}

// String renders the summary as one line.
func (s Summary) String() string {
	return fmt.Sprintf("%d LLM calls (%d cached, %d failed), %d node runs with %d attempts, %d node errors",
		s.LLMCalls, s.CachedLLMCalls, s.FailedLLMCalls, s.NodeExecutions, s.NodeAttempts, s.NodeErrors)
}

// Snapshot collects the current metric totals.
func (t *Telemetry) Snapshot(ctx context.Context) (Summary, error) {
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		return Summary{}, fmt.Errorf("collect metrics: %w", err)
	}
	var s Summary
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					s.addSum(m.Name, dp)
				}
			case metricdata.Histogram[int64]:
				if m.Name == "repotutor.node.attempts" {
					for _, dp := range data.DataPoints {
						s.NodeAttempts += dp.Sum
					}
				}
			}
		}
	}
	return s, nil
}

func (s *Summary) addSum(name string, dp metricdata.DataPoint[int64]) {
	flag := func(key string) bool {
		v, ok := dp.Attributes.Value(attribute.Key(key))
		return ok && v.AsBool()
	}
	switch name {
	case "repotutor.flow.runs":
		s.Runs += dp.Value
		if !flag("success") {
			s.FailedRuns += dp.Value
		}
	case "repotutor.node.executions":
		s.NodeExecutions += dp.Value
	case "repotutor.node.errors":
		s.NodeErrors += dp.Value
	case "repotutor.llm.calls":
		s.LLMCalls += dp.Value
		if flag("cached") {
			s.CachedLLMCalls += dp.Value
		}
		if flag("error") {
			s.FailedLLMCalls += dp.Value
		}
	}
}

// spanLogger logs finished spans.
type spanLogger struct{}

func (spanLogger) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (spanLogger) OnEnd(s sdktrace.ReadOnlySpan) {
	var attrs []string
	for _, kv := range s.Attributes() {
		attrs = append(attrs, string(kv.Key)+"="+kv.Value.Emit())
	}
	status := "ok"
	if s.Status().Code == codes.Error {
		status = "error: " + s.Status().Description
	}
	log.Printf("[Trace] %s %s %v %s", s.Name(), strings.Join(attrs, " "),
		s.EndTime().Sub(s.StartTime()).Round(time.Millisecond), status)
}

func (spanLogger) Shutdown(context.Context) error   { return nil }
func (spanLogger) ForceFlush(context.Context) error { return nil }
