package observability

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records pipeline metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeExecution records one node run with the exec attempts it took.
	RecordNodeExecution(ctx context.Context, node string, duration time.Duration, attempts int, err error)

	// RecordLLMCall records one gateway call; cached calls never reach the provider.
	RecordLLMCall(ctx context.Context, model string, duration time.Duration, cached bool, err error)

	// RecordRun records a finished flow run.
	RecordRun(ctx context.Context, success bool, duration time.Duration)
}

type otelMetrics struct {
	nodeExecutions metric.Int64Counter
	nodeAttempts   metric.Int64Histogram
	nodeErrors     metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	llmCalls       metric.Int64Counter
	llmLatency     metric.Float64Histogram
	runs           metric.Int64Counter
	runLatency     metric.Float64Histogram
}

var (
	defaultMu      sync.Mutex
	defaultMetrics *otelMetrics
)

// getDefaultMetrics returns the instruments of the current global meter
// provider, creating them on first use.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultMetrics == nil {
		m, err := newOtelMetrics()
		if err != nil {
			return nil, err
		}
		defaultMetrics = m
	}
	return defaultMetrics, nil
}

// resetDefaultMetrics drops the cached instruments after the global meter
// provider changed.
func resetDefaultMetrics() {
	defaultMu.Lock()
	defaultMetrics = nil
	defaultMu.Unlock()
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &otelMetrics{}
	var err error

	if m.nodeExecutions, err = meter.Int64Counter("repotutor.node.executions",
		metric.WithDescription("Number of node executions")); err != nil {
		return nil, err
	}
	if m.nodeAttempts, err = meter.Int64Histogram("repotutor.node.attempts",
		metric.WithDescription("Exec attempts per node execution")); err != nil {
		return nil, err
	}
	if m.nodeErrors, err = meter.Int64Counter("repotutor.node.errors",
		metric.WithDescription("Number of node executions that halted the flow")); err != nil {
		return nil, err
	}
	if m.nodeLatency, err = meter.Float64Histogram("repotutor.node.latency_ms",
		metric.WithDescription("Node execution latency in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.llmCalls, err = meter.Int64Counter("repotutor.llm.calls",
		metric.WithDescription("Number of gateway calls")); err != nil {
		return nil, err
	}
	if m.llmLatency, err = meter.Float64Histogram("repotutor.llm.latency_ms",
		metric.WithDescription("Gateway call latency in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.runs, err = meter.Int64Counter("repotutor.flow.runs",
		metric.WithDescription("Number of flow runs")); err != nil {
		return nil, err
	}
	if m.runLatency, err = meter.Float64Histogram("repotutor.flow.latency_ms",
		metric.WithDescription("Flow run latency in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel
// meter provider. If instrument creation fails, it returns a no-op recorder.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		log.Printf("[Metrics] initialization failed, using no-op recorder: %v", err)
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordNodeExecution(ctx context.Context, node string, duration time.Duration, attempts int, err error) {
	attrs := metric.WithAttributes(attribute.String("node", node))
	m.nodeExecutions.Add(ctx, 1, attrs)
	m.nodeAttempts.Record(ctx, int64(attempts), attrs)
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.nodeErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordLLMCall(ctx context.Context, model string, duration time.Duration, cached bool, err error) {
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.Bool("cached", cached),
		attribute.Bool("error", err != nil),
	)
	m.llmCalls.Add(ctx, 1, attrs)
	if !cached {
		m.llmLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (m *otelMetrics) RecordRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.runs.Add(ctx, 1, attrs)
	m.runLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

func (NoopMetrics) RecordNodeExecution(context.Context, string, time.Duration, int, error) {}
func (NoopMetrics) RecordLLMCall(context.Context, string, time.Duration, bool, error)      {}
func (NoopMetrics) RecordRun(context.Context, bool, time.Duration)                         {}
