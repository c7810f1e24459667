// Package metrics records test-run telemetry as OpenTelemetry instruments and
// as Prometheus collectors served on /metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName   = "flowbuilder/backend"
	LabelStatus = "status"
)

// Recorder owns the run instruments.
type Recorder struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	runnerErrors prometheus.Counter
	flowsSaved   prometheus.Counter

	otelRuns         metric.Int64Counter
	otelRunDuration  metric.Float64Histogram
	otelRunnerErrors metric.Int64Counter
}

// New creates a Recorder on the global otel MeterProvider and a private
// Prometheus registry.
func New() (*Recorder, error) {
	return NewWithMeter(otel.Meter(meterName))
}

// NewWithMeter creates a Recorder using meter for the otel instruments.
func NewWithMeter(meter metric.Meter) (*Recorder, error) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Recorder{
		registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flowbuilder_runs_total",
			Help: "Completed test runs by status",
		}, []string{LabelStatus}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowbuilder_run_duration_seconds",
			Help:    "Wall-clock time spent waiting on the runner",
			Buckets: prometheus.DefBuckets,
		}),
		runnerErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "flowbuilder_runner_errors_total",
			Help: "Runner calls that failed in transport or returned a non-success status",
		}),
		flowsSaved: factory.NewCounter(prometheus.CounterOpts{
			Name: "flowbuilder_flows_saved_total",
			Help: "Flows saved to the library",
		}),
	}

	var err error
	if r.otelRuns, err = meter.Int64Counter("flowbuilder.runs",
		metric.WithDescription("Completed test runs")); err != nil {
		return nil, err
	}
	if r.otelRunDuration, err = meter.Float64Histogram("flowbuilder.run.duration",
		metric.WithDescription("Time spent waiting on the runner"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.otelRunnerErrors, err = meter.Int64Counter("flowbuilder.runner.errors",
		metric.WithDescription("Failed runner calls")); err != nil {
		return nil, err
	}
	return r, nil
}

// RecordRun records a completed run. status is "Passed", "Failed" or
// "Scheduled".
func (r *Recorder) RecordRun(ctx context.Context, status string, elapsed time.Duration) {
	r.runs.WithLabelValues(status).Inc()
	r.runDuration.Observe(elapsed.Seconds())

	attrs := metric.WithAttributes(attribute.String(LabelStatus, status))
	r.otelRuns.Add(ctx, 1, attrs)
	r.otelRunDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordRunnerError counts a failed runner call.
func (r *Recorder) RecordRunnerError(ctx context.Context) {
	r.runnerErrors.Inc()
	r.otelRunnerErrors.Add(ctx, 1)
}

// RecordFlowSaved counts a saved flow.
func (r *Recorder) RecordFlowSaved() {
	r.flowsSaved.Inc()
}

// Handler serves the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
