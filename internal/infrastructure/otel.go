package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
)

const (
	ServiceName = "schoolpulse"
	MeterName   = "schoolpulse"
)

// Metrics bundles the pipeline instruments. All counters are
// monotonic; the duration histogram is in seconds.
type Metrics struct {
	PipelineRuns      metric.Int64Counter
	RowsParsed        metric.Int64Counter
	RowsRejected      metric.Int64Counter
	DuplicatesRemoved metric.Int64Counter
	PipelineDuration  metric.Float64Histogram
}

// Telemetry holds the meter provider and the Prometheus scrape
// handler exposed at /metrics.
type Telemetry struct {
	MeterProvider  *sdkmetric.MeterProvider
	Meter          metric.Meter
	Metrics        *Metrics
	PrometheusHTTP http.Handler
}

// InitializeTelemetry wires an OpenTelemetry meter to a Prometheus
// exporter and registers the pipeline instruments.
func InitializeTelemetry(version string, logger *slog.Logger) (*Telemetry, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(MeterName)
	metrics, err := newMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("register instruments: %w", err)
	}

	logger.Info("telemetry initialized",
		slog.String("service", ServiceName),
		slog.String("exporter", "prometheus"))

	return &Telemetry{
		MeterProvider:  provider,
		Meter:          meter,
		Metrics:        metrics,
		PrometheusHTTP: promhttp.Handler(),
	}, nil
}

// Shutdown flushes and stops the meter provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.MeterProvider == nil {
		return nil
	}
	return t.MeterProvider.Shutdown(ctx)
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.PipelineRuns, err = meter.Int64Counter("pipeline_runs_total",
		metric.WithDescription("Completed pipeline runs")); err != nil {
		return nil, err
	}
	if m.RowsParsed, err = meter.Int64Counter("rows_parsed_total",
		metric.WithDescription("Rows parsed from raw payloads")); err != nil {
		return nil, err
	}
	if m.RowsRejected, err = meter.Int64Counter("rows_rejected_total",
		metric.WithDescription("Rows rejected for missing identity fields")); err != nil {
		return nil, err
	}
	if m.DuplicatesRemoved, err = meter.Int64Counter("duplicates_removed_total",
		metric.WithDescription("Duplicate incidents removed")); err != nil {
		return nil, err
	}
	if m.PipelineDuration, err = meter.Float64Histogram("pipeline_duration_seconds",
		metric.WithDescription("End-to-end pipeline run duration"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}

	return m, nil
}
