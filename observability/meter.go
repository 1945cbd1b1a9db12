package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/demandflow/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// StreamMetrics holds the instruments recorded by stream stages. A nil
// *StreamMetrics is valid and records nothing.
type StreamMetrics struct {
	requested  metric.Int64Counter
	emitted    metric.Int64Counter
	dropped    metric.Int64Counter
	terminated metric.Int64Counter
}

// NewStreamMetrics creates the stream instruments on the given meter.
func NewStreamMetrics(meter metric.Meter) (*StreamMetrics, error) {
	requested, err := meter.Int64Counter("flow.requested",
		metric.WithDescription("Demand granted by consumers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flow.requested counter: %w", err)
	}

	emitted, err := meter.Int64Counter("flow.emitted",
		metric.WithDescription("Values delivered to consumers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flow.emitted counter: %w", err)
	}

	dropped, err := meter.Int64Counter("flow.dropped",
		metric.WithDescription("Values dropped or rejected by an overflow policy"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flow.dropped counter: %w", err)
	}

	terminated, err := meter.Int64Counter("flow.terminated",
		metric.WithDescription("Links that reached a terminal state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flow.terminated counter: %w", err)
	}

	return &StreamMetrics{
		requested:  requested,
		emitted:    emitted,
		dropped:    dropped,
		terminated: terminated,
	}, nil
}

// RecordRequested records demand granted on a stage. Unbounded requests
// are counted once with unbounded=true instead of their numeric value.
func (m *StreamMetrics) RecordRequested(ctx context.Context, stage string, n int64, unbounded bool) {
	if m == nil {
		return
	}
	if unbounded {
		n = 1
	}
	m.requested.Add(ctx, n, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Bool("unbounded", unbounded),
	))
}

// RecordEmitted records one value delivered by a stage.
func (m *StreamMetrics) RecordEmitted(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.emitted.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordDropped records values discarded or rejected by an overflow policy.
func (m *StreamMetrics) RecordDropped(ctx context.Context, stage, policy string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.dropped.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("policy", policy),
	))
}

// RecordTerminated records a link reaching a terminal state.
func (m *StreamMetrics) RecordTerminated(ctx context.Context, stage, state string) {
	if m == nil {
		return
	}
	m.terminated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("state", state),
	))
}
