package bootstrap

import (
	"context"
	"errors"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/config"
	"github.com/kbukum/demandflow/observability"
)

// telemetry owns the OTLP meter and tracer providers.
type telemetry struct {
	meterCfg  observability.MeterConfig
	tracerCfg observability.TracerConfig

	mu sync.Mutex
	mp *sdkmetric.MeterProvider
	tp *sdktrace.TracerProvider
}

func newTelemetry(cfg *config.ServiceConfig) *telemetry {
	mc := cfg.Observability.MeterConfig(cfg.Name, cfg.Environment)
	mc.ServiceVersion = cfg.Version
	tc := cfg.Observability.TracerConfig(cfg.Name, cfg.Environment)
	tc.ServiceVersion = cfg.Version
	return &telemetry{meterCfg: mc, tracerCfg: tc}
}

func (t *telemetry) Name() string { return "telemetry" }

func (t *telemetry) Start(ctx context.Context) error {
	mp, err := observability.InitMeter(ctx, &t.meterCfg)
	if err != nil {
		return err
	}
	tp, err := observability.InitTracer(ctx, &t.tracerCfg)
	if err != nil {
		_ = mp.Shutdown(ctx)
		return err
	}
	t.mu.Lock()
	t.mp, t.tp = mp, tp
	t.mu.Unlock()
	return nil
}

// Stop flushes both providers.
func (t *telemetry) Stop(ctx context.Context) error {
	t.mu.Lock()
	mp, tp := t.mp, t.tp
	t.mp, t.tp = nil, nil
	t.mu.Unlock()

	var errs []error
	if tp != nil {
		errs = append(errs, tp.Shutdown(ctx))
	}
	if mp != nil {
		errs = append(errs, mp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (t *telemetry) Health(context.Context) component.Health {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mp == nil {
		return component.Health{Name: t.Name(), Status: component.StatusDegraded, Message: "exporters not running"}
	}
	return component.Health{Name: t.Name(), Status: component.StatusHealthy, Message: t.meterCfg.Endpoint}
}
