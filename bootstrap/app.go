package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/config"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/observability"
	"github.com/kbukum/demandflow/server"
)

// App runs a demandflow program with uniform lifecycle management.
//
// Example:
//
//	cfg, _ := config.Load("flowdemo")
//	app, err := bootstrap.NewApp(cfg)
//	app.RunTask(ctx, func(ctx context.Context) error {
//	    return runScenario(ctx, app)
//	})
type App struct {
	Name       string
	Version    string
	Cfg        *config.ServiceConfig
	Components *component.Registry
	Logger     *logger.Logger
	// Metrics records stream telemetry. It is backed by the global meter
	// provider, which stays a no-op unless an OTLP endpoint is configured.
	Metrics *observability.StreamMetrics
	// Prometheus is the registry served on the admin server's /metrics.
	Prometheus *prometheus.Registry
	// Admin is nil unless the admin server is enabled.
	Admin   *server.Server
	Summary *Summary

	gracefulTimeout time.Duration

	onStart []Hook
	onStop  []Hook
}

// NewApp creates an application from cfg.
// It applies defaults, validates the config, and initializes the logger.
func NewApp(cfg *config.ServiceConfig, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config validation: nil config")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	app := &App{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(),
		gracefulTimeout: 15 * time.Second,
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(cfg.Logging)
		app.Logger = logger.GetGlobalLogger()
	}

	if cfg.Observability.Enabled() {
		if err := app.Components.Register(newTelemetry(cfg)); err != nil {
			return nil, err
		}
	}

	metrics, err := observability.NewStreamMetrics(observability.Meter(cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("stream metrics: %w", err)
	}
	app.Metrics = metrics

	app.Prometheus = prometheus.NewRegistry()
	app.Prometheus.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if cfg.Admin.Enabled {
		app.Admin = server.New(cfg.Admin, app.Logger)
		app.Admin.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll, app.Prometheus)
		if err := app.Components.Register(app.Admin); err != nil {
			return nil, err
		}
	}

	app.Summary = NewSummary(cfg.Name, cfg.Version)
	return app, nil
}

// RegisterComponent adds a component to the application's registry.
func (a *App) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// ReadyCheck verifies that all registered components are healthy.
func (a *App) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// RunTask starts every component, runs task and shuts down when the task
// returns or the context is canceled (e.g., via SIGINT/SIGTERM).
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("Received signal, canceling task", map[string]interface{}{
				"signal": sig.String(),
			})
			cancel()
		case <-taskCtx.Done():
		}
	}()

	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil {
		if taskErr != nil {
			return taskErr
		}
		return stopErr
	}
	return taskErr
}

func (a *App) startup(ctx context.Context) error {
	start := time.Now()

	a.Logger.Info("Starting application", map[string]interface{}{
		"name":    a.Name,
		"version": a.Version,
	})

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.ErrorFields("ready_check", err))
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.Summary.Log(ctx, a.Components, a.Logger)
	return nil
}

// Shutdown performs graceful shutdown. Use when managing your own lifecycle.
func (a *App) Shutdown(context.Context) error {
	return a.stop()
}

func (a *App) stop() error {
	a.Logger.Info("Shutting down application", map[string]interface{}{
		"timeout": a.gracefulTimeout.String(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", logger.ErrorFields("on_stop", err))
		shutdownErr = err
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", logger.ErrorFields("stop_all", err))
		shutdownErr = err
	}

	a.Logger.Info("Application shutdown complete")
	return shutdownErr
}
