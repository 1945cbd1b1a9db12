package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/config"
	"github.com/kbukum/demandflow/logger"
)

// mockComponent implements component.Component for testing.
type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   component.Health
	started  bool
	stopped  bool
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	m.started = true
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	m.stopped = true
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) component.Health {
	return m.health
}

func newTestConfig(name, version string) *config.ServiceConfig {
	return &config.ServiceConfig{
		Name:        name,
		Version:     version,
		Environment: "development",
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(newTestConfig("test-svc", "1.0.0"), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)
	if app.Name != "test-svc" {
		t.Errorf("expected name 'test-svc', got %q", app.Name)
	}
	if app.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", app.Version)
	}
	if app.Components == nil {
		t.Error("expected non-nil components registry")
	}
	if app.Metrics == nil {
		t.Error("expected stream metrics")
	}
	if app.Cfg.Flow.Prefetch == 0 {
		t.Error("expected flow defaults to be applied")
	}
	if app.Components.Get("telemetry") != nil {
		t.Error("telemetry must not be registered without an endpoint")
	}
}

func TestNewAppValidation(t *testing.T) {
	cfg := &config.ServiceConfig{Environment: "development"}
	if _, err := NewApp(cfg, WithLogger(logger.Nop())); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := NewApp(nil); err == nil {
		t.Error("expected error for nil config")
	}

	bad := newTestConfig("test", "1.0")
	bad.Flow.Strategy = "sometimes"
	if _, err := NewApp(bad, WithLogger(logger.Nop())); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestNewAppRegistersTelemetry(t *testing.T) {
	cfg := newTestConfig("test", "1.0")
	cfg.Observability.Endpoint = "localhost:4318"
	app, err := NewApp(cfg, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	c := app.Components.Get("telemetry")
	if c == nil {
		t.Fatal("expected telemetry component")
	}
	if h := c.Health(context.Background()); h.Status != component.StatusDegraded {
		t.Errorf("expected degraded before start, got %s", h.Status)
	}
}

func TestWithGracefulTimeout(t *testing.T) {
	app, err := NewApp(newTestConfig("test", "1.0"),
		WithLogger(logger.Nop()),
		WithGracefulTimeout(30*time.Second),
	)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if app.gracefulTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", app.gracefulTimeout)
	}
}

func TestDefaultGracefulTimeout(t *testing.T) {
	if app := newTestApp(t); app.gracefulTimeout != 15*time.Second {
		t.Errorf("expected 15s default timeout, got %v", app.gracefulTimeout)
	}
}

func TestRegisterComponentDuplicate(t *testing.T) {
	app := newTestApp(t)
	if err := app.RegisterComponent(&mockComponent{name: "pool"}); err != nil {
		t.Fatalf("RegisterComponent failed: %v", err)
	}
	if err := app.RegisterComponent(&mockComponent{name: "pool"}); err == nil {
		t.Error("expected error for duplicate component")
	}
}

func TestReadyCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  component.HealthStatus
		wantErr bool
	}{
		{"healthy", component.StatusHealthy, false},
		{"degraded", component.StatusDegraded, true},
		{"unhealthy", component.StatusUnhealthy, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			_ = app.RegisterComponent(&mockComponent{
				name:   "pool",
				health: component.Health{Name: "pool", Status: tt.status, Message: "workers"},
			})
			err := app.ReadyCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadyCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "pool="+string(tt.status)+"(workers)") {
				t.Errorf("unexpected error detail: %v", err)
			}
		})
	}
}

func TestRunTaskSuccess(t *testing.T) {
	app := newTestApp(t)
	ran := false
	if err := app.RunTask(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if !ran {
		t.Error("expected task to run")
	}
}

func TestRunTaskError(t *testing.T) {
	app := newTestApp(t)
	want := errors.New("scenario failed")
	err := app.RunTask(context.Background(), func(ctx context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Errorf("expected task error, got %v", err)
	}
}

func TestRunTaskCancellation(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	err := app.RunTask(ctx, func(taskCtx context.Context) error {
		cancel()
		<-taskCtx.Done()
		return taskCtx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunTaskLifecycleOrder(t *testing.T) {
	app := newTestApp(t)
	c := &mockComponent{name: "pool", health: component.Health{Name: "pool", Status: component.StatusHealthy}}
	_ = app.RegisterComponent(c)

	var order []string
	app.OnStart(func(ctx context.Context) error {
		if !c.started {
			t.Error("OnStart ran before components were started")
		}
		order = append(order, "start")
		return nil
	})
	app.OnStop(func(ctx context.Context) error {
		if c.stopped {
			t.Error("OnStop ran after components were stopped")
		}
		order = append(order, "stop")
		return nil
	})

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		order = append(order, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if strings.Join(order, ",") != "start,task,stop" {
		t.Errorf("unexpected order %v", order)
	}
	if !c.stopped {
		t.Error("expected component to be stopped")
	}
}

func TestRunTaskComponentStartError(t *testing.T) {
	app := newTestApp(t)
	_ = app.RegisterComponent(&mockComponent{name: "pool", startErr: errors.New("no workers")})
	ran := false
	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "initialization failed") {
		t.Errorf("expected initialization error, got %v", err)
	}
	if ran {
		t.Error("task must not run when a component fails to start")
	}
}

func TestRunTaskWithStartHookError(t *testing.T) {
	app := newTestApp(t)
	app.OnStart(func(ctx context.Context) error { return errors.New("boom") })
	err := app.RunTask(context.Background(), func(ctx context.Context) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "onStart hook failed") {
		t.Errorf("expected onStart error, got %v", err)
	}
}

func TestRunTaskStopErrorReported(t *testing.T) {
	app := newTestApp(t)
	_ = app.RegisterComponent(&mockComponent{
		name:    "pool",
		stopErr: errors.New("stuck"),
		health:  component.Health{Name: "pool", Status: component.StatusHealthy},
	})
	err := app.RunTask(context.Background(), func(ctx context.Context) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "stuck") {
		t.Errorf("expected stop error, got %v", err)
	}

	// The task error wins over a stop error.
	app = newTestApp(t)
	_ = app.RegisterComponent(&mockComponent{name: "pool", stopErr: errors.New("stuck")})
	want := errors.New("task")
	if err := app.RunTask(context.Background(), func(ctx context.Context) error { return want }); !errors.Is(err, want) {
		t.Errorf("expected task error, got %v", err)
	}
}

func TestSummaryRender(t *testing.T) {
	s := NewSummary("flowdemo", "1.2.3")
	s.SetStartupDuration(1500 * time.Millisecond)
	s.TrackPipeline("hot", "bridge(missing)", "on-backpressure-drop", "observe-on")

	reg := component.NewRegistry()
	_ = reg.Register(&mockComponent{name: "io", health: component.Health{Name: "io", Status: component.StatusHealthy}})

	var buf bytes.Buffer
	s.Render(context.Background(), &buf, reg)
	out := buf.String()

	for _, want := range []string{
		"flowdemo v1.2.3 started in 1.50s",
		"└── hot: bridge(missing) -> on-backpressure-drop -> observe-on",
		"└── ✅ io: healthy",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if len(s.Pipelines()) != 1 {
		t.Errorf("expected 1 pipeline, got %d", len(s.Pipelines()))
	}
}

func TestBranch(t *testing.T) {
	if branch(0, 2) != "├──" || branch(1, 2) != "└──" {
		t.Error("unexpected tree prefixes")
	}
}
