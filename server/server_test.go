package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/logger"
)

func newTestServer(t *testing.T, checker HealthChecker, gatherer prometheus.Gatherer) *Server {
	t.Helper()
	cfg := Config{}
	cfg.ApplyDefaults()
	s := New(cfg, logger.Nop())
	s.RegisterDefaultEndpoints("flowdemo", checker, gatherer)
	return s
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func checkerOf(statuses ...component.HealthStatus) HealthChecker {
	return func(context.Context) []component.Health {
		out := make([]component.Health, 0, len(statuses))
		for i, st := range statuses {
			out = append(out, component.Health{Name: string(rune('a' + i)), Status: st})
		}
		return out
	}
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		checker    HealthChecker
		wantCode   int
		wantStatus string
	}{
		{"no checker", nil, http.StatusOK, "healthy"},
		{"all healthy", checkerOf(component.StatusHealthy), http.StatusOK, "healthy"},
		{"degraded", checkerOf(component.StatusHealthy, component.StatusDegraded), http.StatusOK, "degraded"},
		{"unhealthy wins", checkerOf(component.StatusDegraded, component.StatusUnhealthy), http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newTestServer(t, tt.checker, prometheus.NewRegistry()), "/health")
			require.Equal(t, tt.wantCode, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body["status"])
			assert.Equal(t, "flowdemo", body["service"])
			assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
		})
	}
}

func TestReadyEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t, checkerOf(component.StatusDegraded), nil), "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, newTestServer(t, checkerOf(component.StatusUnhealthy), nil), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "flow_test_total", Help: "test"})
	c.Add(3)
	reg.MustRegister(c)

	rec := get(t, newTestServer(t, nil, reg), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "flow_test_total 3"), rec.Body.String())
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc")
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-Id"))
}

func TestRecovery(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.Engine().GET("/boom", func(c *gin.Context) { panic("boom") })
	rec := get(t, s, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServerLifecycle(t *testing.T) {
	s := New(Config{Host: "127.0.0.1", Port: 0, ReadTimeout: 1, WriteTimeout: 1, IdleTimeout: 1}, logger.Nop())
	s.RegisterDefaultEndpoints("flowdemo", nil, nil)

	assert.Equal(t, component.StatusDegraded, s.Health(context.Background()).Status)
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, component.StatusHealthy, s.Health(context.Background()).Status)

	resp, err := http.Get("http://" + s.Addr() + "/ready")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Port: 70000}
	assert.Error(t, cfg.Validate())
	cfg = Config{}
	cfg.ApplyDefaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:9464", cfg.Addr())
}
