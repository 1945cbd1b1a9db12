package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: "json"}, "test-svc", buf)
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]interface{}{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "debug")
	l.Info("hello", Fields(FieldStage, "range", FieldDemand, 5))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["message"] != "hello" {
		t.Errorf("unexpected message %v", lines[0]["message"])
	}
	if lines[0][FieldStage] != "range" {
		t.Errorf("expected stage=range, got %v", lines[0][FieldStage])
	}
	if lines[0][FieldDemand] != float64(5) {
		t.Errorf("expected demand=5, got %v", lines[0][FieldDemand])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown too")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}
	if l.Enabled(zerolog.DebugLevel) {
		t.Error("debug should be disabled at warn level")
	}
	if !l.Enabled(zerolog.ErrorLevel) {
		t.Error("error should be enabled at warn level")
	}
}

func TestNewInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "invalid-level")
	l.Debug("hidden")
	l.Info("shown")
	if len(decodeLines(t, &buf)) != 1 {
		t.Errorf("expected invalid level to fall back to info, got %q", buf.String())
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	l := NewFromEnv("env-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.GetLogger().GetLevel() != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %v", l.GetLogger().GetLevel())
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "info").WithComponent("observe-on")
	l.Info("x")
	lines := decodeLines(t, &buf)
	if lines[0][FieldComponent] != "observe-on" {
		t.Errorf("expected component field, got %v", lines[0])
	}
}

func TestWithFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "info").
		WithFields(Fields(FieldLinkID, "abc")).
		WithError(errors.New("boom"))
	l.Info("x")
	lines := decodeLines(t, &buf)
	if lines[0][FieldLinkID] != "abc" {
		t.Errorf("expected link_id, got %v", lines[0])
	}
	if lines[0]["error"] != "boom" {
		t.Errorf("expected error field, got %v", lines[0])
	}
}

func TestWithContext_NoSpan(t *testing.T) {
	l := NewDefault("svc")
	if l.WithContext(context.Background()) != l {
		t.Error("expected same logger when no span is active")
	}
}

func TestWithContext_Span(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "info")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1, 2, 3},
		SpanID:  trace.SpanID{4, 5, 6},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	l.WithContext(ctx).Info("traced")

	lines := decodeLines(t, &buf)
	if lines[0][FieldTraceID] != sc.TraceID().String() {
		t.Errorf("expected trace id, got %v", lines[0])
	}
	if lines[0][FieldSpanID] != sc.SpanID().String() {
		t.Errorf("expected span id, got %v", lines[0])
	}
}

func TestNop(t *testing.T) {
	Nop().Error("discarded")
}

func TestInitAndGlobal(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	Init(Config{Level: "debug", Format: "json", ServiceName: "demo"})
	if GetGlobalLogger().service != "demo" {
		t.Errorf("expected global service 'demo', got %q", GetGlobalLogger().service)
	}

	custom := NewDefault("custom")
	SetGlobalLogger(custom)
	if GetGlobalLogger() != custom {
		t.Error("expected custom global logger")
	}

	Debug("debug")
	Info("info")
	Warn("warn")
	Error("error")
	if WithComponent("c") == nil {
		t.Error("expected component logger")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamp=true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json"}, false},
		{"disabled level", Config{Level: "disabled", Format: "console"}, false},
		{"bad level", Config{Level: "loud", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("wantErr=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestConsoleLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "flowdemo", &buf)
	l.Warn("overflow", Fields(FieldDropped, 3))
	out := buf.String()
	if !strings.Contains(out, "[FLO][WRN]") {
		t.Errorf("expected service and level tags, got %q", out)
	}
	if !strings.Contains(out, "dropped:3") {
		t.Errorf("expected field rendering, got %q", out)
	}
}

func TestRegisterAndGet(t *testing.T) {
	l := NewDefault("reg")
	Register("stage-x", l)
	defer Unregister("stage-x")
	if Get("stage-x") != l {
		t.Error("expected registered logger")
	}
}

func TestGetUnregistered(t *testing.T) {
	if Get("never-registered") == nil {
		t.Error("expected fallback logger")
	}
}

func TestRegisterDefaults(t *testing.T) {
	RegisterDefaults("a-stage", "b-stage")
	defer Unregister("a-stage")
	defer Unregister("b-stage")
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	if _, ok := registry.loggers["a-stage"]; !ok {
		t.Error("expected a-stage registered")
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "ignored", "dangling")
	if m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields %v", m)
	}
	if len(m) != 2 {
		t.Errorf("expected 2 keys, got %d", len(m))
	}
}

func TestErrorAndMergeFields(t *testing.T) {
	f := ErrorFields("drain", errors.New("bad"))
	if f[FieldOperation] != "drain" || f[FieldError] != "bad" {
		t.Errorf("unexpected %v", f)
	}
	m := MergeWithError(nil, errors.New("x"))
	if m[FieldError] != "x" {
		t.Errorf("unexpected %v", m)
	}
}

func TestNewWithStderrOutput(t *testing.T) {
	if outputWriter("stderr") != os.Stderr {
		t.Error("expected stderr")
	}
	if outputWriter("anything") != os.Stdout {
		t.Error("expected stdout default")
	}
}
