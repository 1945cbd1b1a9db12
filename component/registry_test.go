package component

import (
	"context"
	"errors"
	"testing"
)

type recorder struct {
	events *[]string
}

func (r recorder) hooks(name string, startErr, stopErr error) Hooks {
	return Hooks{
		ID: name,
		OnStart: func(context.Context) error {
			*r.events = append(*r.events, "start:"+name)
			return startErr
		},
		OnStop: func(context.Context) error {
			*r.events = append(*r.events, "stop:"+name)
			return stopErr
		},
	}
}

func TestRegistry_StartStopOrder(t *testing.T) {
	var events []string
	rec := recorder{events: &events}
	r := NewRegistry()
	for _, name := range []string{"a", "b", "c"} {
		if err := r.Register(rec.hooks(name, nil, nil)); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}

	ctx := context.Background()
	if err := r.StartAll(ctx); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := r.StopAll(ctx); err != nil {
		t.Fatalf("StopAll: %v", err)
	}

	want := []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, events[i], want[i])
		}
	}
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Hooks{ID: "pool"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(Hooks{ID: "pool"}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRegistry_StartFailureStopsStarted(t *testing.T) {
	var events []string
	rec := recorder{events: &events}
	r := NewRegistry()
	_ = r.Register(rec.hooks("a", nil, nil))
	_ = r.Register(rec.hooks("b", errors.New("boom"), nil))
	_ = r.Register(rec.hooks("c", nil, nil))

	ctx := context.Background()
	if err := r.StartAll(ctx); err == nil {
		t.Fatal("expected start failure")
	}
	_ = r.StopAll(ctx)

	want := []string{"start:a", "start:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
}

func TestRegistry_StopErrorsJoined(t *testing.T) {
	var events []string
	rec := recorder{events: &events}
	r := NewRegistry()
	_ = r.Register(rec.hooks("a", nil, errors.New("a failed")))
	_ = r.Register(rec.hooks("b", nil, errors.New("b failed")))

	ctx := context.Background()
	_ = r.StartAll(ctx)
	err := r.StopAll(ctx)
	if err == nil {
		t.Fatal("expected stop error")
	}
	if got := err.Error(); got != "failed to stop b: b failed\nfailed to stop a: a failed" {
		t.Errorf("unexpected error: %q", got)
	}
}

func TestRegistry_HealthAndGet(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Hooks{ID: "telemetry"})
	if r.Get("telemetry") == nil || r.Get("missing") != nil {
		t.Error("Get returned unexpected result")
	}
	h := r.HealthAll(context.Background())
	if len(h) != 1 || h[0].Status != StatusHealthy {
		t.Errorf("HealthAll = %+v", h)
	}
}
