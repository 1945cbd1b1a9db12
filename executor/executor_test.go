package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/demandflow/component"
)

func TestImmediate_RunsInline(t *testing.T) {
	ran := false
	Immediate().Submit(func() { ran = true })
	if !ran {
		t.Error("expected task to run before Submit returned")
	}
}

func TestFunc_Adapter(t *testing.T) {
	var calls int
	exec := Func(func(task func()) {
		calls++
		task()
	})
	exec.Submit(func() {})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestGoroutine_RunsAndSurvivesPanic(t *testing.T) {
	exec := NewGoroutine()
	var wg sync.WaitGroup
	wg.Add(2)
	exec.Submit(func() {
		defer wg.Done()
		panic("boom")
	})
	var ran atomic.Bool
	exec.Submit(func() {
		defer wg.Done()
		ran.Store(true)
	})
	wg.Wait()
	if !ran.Load() {
		t.Error("second task did not run")
	}
}

func TestPool_RunsQueuedTasks(t *testing.T) {
	p := NewPool(PoolConfig{Name: "test-pool", Workers: 3})
	var count atomic.Int64
	for i := 0; i < 50; i++ {
		p.Submit(func() { count.Add(1) })
	}
	if p.Pending() != 50 {
		t.Errorf("Pending before start = %d, want 50", p.Pending())
	}

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if count.Load() != 50 {
		t.Errorf("ran %d tasks, want 50", count.Load())
	}
}

func TestPool_SubmitFromTaskDoesNotBlock(t *testing.T) {
	p := NewPool(PoolConfig{Workers: 1})
	ctx := context.Background()
	_ = p.Start(ctx)

	done := make(chan struct{})
	p.Submit(func() {
		for i := 0; i < 10; i++ {
			p.Submit(func() {})
		}
		p.Submit(func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested submissions did not complete")
	}
	_ = p.Stop(ctx)
}

func TestPool_Health(t *testing.T) {
	p := NewPool(PoolConfig{Name: "h"})
	ctx := context.Background()

	if got := p.Health(ctx).Status; got != component.StatusDegraded {
		t.Errorf("before start: %s, want degraded", got)
	}
	_ = p.Start(ctx)
	if got := p.Health(ctx).Status; got != component.StatusHealthy {
		t.Errorf("running: %s, want healthy", got)
	}
	_ = p.Stop(ctx)
	if got := p.Health(ctx).Status; got != component.StatusUnhealthy {
		t.Errorf("stopped: %s, want unhealthy", got)
	}
}

func TestPool_SubmitAfterStopIsDropped(t *testing.T) {
	p := NewPool(PoolConfig{})
	ctx := context.Background()
	_ = p.Start(ctx)
	_ = p.Stop(ctx)

	var ran atomic.Bool
	p.Submit(func() { ran.Store(true) })
	time.Sleep(10 * time.Millisecond)
	if ran.Load() {
		t.Error("task ran after Stop")
	}
}
