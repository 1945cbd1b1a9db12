package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/logger"
)

// PoolConfig configures a Pool.
type PoolConfig struct {
	// Name identifies the pool in logs and health reports.
	Name string
	// Workers is the number of goroutines running tasks. Defaults to 1.
	Workers int
}

// Pool runs tasks on a fixed set of worker goroutines. Submit never
// blocks: tasks are queued without bound until a worker is free.
type Pool struct {
	cfg PoolConfig
	log *logger.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool

	running atomic.Bool
	group   *errgroup.Group
	done    atomic.Int64
}

var _ component.Component = (*Pool)(nil)

// NewPool creates a pool. Tasks submitted before Start are queued.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Name == "" {
		cfg.Name = "pool"
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	p := &Pool{cfg: cfg, log: logger.Get(cfg.Name)}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Name implements component.Component.
func (p *Pool) Name() string { return p.cfg.Name }

// Start launches the workers.
func (p *Pool) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("pool %s already started", p.cfg.Name)
	}
	p.group = new(errgroup.Group)
	for i := 0; i < p.cfg.Workers; i++ {
		p.group.Go(p.work)
	}
	p.log.Debug("pool started", logger.Fields("workers", p.cfg.Workers))
	return nil
}

// Stop lets the workers finish the queued tasks and waits for them, or
// until ctx is done.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	if !p.running.Load() {
		return nil
	}
	wait := make(chan error, 1)
	go func() { wait <- p.group.Wait() }()
	select {
	case err := <-wait:
		p.log.Debug("pool stopped", logger.Fields("tasks", p.done.Load()))
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health implements component.Component.
func (p *Pool) Health(context.Context) component.Health {
	p.mu.Lock()
	closed, queued := p.closed, len(p.queue)
	p.mu.Unlock()

	h := component.Health{Name: p.cfg.Name, Status: component.StatusHealthy}
	switch {
	case closed:
		h.Status = component.StatusUnhealthy
		h.Message = "stopped"
	case !p.running.Load():
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("not started, %d queued", queued)
	}
	return h
}

// Submit queues task. Tasks submitted after Stop are dropped.
func (p *Pool) Submit(task func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.log.Warn("task submitted to stopped pool was dropped")
		return
	}
	p.queue = append(p.queue, task)
	p.mu.Unlock()
	p.cond.Signal()
}

// Completed returns the number of tasks run so far.
func (p *Pool) Completed() int64 { return p.done.Load() }

// Workers returns the configured number of workers.
func (p *Pool) Workers() int { return p.cfg.Workers }

// Pending returns the number of queued tasks.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *Pool) work() error {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return nil
		}
		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		runTask(p.log, task)
		p.done.Add(1)
	}
}
