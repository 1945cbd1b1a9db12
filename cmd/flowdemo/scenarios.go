package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/demandflow/bootstrap"
	flowerrors "github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/executor"
	"github.com/kbukum/demandflow/flow"
	"github.com/kbukum/demandflow/logger"
)

type scenario struct {
	name        string
	description string
	run         func(ctx context.Context, e *env) error
}

var scenarios = []scenario{
	{"custom-range", "pull source consumed in batches of 5 then 2", customRange},
	{"create-with-strategy", "push producer bridged with the configured strategy behind observe-on", createWithStrategy},
	{"buffer-operator", "unaware producer buffered by a stage that fails on overflow", bufferOperator},
	{"buffer-drop-oldest", "unaware producer buffered by a stage that evicts the oldest value", bufferDropOldest},
	{"slow-operator", "drop stage in front of a slow consumer", slowOperator},
	{"hot-publisher", "hot bridge fed after subscription, dropping what observe-on did not ask for", hotPublisher},
	{"cascading-operators", "buffer stage wrapped by a drop stage; only the drop stage acts", cascadingOperators},
	{"aware-range", "demand-aware range behind observe-on; nothing is lost", awareRange},
	{"subscribe-on-iterate", "generator subscribed on the pool and consumed by a blocking iterator", subscribeOnIterate},
}

// env carries what every scenario needs.
type env struct {
	app   *bootstrap.App
	io    executor.Executor
	delay time.Duration
	log   *logger.Logger
}

func newEnv(app *bootstrap.App, io executor.Executor, delay time.Duration) *env {
	return &env{app: app, io: io, delay: delay, log: app.Logger}
}

// run executes s. Link errors are an expected outcome of several
// scenarios and are only logged.
func (e *env) run(ctx context.Context, s scenario) error {
	sc := *e
	sc.log = e.app.Logger.WithFields(logger.Fields(logger.FieldScenario, s.name))
	sc.log.Info("scenario started", logger.Fields("description", s.description))

	start := time.Now()
	err := s.run(ctx, &sc)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	elapsed := logger.DurationFields(s.name, time.Since(start))
	switch {
	case err == nil:
		sc.log.Info("scenario completed", elapsed)
	case flowerrors.IsTerminalCode(flowerrors.CodeOf(err)):
		sc.log.Warn("scenario ended with link error", logger.MergeWithError(elapsed, err))
	default:
		return fmt.Errorf("scenario %s: %w", s.name, err)
	}
	return nil
}

func (e *env) opts(name string, extra ...flow.Option) []flow.Option {
	opts := []flow.Option{flow.WithName(name), flow.WithMetrics(e.app.Metrics)}
	if e.app.Cfg.Observability.Enabled() {
		opts = append(opts, flow.WithTracing())
	}
	return append(opts, extra...)
}

func (e *env) prefetch() int { return e.app.Cfg.Flow.Prefetch }

// counter returns a producer that pushes 0..items-1 without looking at demand.
func (e *env) counter(items int) func(ctx context.Context, em flow.Emitter[int]) {
	return func(ctx context.Context, em flow.Emitter[int]) {
		e.log.Info("started emitting")
		for i := 0; i < items; i++ {
			if em.Cancelled() {
				return
			}
			e.log.Info("emitting", logger.Fields("value", i))
			if err := em.Next(i); err != nil {
				e.log.Warn("value rejected", logger.MergeWithError(logger.Fields("value", i), err))
				return
			}
		}
		em.Complete()
	}
}

func (e *env) logOverflow(what string) flow.Option {
	return flow.WithOverflow[int](func(o flow.Overflow[int]) {
		e.log.Info(what, logger.Fields(
			logger.FieldPolicy, o.Policy.String(),
			logger.FieldDropped, o.Count,
			"values", o.Items,
		))
	})
}

func customRange(ctx context.Context, e *env) error {
	const initial, batch = 5, 2
	e.app.Summary.TrackPipeline("custom-range", "range(5,10)")

	done := make(chan error, 1)
	backlog := 0
	var handle flow.Handle
	flow.Attach(flow.Range(5, 10, e.opts("range")...), flow.Callbacks[int]{
		OnSubscribe: func(h flow.Handle) {
			handle = h
			backlog = initial
			e.log.Info("initial request", logger.Fields(logger.FieldDemand, initial))
			_ = h.Request(initial)
		},
		OnNext: func(v int) {
			e.log.Info("subscriber received", logger.Fields("value", v))
			backlog--
			if backlog == 0 {
				backlog = batch
				_ = handle.Request(batch)
			}
		},
		OnError:    func(err error) { done <- err },
		OnComplete: func() { done <- nil },
	})
	return wait(ctx, handle, done)
}

func createWithStrategy(ctx context.Context, e *env) error {
	strategy, err := e.app.Cfg.Flow.BuildStrategy()
	if err != nil {
		return err
	}
	src, err := flow.Create(e.counter(10), strategy, e.opts("create", e.logOverflow("producer overflow"))...)
	if err != nil {
		return err
	}
	p, err := flow.ObserveOn(src, e.io, e.prefetch(), e.opts("observe-on")...)
	if err != nil {
		return err
	}
	e.app.Summary.TrackPipeline("create-with-strategy", "create("+strategy.String()+")", "observe-on")
	return subscribeSlow(ctx, e, p, nil).wait(ctx)
}

func bufferOperator(ctx context.Context, e *env) error {
	return bufferedScenario(ctx, e, "buffer-operator", flow.ErrorOnOverflow)
}

func bufferDropOldest(ctx context.Context, e *env) error {
	return bufferedScenario(ctx, e, "buffer-drop-oldest", flow.DropOldest)
}

func bufferedScenario(ctx context.Context, e *env, name string, policy flow.OverflowPolicy) error {
	src, err := flow.Create(e.counter(10), flow.MissingStrategy(), e.opts("create")...)
	if err != nil {
		return err
	}
	capacity := e.app.Cfg.Flow.BufferCapacity
	buffered, err := flow.OnBackpressureBuffer(src, capacity, policy,
		e.opts("on-backpressure-buffer", e.logOverflow("buffer has overflown"))...)
	if err != nil {
		return err
	}
	p, err := flow.ObserveOn(buffered, e.io, e.prefetch(), e.opts("observe-on")...)
	if err != nil {
		return err
	}
	e.app.Summary.TrackPipeline(name, "create(missing)",
		fmt.Sprintf("on-backpressure-buffer(%d,%s)", capacity, policy), "observe-on")
	return subscribeSlow(ctx, e, p, nil).wait(ctx)
}

func slowOperator(ctx context.Context, e *env) error {
	src, err := flow.Create(e.counter(10), flow.MissingStrategy(), e.opts("create")...)
	if err != nil {
		return err
	}
	dropped, err := flow.OnBackpressureDrop(src, e.opts("on-backpressure-drop", e.logOverflow("dropping"))...)
	if err != nil {
		return err
	}
	p, err := flow.ObserveOn(dropped, e.io, e.prefetch(), e.opts("observe-on")...)
	if err != nil {
		return err
	}
	e.app.Summary.TrackPipeline("slow-operator", "create(missing)", "on-backpressure-drop", "observe-on")
	return subscribeSlow(ctx, e, p, func(v int) {
		e.log.Info("transformed", logger.Fields("value", fmt.Sprintf("*%d*", v)))
	}).wait(ctx)
}

func hotPublisher(ctx context.Context, e *env) error {
	subject, err := flow.NewBridge[int](flow.MissingStrategy(), e.opts("subject")...)
	if err != nil {
		return err
	}
	dropped, err := flow.OnBackpressureDrop[int](subject, e.opts("on-backpressure-drop", e.logOverflow("dropped"))...)
	if err != nil {
		return err
	}
	p, err := flow.ObserveOn(dropped, e.io, e.prefetch(), e.opts("observe-on")...)
	if err != nil {
		return err
	}
	e.app.Summary.TrackPipeline("hot-publisher", subject.String(), "on-backpressure-drop", "observe-on")

	sink := subscribeSlow(ctx, e, p, nil)
	for i := 1; i <= 10; i++ {
		e.log.Info("emitting", logger.Fields("value", i))
		if err := subject.Next(i); err != nil {
			return err
		}
	}
	subject.Complete()
	return sink.wait(ctx)
}

func cascadingOperators(ctx context.Context, e *env) error {
	src, err := flow.Create(e.counter(10), flow.MissingStrategy(), e.opts("create")...)
	if err != nil {
		return err
	}
	buffered, err := flow.OnBackpressureBuffer(src, e.app.Cfg.Flow.BufferCapacity, flow.ErrorOnOverflow,
		e.opts("on-backpressure-buffer", e.logOverflow("buffer has overflown"))...)
	if err != nil {
		return err
	}
	dropped, err := flow.OnBackpressureDrop(buffered, e.opts("on-backpressure-drop", e.logOverflow("dropping"))...)
	if err != nil {
		return err
	}
	p, err := flow.ObserveOn(dropped, e.io, e.prefetch(), e.opts("observe-on")...)
	if err != nil {
		return err
	}
	e.app.Summary.TrackPipeline("cascading-operators", "create(missing)", "on-backpressure-buffer",
		"on-backpressure-drop", "observe-on")
	return subscribeSlow(ctx, e, p, nil).wait(ctx)
}

func awareRange(ctx context.Context, e *env) error {
	p, err := flow.ObserveOn(flow.Range(0, 10, e.opts("range")...), e.io, e.prefetch(), e.opts("observe-on")...)
	if err != nil {
		return err
	}
	e.app.Summary.TrackPipeline("aware-range", "range(0,10)", "observe-on")
	return subscribeSlow(ctx, e, p, nil).wait(ctx)
}

func subscribeOnIterate(ctx context.Context, e *env) error {
	n := 0
	gen := flow.Generate(func(ctx context.Context) (int, bool, error) {
		if n == 20 {
			return 0, false, nil
		}
		v := n * n
		n++
		return v, true, nil
	}, e.opts("squares")...)

	p, err := flow.SubscribeOn(gen, e.io, e.opts("subscribe-on")...)
	if err != nil {
		return err
	}
	batch := e.app.Cfg.Flow.IterateBatch
	e.app.Summary.TrackPipeline("subscribe-on-iterate", "generate", "subscribe-on", fmt.Sprintf("iterate(%d)", batch))

	it := flow.Iterate(ctx, p, batch)
	defer it.Close()
	for {
		v, ok, err := it.Next(ctx)
		if err != nil || !ok {
			return err
		}
		e.log.Info("iterated", logger.Fields("value", v))
	}
}

// sink is a subscriber that grants unbounded demand and spends env.delay on
// every value.
type sink struct {
	handle flow.Handle
	done   chan error
}

func subscribeSlow[T any](ctx context.Context, e *env, p flow.Publisher[T], onValue func(T)) *sink {
	s := &sink{done: make(chan error, 1)}
	s.handle = flow.Attach(p, flow.Callbacks[T]{
		OnSubscribe: func(h flow.Handle) { _ = h.Request(flow.Unbounded) },
		OnNext: func(v T) {
			if onValue != nil {
				onValue(v)
			} else {
				e.log.Info("received", logger.Fields("value", v))
			}
			sleep(ctx, e.delay)
		},
		OnError: func(err error) {
			e.log.Warn("subscriber error", logger.ErrorFields("on_error", err))
			s.done <- err
		},
		OnComplete: func() {
			e.log.Info("subscriber completed")
			s.done <- nil
		},
	})
	return s
}

func (s *sink) wait(ctx context.Context) error {
	return wait(ctx, s.handle, s.done)
}

func wait(ctx context.Context, h flow.Handle, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if h != nil {
			h.Cancel()
		}
		return ctx.Err()
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
