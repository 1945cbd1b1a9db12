package flow

import (
	"sync"

	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/executor"
	"github.com/kbukum/demandflow/logger"
)

// SubscribeOn subscribes to p on exec. The subscriber receives its handle
// immediately; demand and cancellation issued before the upstream
// subscription exists are replayed once it does.
func SubscribeOn[T any](p Publisher[T], exec executor.Executor, opts ...Option) (Publisher[T], error) {
	if p == nil {
		return nil, errors.InvalidConfig("upstream", "must not be nil")
	}
	if exec == nil {
		return nil, errors.InvalidConfig("executor", "must not be nil")
	}
	return &subscribeOn[T]{upstream: p, exec: exec, opts: buildOptions("subscribe-on", opts)}, nil
}

type subscribeOn[T any] struct {
	upstream Publisher[T]
	exec     executor.Executor
	opts     *options
}

func (s *subscribeOn[T]) Subscribe(sub Subscriber[T]) {
	w := &subscribeOnSubscriber[T]{downstream: sub}
	sub.OnSubscribe(&w.handle)

	s.exec.Submit(func() {
		if w.handle.isCancelled() {
			s.opts.log.Debug("skipping upstream subscribe, already cancelled",
				logger.Fields(logger.FieldStage, s.opts.name))
			return
		}
		s.upstream.Subscribe(w)
	})
}

type subscribeOnSubscriber[T any] struct {
	downstream Subscriber[T]
	handle     deferredHandle
}

func (w *subscribeOnSubscriber[T]) OnSubscribe(h Handle) { w.handle.set(h) }
func (w *subscribeOnSubscriber[T]) OnNext(v T)           { w.downstream.OnNext(v) }
func (w *subscribeOnSubscriber[T]) OnError(err error)    { w.downstream.OnError(err) }
func (w *subscribeOnSubscriber[T]) OnComplete()          { w.downstream.OnComplete() }

// deferredHandle is a Handle that accumulates demand and cancellation until
// the real upstream handle is set.
type deferredHandle struct {
	mu        sync.Mutex
	h         Handle
	pending   int64
	cancelled bool
}

func (d *deferredHandle) set(h Handle) {
	d.mu.Lock()
	if d.h != nil {
		d.mu.Unlock()
		h.Cancel()
		return
	}
	d.h = h
	n, cancelled := d.pending, d.cancelled
	d.pending = 0
	d.mu.Unlock()

	if cancelled {
		h.Cancel()
		return
	}
	if n > 0 {
		_ = h.Request(n)
	}
}

func (d *deferredHandle) Request(n int64) error {
	if n <= 0 {
		return errors.InvalidDemand(n)
	}
	d.mu.Lock()
	h := d.h
	if h == nil && !d.cancelled {
		d.pending = addCap(d.pending, n)
	}
	d.mu.Unlock()
	if h != nil {
		return h.Request(n)
	}
	return nil
}

func (d *deferredHandle) Cancel() {
	d.mu.Lock()
	d.cancelled = true
	h := d.h
	d.mu.Unlock()
	if h != nil {
		h.Cancel()
	}
}

func (d *deferredHandle) isCancelled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelled
}
