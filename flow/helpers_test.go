package flow

import (
	"sync"
	"time"
)

// recorder is a Subscriber that records every signal.
type recorder[T any] struct {
	mu        sync.Mutex
	handle    Handle
	values    []T
	err       error
	errors    int
	completed int
	done      chan struct{}
	doneOnce  sync.Once

	initial int64
	onNext  func(r *recorder[T], v T)
}

func newRecorder[T any](initial int64) *recorder[T] {
	return &recorder[T]{initial: initial, done: make(chan struct{})}
}

func (r *recorder[T]) OnSubscribe(h Handle) {
	r.mu.Lock()
	r.handle = h
	r.mu.Unlock()
	if r.initial > 0 {
		_ = h.Request(r.initial)
	}
}

func (r *recorder[T]) OnNext(v T) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
	if r.onNext != nil {
		r.onNext(r, v)
	}
}

func (r *recorder[T]) OnError(err error) {
	r.mu.Lock()
	r.err = err
	r.errors++
	r.mu.Unlock()
	r.doneOnce.Do(func() { close(r.done) })
}

func (r *recorder[T]) OnComplete() {
	r.mu.Lock()
	r.completed++
	r.mu.Unlock()
	r.doneOnce.Do(func() { close(r.done) })
}

func (r *recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

func (r *recorder[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *recorder[T]) Errors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors
}

func (r *recorder[T]) Completed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

func (r *recorder[T]) Handle() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handle
}

// wait blocks until a terminal signal or the timeout.
func (r *recorder[T]) wait(d time.Duration) bool {
	select {
	case <-r.done:
		return true
	case <-time.After(d):
		return false
	}
}

// requestSpy records the demand its subscribers grant upstream.
type requestSpy[T any] struct {
	upstream Publisher[T]

	mu         sync.Mutex
	requests   []int64
	cancels    int
	subscribes int
}

func (s *requestSpy[T]) Subscribe(sub Subscriber[T]) {
	s.mu.Lock()
	s.subscribes++
	s.mu.Unlock()
	s.upstream.Subscribe(&spySubscriber[T]{Subscriber: sub, spy: s})
}

func (s *requestSpy[T]) Requests() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.requests...)
}

func (s *requestSpy[T]) Cancels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancels
}

func (s *requestSpy[T]) Subscribes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribes
}

type spySubscriber[T any] struct {
	Subscriber[T]
	spy *requestSpy[T]
}

func (s *spySubscriber[T]) OnSubscribe(h Handle) {
	s.Subscriber.OnSubscribe(&spyHandle[T]{Handle: h, spy: s.spy})
}

type spyHandle[T any] struct {
	Handle
	spy *requestSpy[T]
}

func (h *spyHandle[T]) Request(n int64) error {
	h.spy.mu.Lock()
	h.spy.requests = append(h.spy.requests, n)
	h.spy.mu.Unlock()
	return h.Handle.Request(n)
}

func (h *spyHandle[T]) Cancel() {
	h.spy.mu.Lock()
	h.spy.cancels++
	h.spy.mu.Unlock()
	h.Handle.Cancel()
}

func ints(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
