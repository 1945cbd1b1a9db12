package flow

// Handle is the consumer's side of a link.
type Handle interface {
	// Request grants n more items. It returns an InvalidDemand error for
	// n <= 0 without affecting the link, and is a no-op once the link is
	// terminal. Pass Unbounded to lift all limits.
	Request(n int64) error
	// Cancel ends the link. It is idempotent; no signal is delivered after
	// it has taken effect.
	Cancel()
}

// Subscriber receives the signals of one link. OnSubscribe is called exactly
// once, before anything else. OnNext is never called more often than the
// demand granted through the handle, and at most one of OnError and
// OnComplete is called. Calls are never concurrent.
type Subscriber[T any] interface {
	OnSubscribe(h Handle)
	OnNext(v T)
	OnError(err error)
	OnComplete()
}

// Publisher is a source of values for any number of independent links.
// Implementations call OnSubscribe synchronously inside Subscribe.
type Publisher[T any] interface {
	Subscribe(s Subscriber[T])
}

// Callbacks is a Subscriber assembled from functions. Nil functions are skipped.
type Callbacks[T any] struct {
	OnSubscribe func(h Handle)
	OnNext      func(v T)
	OnError     func(err error)
	OnComplete  func()
}

type callbackSubscriber[T any] struct {
	cb     Callbacks[T]
	handle Handle
}

func (s *callbackSubscriber[T]) OnSubscribe(h Handle) {
	s.handle = h
	if s.cb.OnSubscribe != nil {
		s.cb.OnSubscribe(h)
	}
}

func (s *callbackSubscriber[T]) OnNext(v T) {
	if s.cb.OnNext != nil {
		s.cb.OnNext(v)
	}
}

func (s *callbackSubscriber[T]) OnError(err error) {
	if s.cb.OnError != nil {
		s.cb.OnError(err)
	}
}

func (s *callbackSubscriber[T]) OnComplete() {
	if s.cb.OnComplete != nil {
		s.cb.OnComplete()
	}
}

// Attach subscribes the callbacks to p and returns the link handle. Demand
// may be granted from cb.OnSubscribe, which runs before Attach returns, or
// later through the returned handle.
func Attach[T any](p Publisher[T], cb Callbacks[T]) Handle {
	s := &callbackSubscriber[T]{cb: cb}
	p.Subscribe(s)
	return s.handle
}

// Must panics if err is non-nil and returns p otherwise. It is meant for
// stage constructors whose configuration is known to be valid.
func Must[T any](p Publisher[T], err error) Publisher[T] {
	if err != nil {
		panic(err)
	}
	return p
}
