package flow

import (
	"context"

	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/observability"
)

// Option configures a source or stage.
type Option func(*options)

type options struct {
	name       string
	ctx        context.Context
	log        *logger.Logger
	metrics    *observability.StreamMetrics
	tracing    bool
	delayError bool
	onOverflow any
}

// WithName sets the stage name used in logs, metrics and spans.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithContext sets the parent of every link context created by the stage.
// Cancelling it does not cancel the links; it only reaches producers and
// generators that watch the link context.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithLogger overrides the stage logger. By default the named logger
// registered under the stage name is used.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records demand, emission, drops and terminations on m.
func WithMetrics(m *observability.StreamMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracing opens a span for the lifetime of every link of the stage.
func WithTracing() Option {
	return func(o *options) { o.tracing = true }
}

// WithDelayError makes ObserveOn deliver an upstream error only after the
// values already queued have been delivered.
func WithDelayError(delay bool) Option {
	return func(o *options) { o.delayError = delay }
}

// WithOverflow registers fn to be notified whenever values are dropped or
// rejected. It runs synchronously on the goroutine that detected the
// overflow and must not block.
func WithOverflow[T any](fn OverflowFunc[T]) Option {
	return func(o *options) { o.onOverflow = fn }
}

func buildOptions(defaultName string, opts []Option) *options {
	o := &options{name: defaultName}
	for _, opt := range opts {
		opt(o)
	}
	if o.ctx == nil {
		o.ctx = context.Background()
	}
	if o.log == nil {
		o.log = logger.Get(o.name)
	}
	return o
}

func overflowFunc[T any](o *options) OverflowFunc[T] {
	fn, _ := o.onOverflow.(OverflowFunc[T])
	return fn
}
