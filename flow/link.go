package flow

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/observability"
)

// State is the lifecycle state of a Link.
type State int32

const (
	StateUnsubscribed State = iota
	StateActive
	StateCompleted
	StateErrored
	StateCancelled
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateUnsubscribed:
		return "unsubscribed"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is absorbing.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateErrored || s == StateCancelled
}

// Link binds one subscriber to one source and enforces the demand protocol
// between them. It is the Handle the subscriber receives.
//
// The producing side gates every value with Demand().TryConsume and
// delivers it through the link, which drops anything that arrives after a
// terminal transition.
type Link[T any] struct {
	id    string
	name  string
	state atomic.Int32

	demand DemandCounter
	sub    Subscriber[T]

	ctx    context.Context
	cancel context.CancelFunc
	span   trace.Span

	onDemand func()
	onCancel func()

	log     *logger.Logger
	metrics *observability.StreamMetrics
}

func newLink[T any](sub Subscriber[T], o *options) *Link[T] {
	l := &Link[T]{
		id:      uuid.NewString(),
		name:    o.name,
		sub:     sub,
		log:     o.log,
		metrics: o.metrics,
	}
	ctx := o.ctx
	if o.tracing {
		ctx, l.span = observability.StartStageSpan(ctx, l.name, l.id)
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	return l
}

// bind installs the producer hooks. onDemand runs after every accepted
// Request, onCancel once after the link is cancelled.
func (l *Link[T]) bind(onDemand, onCancel func()) {
	l.onDemand = onDemand
	l.onCancel = onCancel
}

// start activates the link and hands it to the subscriber.
func (l *Link[T]) start() {
	if !l.state.CompareAndSwap(int32(StateUnsubscribed), int32(StateActive)) {
		return
	}
	if l.log.Enabled(logger.DebugLevel) {
		l.log.Debug("link subscribed", l.fields())
	}
	l.sub.OnSubscribe(l)
}

// ID returns the unique link id.
func (l *Link[T]) ID() string { return l.id }

// Name returns the name of the stage that created the link.
func (l *Link[T]) Name() string { return l.name }

// State returns the current state.
func (l *Link[T]) State() State { return State(l.state.Load()) }

// Context is cancelled as soon as the link leaves the active state.
func (l *Link[T]) Context() context.Context { return l.ctx }

// Demand exposes the link's demand counter.
func (l *Link[T]) Demand() *DemandCounter { return &l.demand }

// Request grants n more values. Requests on a terminal link are ignored.
func (l *Link[T]) Request(n int64) error {
	if l.State().Terminal() {
		return nil
	}
	if n <= 0 {
		return errors.InvalidDemand(n)
	}
	if err := l.demand.Request(n); err != nil {
		return err
	}
	l.metrics.RecordRequested(l.ctx, l.name, n, n == Unbounded)
	if l.onDemand != nil {
		l.onDemand()
	}
	return nil
}

// Cancel terminates the link. Only the first call has an effect.
func (l *Link[T]) Cancel() {
	for {
		s := l.State()
		if s.Terminal() {
			return
		}
		if l.state.CompareAndSwap(int32(s), int32(StateCancelled)) {
			break
		}
	}
	l.demand.Reset()
	l.finish(StateCancelled, nil)
	if l.onCancel != nil {
		l.onCancel()
	}
}

func (l *Link[T]) active() bool {
	return l.State() == StateActive
}

// emit delivers v unless the link has left the active state.
func (l *Link[T]) emit(v T) bool {
	if !l.active() {
		return false
	}
	l.metrics.RecordEmitted(l.ctx, l.name)
	l.sub.OnNext(v)
	return true
}

func (l *Link[T]) complete() bool {
	if !l.state.CompareAndSwap(int32(StateActive), int32(StateCompleted)) {
		return false
	}
	l.finish(StateCompleted, nil)
	l.sub.OnComplete()
	return true
}

func (l *Link[T]) fail(err error) bool {
	if !l.state.CompareAndSwap(int32(StateActive), int32(StateErrored)) {
		return false
	}
	l.finish(StateErrored, err)
	l.sub.OnError(err)
	return true
}

func (l *Link[T]) finish(s State, err error) {
	l.cancel()
	l.metrics.RecordTerminated(context.Background(), l.name, s.String())
	observability.EndStageSpan(l.span, s.String(), err)

	switch {
	case errors.Is(err, errors.ErrCodeBackpressureViolation):
		l.log.Warn("link failed", logger.MergeWithError(l.fields(), err))
	case err != nil:
		l.log.Debug("link failed", logger.MergeWithError(l.fields(), err))
	default:
		if l.log.Enabled(logger.DebugLevel) {
			l.log.Debug("link terminated", l.fields())
		}
	}
}

func (l *Link[T]) fields() map[string]interface{} {
	return logger.Fields(
		logger.FieldLinkID, l.id,
		logger.FieldStage, l.name,
		logger.FieldState, l.State().String(),
		logger.FieldDemand, l.demand.Remaining(),
	)
}
