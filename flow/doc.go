// Package flow implements a demand-driven streaming engine: a consumer
// controls how fast a producer emits by granting demand, and producers that
// cannot be paused are adapted through explicit overflow strategies.
//
// A Publisher emits to a Subscriber only after the subscriber has granted
// demand through the Handle it receives in OnSubscribe. Every subscription is
// backed by a Link that owns the DemandCounter, enforces the protocol and
// moves through a small state machine (unsubscribed, active, completed,
// errored, cancelled). Terminal states are absorbing: nothing is delivered
// after completion, failure or cancellation.
//
// # Building blocks
//
//   - Range, FromSlice, Generate, FromIterator: pull sources that emit only
//     in response to demand.
//   - Create and NewBridge: adapt a push producer that ignores demand using
//     a Strategy (buffer, drop, latest, error, missing).
//   - OnBackpressureBuffer/Drop/Latest/Error: the same strategies as stages
//     in front of an existing publisher.
//   - ObserveOn: an asynchronous boundary with its own prefetch window.
//   - SubscribeOn: runs the upstream subscription on an executor.
//   - Iterate, Collect, ForEach: blocking consumption through a pull iterator.
//
// # Usage
//
//	var h flow.Handle
//	h = flow.Attach(flow.Range(0, 10), flow.Callbacks[int]{
//	    OnSubscribe: func(h flow.Handle) { _ = h.Request(5) },
//	    OnNext:      func(v int) { fmt.Println(v) },
//	    OnComplete:  func() { fmt.Println("done") },
//	})
//	_ = h.Request(5)
//
// # Chained overflow stages
//
// Overflow stages subscribe to their upstream with unbounded demand. Placing
// one overflow stage directly after another therefore disables the first:
// it never sees exhausted demand, so only the last stage that is itself fed
// bounded demand throttles. OnBackpressureBuffer(...) followed by
// OnBackpressureDrop(...) drops, it does not "buffer then drop". Use a
// buffer with the DropOldest or DropNewest policy for that. Such chains are
// accepted and logged at warn level.
package flow
