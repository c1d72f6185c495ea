package actorloop

import "sync/atomic"

// replyResult is the terminal value delivered through a replyChannel.
type replyResult struct {
	value any
	err   error
}

// Callback represents a pending invocation of a Wrapped External Callable,
// posted onto a replyChannel by the control goroutine and drained by the
// goroutine that is blocked in replyChannel.Wait — which runs the callable
// outside the Loop's lock and posts the result back via Return.
type Callback struct {
	Callable func(args []any) (any, error)
	Args     []any

	slot chan replyResult
}

// Return posts the Callback's result back to the control goroutine that
// invoked it, unblocking the handler that is waiting inside
// ExternalCallable.Invoke. The reply loop in replyChannel.Wait calls it
// automatically after running the callable; it is exposed for callers that
// drive a Callback by hand. It is safe to call at most once; a second call
// blocks if the first result has not yet been received, and otherwise leaves
// a result nobody reads. Either indicates a bug in the reply loop driving
// this Callback, not a condition callers need to guard.
func (cb *Callback) Return(value any, err error) {
	cb.slot <- replyResult{value: value, err: err}
}

// replyChannel is the Reply Channel primitive: a per-call-frame mailbox that
// carries at most one terminal value, plus zero or more interleaved
// Callback postings from Wrapped External Callable invocations made while
// the frame is still open.
type replyChannel struct {
	ch      chan any // carries either replyResult (terminal) or *Callback
	settled atomic.Bool
}

func newReplyChannel() *replyChannel {
	return &replyChannel{ch: make(chan any, 1)}
}

// deliver posts the terminal value for this call frame. Only the first call
// succeeds; subsequent calls return a *MultipleResultsError and have no
// effect, so a frame never carries more than one terminal value.
func (r *replyChannel) deliver(value any, err error) error {
	if !r.settled.CompareAndSwap(false, true) {
		return &MultipleResultsError{}
	}
	r.ch <- replyResult{value: value, err: err}
	return nil
}

// postCallback enqueues a Callback for the caller's reply loop to drain. It
// never blocks past the channel's buffer: callers must only post a Callback
// while they are prepared to block awaiting cb.slot, since the channel has
// capacity for exactly one pending item at a time (terminal value or
// Callback) by construction of the dispatch loop that drives it.
func (r *replyChannel) postCallback(cb *Callback) {
	r.ch <- cb
}

// Wait blocks until the terminal value is delivered, running any Callback
// postings it observes along the way. It always runs on the goroutine that
// made the original dispatch call, which never holds the Loop's lock, so
// invoking the Callback here never risks deadlocking against the Loop.
func (r *replyChannel) Wait() (any, error) {
	for {
		switch v := (<-r.ch).(type) {
		case replyResult:
			return v.value, v.err
		case *Callback:
			res, err := v.Callable(v.Args)
			v.Return(res, err)
		}
	}
}
