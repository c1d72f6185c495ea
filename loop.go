package actorloop

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

type (
	// Handler is a call's underlying implementation: the function a Box
	// registers for async_call/sync_call, or wraps as an AsyncProc/SyncProc.
	Handler func(args []any) (any, error)

	// ReplyFunc settles a deferred call's Reply Channel. Only the first
	// invocation succeeds; every later one returns a *MultipleResultsError
	// and has no further effect.
	ReplyFunc func(result any, err error) error

	// DeferredHandler is a yield_call/yield_proc_call's underlying
	// implementation: it is handed a ReplyFunc to settle, typically from a
	// Background Activity started within the handler itself.
	DeferredHandler func(args []any, reply ReplyFunc) error
)

// dispatchTask is one admitted call, queued for the control goroutine.
type dispatchTask struct {
	kind  CallKind
	name  string
	run   func(*replyChannel)
	reply *replyChannel // nil for KindAsync
}

// Loop is the Event Loop Engine: a single dedicated control goroutine that
// dequeues and runs dispatched calls one at a time, giving every Box handler
// the mutual-exclusion guarantee of a serialization lock held for the
// handler's whole run. Unlike a plain mutex held across each call, admission
// and execution are decoupled by a FIFO queue: external callers enqueue and,
// for request/reply and deferred-reply calls, block on their own Reply
// Channel — never on the goroutine that will run the handler. That
// separation is what makes external-callback re-entry sound: when a handler
// invokes a Wrapped External Callable, the Callback it posts is drained by
// the original caller's goroutine, which is blocked in replyChannel.Wait,
// not inside the handler itself.
type Loop struct {
	state         *fastState
	ctrlGoroutine atomic.Uint64 // set once, when the control goroutine starts
	frame         atomic.Pointer[Frame]

	qmu   sync.Mutex
	queue []*dispatchTask
	wake  chan struct{}

	activities *activityManager
	logger     Logger
	guard      *guardTimer
	opts       *loopOptions
}

// NewLoop constructs a Loop in its Idle state and starts its control
// goroutine. A Loop is usable immediately; there is no separate Run step.
func NewLoop(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	l := &Loop{
		state:  newFastState(),
		opts:   cfg,
		logger: cfg.logger,
		wake:   make(chan struct{}, 1),
	}
	l.activities = newActivityManager(cfg.pool)
	if cfg.guardTime > 0 {
		l.guard = newGuardTimer(l, cfg.guardTime)
	}
	go l.run()
	return l, nil
}

// State returns the Loop's current LoopState.
func (l *Loop) State() LoopState {
	return l.state.Load()
}

// Name returns the Loop's configured name, or "" if unnamed.
func (l *Loop) Name() string {
	return l.opts.name
}

// Stats is a cheap, read-only snapshot of a Loop's operational state, for
// diagnostics. It is not a metrics system: no histograms, no counters that
// persist past the moment they're read.
type Stats struct {
	Name           string
	State          LoopState
	LiveActivities int
	LastCall       string
}

// Stats returns a snapshot of the Loop's current operational state.
func (l *Loop) Stats() Stats {
	last := ""
	if f := l.frame.Load(); f != nil {
		last = f.Name
	}
	return Stats{
		Name:           l.opts.name,
		State:          l.state.Load(),
		LiveActivities: l.activities.Count(),
		LastCall:       last,
	}
}

// AsyncCall dispatches handler without waiting for it to finish. Any error
// handler returns is logged and discarded; there is no caller left to
// receive it.
func (l *Loop) AsyncCall(name string, args []any, handler Handler) error {
	sargs, err := l.SanitizeInbound(args)
	if err != nil {
		return err
	}
	_, err = l.dispatch(KindAsync, name, func(_ *replyChannel) {
		res, herr := handler(sargs)
		l.finishAsync(name, res, herr)
	})
	return err
}

// SyncCall dispatches handler and blocks for its return value.
func (l *Loop) SyncCall(name string, args []any, handler Handler) (any, error) {
	sargs, err := l.SanitizeInbound(args)
	if err != nil {
		return nil, err
	}
	return l.dispatch(KindSyncReply, name, func(reply *replyChannel) {
		res, herr := handler(sargs)
		l.finishSync(reply, res, herr)
	})
}

// YieldCall dispatches handler and blocks until it settles its ReplyFunc —
// immediately, or later, from a Background Activity.
func (l *Loop) YieldCall(name string, args []any, handler DeferredHandler) (any, error) {
	sargs, err := l.SanitizeInbound(args)
	if err != nil {
		return nil, err
	}
	return l.dispatch(KindDeferredReply, name, func(reply *replyChannel) {
		if herr := handler(sargs, l.makeReplyFunc(reply)); herr != nil {
			_ = reply.deliver(nil, herr)
		}
	})
}

// asyncProcCall is async_proc_call: the dispatch path a Wrapped Internal
// Object's AsyncProc.Invoke takes when called from outside the Loop.
func (l *Loop) asyncProcCall(name string, args []any, handler Handler) error {
	_, err := l.dispatch(KindAsync, name, func(_ *replyChannel) {
		res, herr := handler(args)
		l.finishAsync(name, res, herr)
	})
	return err
}

// syncProcCall is sync_proc_call, the external dispatch path for SyncProc.
func (l *Loop) syncProcCall(name string, args []any, handler Handler) (any, error) {
	return l.dispatch(KindSyncReply, name, func(reply *replyChannel) {
		res, herr := handler(args)
		l.finishSync(reply, res, herr)
	})
}

// yieldProcCall is yield_proc_call, the external dispatch path for YieldProc.
func (l *Loop) yieldProcCall(name string, args []any, handler DeferredHandler) (any, error) {
	return l.dispatch(KindDeferredReply, name, func(reply *replyChannel) {
		if herr := handler(args, l.makeReplyFunc(reply)); herr != nil {
			_ = reply.deliver(nil, herr)
		}
	})
}

func (l *Loop) finishAsync(name string, res any, herr error) {
	if herr != nil {
		l.logger.Err(l.opts.name, name, herr)
		return
	}
	if _, serr := l.SanitizeOutbound(res); serr != nil {
		l.logger.Err(l.opts.name, name, serr)
	}
}

func (l *Loop) finishSync(reply *replyChannel, res any, herr error) {
	if herr != nil {
		_ = reply.deliver(nil, herr)
		return
	}
	out, serr := l.SanitizeOutbound(res)
	if serr != nil {
		_ = reply.deliver(nil, serr)
		return
	}
	_ = reply.deliver(out, nil)
}

func (l *Loop) makeReplyFunc(reply *replyChannel) ReplyFunc {
	return func(result any, rerr error) error {
		if rerr != nil {
			return reply.deliver(nil, rerr)
		}
		out, serr := l.SanitizeOutbound(result)
		if serr != nil {
			return reply.deliver(nil, serr)
		}
		return reply.deliver(out, nil)
	}
}

// dispatch is the Engine's single admission path: build a Frame's worth of
// bookkeeping, enqueue it for the control goroutine, and — for calls with a
// Reply Channel — block until it settles. It never runs run itself; that is
// always the control goroutine's job, which is what keeps the calling
// goroutine free to later drain any Callback the handler posts back through
// the same Reply Channel.
func (l *Loop) dispatch(kind CallKind, name string, run func(*replyChannel)) (any, error) {
	var reply *replyChannel
	if kind != KindAsync {
		reply = newReplyChannel()
	}
	t := &dispatchTask{kind: kind, name: name, run: run, reply: reply}
	if err := l.enqueue(t); err != nil {
		return nil, err
	}
	if reply != nil {
		return reply.Wait()
	}
	return nil, nil
}

// enqueue admits t onto the control goroutine's task queue, rejecting it
// with ErrShutdown if the Loop has already reached its terminal state.
func (l *Loop) enqueue(t *dispatchTask) error {
	l.qmu.Lock()
	if l.state.IsShut() {
		l.qmu.Unlock()
		return WrapError(t.name, ErrShutdown)
	}
	l.queue = append(l.queue, t)
	l.qmu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// run is the control goroutine's body: dequeue a task, execute it under an
// open Frame, repeat. Once shutdown is observed with an empty queue, it
// exits; any task still queued when shutdown lands is rejected with
// ErrShutdown rather than silently dropped, so its caller's reply.Wait
// always returns instead of blocking forever.
func (l *Loop) run() {
	l.ctrlGoroutine.Store(getGoroutineID())
	for {
		t, ok := l.nextTask()
		if !ok {
			return
		}
		if l.state.IsShut() {
			if t.reply != nil {
				_ = t.reply.deliver(nil, WrapError(t.name, ErrShutdown))
			}
			continue
		}
		l.execute(t)
	}
}

// nextTask pops the oldest queued task, blocking until one is available or
// the Loop has shut down with nothing left queued.
func (l *Loop) nextTask() (*dispatchTask, bool) {
	for {
		l.qmu.Lock()
		if len(l.queue) > 0 {
			t := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.qmu.Unlock()
			return t, true
		}
		shut := l.state.IsShut()
		l.qmu.Unlock()
		if shut {
			return nil, false
		}
		<-l.wake
	}
}

// execute runs a single dispatched task under an open Frame, applying the
// guard_time diagnostic if configured. Both state transitions are CAS:
// Shutdown may land at any instant, and Shut must never be overwritten.
func (l *Loop) execute(t *dispatchTask) {
	if !l.state.TryTransition(Idle, Serving) {
		if t.reply != nil {
			_ = t.reply.deliver(nil, WrapError(t.name, ErrShutdown))
		}
		return
	}
	l.frame.Store(&Frame{Kind: t.kind, Name: t.name, reply: t.reply})

	var guardStop func()
	if l.guard != nil {
		guardStop = l.guard.start(t.name)
	}

	t.run(t.reply)

	if guardStop != nil {
		guardStop()
	}

	l.frame.Store(nil)
	l.state.TryTransition(Serving, Idle)
}

// Shutdown moves the Loop to its terminal Shut state, cancels every live
// Background Activity, and wakes the control goroutine so it notices and
// drains (rejecting) anything still queued. It is safe to call from inside a
// handler running on this Loop (a Box shutting itself down) and is
// idempotent.
func (l *Loop) Shutdown() {
	l.state.Store(Shut)
	l.activities.Shutdown()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// StartActivity spawns fn as a new Background Activity. See ActivityHandle
// and Suspend for cooperative cancellation.
func (l *Loop) StartActivity(ctx context.Context, fn func(ctx context.Context)) (*ActivityHandle, error) {
	return l.activities.Start(ctx, fn)
}

// isCtrlGoroutine reports whether the calling goroutine is the Loop's
// control goroutine — i.e. whether it is the one goroutine ever allowed to
// run handler code for this Loop.
func (l *Loop) isCtrlGoroutine() bool {
	ctrl := l.ctrlGoroutine.Load()
	return ctrl != 0 && ctrl == getGoroutineID()
}

func (l *Loop) currentFrame() *Frame {
	return l.frame.Load()
}

// getGoroutineID extracts the current goroutine's numeric ID by parsing the
// "goroutine N [running]:" header runtime.Stack always writes first. It is
// the cheapest portable way to get this identity without a runtime patch,
// and is only ever used for the reentrancy check above, never for anything
// that needs to be fast on a hot path.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
