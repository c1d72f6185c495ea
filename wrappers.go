package actorloop

// ExternalCallable is the Wrapped External Callable: a raw Func argument
// that crossed inbound through the Argument Sanitizer. It may only be
// invoked internally — from code running on its owning Loop's control
// goroutine, during an open call frame that has a Reply Channel. Invoking it
// from outside the loop, or from an async_call/async_proc_call frame (which
// has no Reply Channel to route through), fails with InvalidAccessError.
type ExternalCallable struct {
	loop *Loop
	fn   Func
}

func (l *Loop) wrapExternalCallable(fn Func) *ExternalCallable {
	return &ExternalCallable{loop: l, fn: fn}
}

// Invoke calls the wrapped callable. block must be nil; every Wrapped
// object rejects invocation with an additional callable argument.
func (e *ExternalCallable) Invoke(args []any, block any) (any, error) {
	if block != nil {
		return nil, &InvalidAccessError{Message: "external callable invoked with a block"}
	}
	if !e.loop.isCtrlGoroutine() {
		return nil, &InvalidAccessError{Message: "external callable invoked from outside its loop"}
	}
	frame := e.loop.currentFrame()
	if frame == nil || frame.reply == nil {
		return nil, &InvalidAccessError{Message: "external callable invoked with no reply channel open to route through"}
	}

	cb := &Callback{Callable: e.fn, Args: args, slot: make(chan replyResult, 1)}
	frame.reply.postCallback(cb)
	res := <-cb.slot
	return res.value, res.err
}

// AsyncProc is a Wrapped Internal Object wrapping a fire-and-forget Handler.
// Internal-originated invocations run the handler directly, since the lock
// is already held by the calling goroutine; external invocations dispatch
// through async_proc_call like any other async call.
type AsyncProc struct {
	loop    *Loop
	name    string
	handler Handler
}

// WrapAsync wraps handler as an AsyncProc bound to l, suitable for returning
// from a handler so external code can later invoke it asynchronously.
func (l *Loop) WrapAsync(name string, handler Handler) *AsyncProc {
	return &AsyncProc{loop: l, name: name, handler: handler}
}

// Invoke runs the wrapped handler. block must be nil.
func (p *AsyncProc) Invoke(args []any, block any) error {
	if block != nil {
		return &InvalidAccessError{Message: "async proc invoked with a block"}
	}
	if p.loop.isCtrlGoroutine() {
		res, herr := p.handler(args)
		p.loop.finishAsync(p.name, res, herr)
		return nil
	}
	sargs, err := p.loop.SanitizeInbound(args)
	if err != nil {
		return err
	}
	return p.loop.asyncProcCall(p.name, sargs, p.handler)
}

// SyncProc is a Wrapped Internal Object wrapping a Handler invoked for its
// return value. Internal invocations run directly; external invocations
// dispatch through sync_proc_call and block for the result.
type SyncProc struct {
	loop    *Loop
	name    string
	handler Handler
}

// WrapSync wraps handler as a SyncProc bound to l.
func (l *Loop) WrapSync(name string, handler Handler) *SyncProc {
	return &SyncProc{loop: l, name: name, handler: handler}
}

// Invoke runs the wrapped handler and returns its (sanitized) result. block
// must be nil.
func (p *SyncProc) Invoke(args []any, block any) (any, error) {
	if block != nil {
		return nil, &InvalidAccessError{Message: "sync proc invoked with a block"}
	}
	if p.loop.isCtrlGoroutine() {
		res, err := p.handler(args)
		if err != nil {
			return nil, err
		}
		return p.loop.SanitizeOutbound(res)
	}
	sargs, err := p.loop.SanitizeInbound(args)
	if err != nil {
		return nil, err
	}
	return p.loop.syncProcCall(p.name, sargs, p.handler)
}

// YieldProc is a Wrapped Internal Object wrapping a DeferredHandler. Unlike
// AsyncProc and SyncProc, it may never be invoked internally — a handler
// already holds the lock it would need the deferred-reply machinery to
// release and reacquire, so invoking a YieldProc from inside another handler
// always fails with InvalidAccessError.
type YieldProc struct {
	loop    *Loop
	name    string
	handler DeferredHandler
}

// WrapYield wraps handler as a YieldProc bound to l.
func (l *Loop) WrapYield(name string, handler DeferredHandler) *YieldProc {
	return &YieldProc{loop: l, name: name, handler: handler}
}

// Invoke dispatches the wrapped handler externally and blocks until its
// ReplyFunc settles. block must be nil.
func (p *YieldProc) Invoke(args []any, block any) (any, error) {
	if block != nil {
		return nil, &InvalidAccessError{Message: "yield proc invoked with a block"}
	}
	if p.loop.isCtrlGoroutine() {
		return nil, &InvalidAccessError{Message: "yield proc invoked internally; yield procs may only be invoked from outside their loop"}
	}
	sargs, err := p.loop.SanitizeInbound(args)
	if err != nil {
		return nil, err
	}
	return p.loop.yieldProcCall(p.name, sargs, p.handler)
}
