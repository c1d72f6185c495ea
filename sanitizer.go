package actorloop

// Func is a raw callable value, as supplied by user code, intended to cross
// the external/internal boundary — for example as a call argument, or
// returned from a handler. The Argument Sanitizer wraps values of this type
// into the appropriate Wrapped object for the direction they are crossing;
// a bare Func is never itself a valid boundary-crossing value.
type Func func(args []any) (any, error)

// Handle is an opaque reference to mutable Box state that must not escape a
// boundary by direct pointer. Wrap a value with Loop.NewHandle before
// returning it from a handler if its identity, not a copy, needs to survive
// the trip; Handle values cross the Argument Sanitizer unchanged in either
// direction, since their whole purpose is to be an already-safe reference.
type Handle struct {
	loop  *Loop
	value any
}

// NewHandle wraps v as an opaque Handle bound to l.
func (l *Loop) NewHandle(v any) *Handle {
	return &Handle{loop: l, value: v}
}

// Value returns the wrapped value. Callers are responsible for not
// retaining it past the lifetime of the Box it came from.
func (h *Handle) Value() any {
	return h.value
}

// SanitizeInbound wraps each argument crossing from external code into l's
// internal context. A raw Func becomes a Wrapped External Callable, callable
// only from inside l. A value previously wrapped as a Wrapped Internal
// Object by this same loop is unwrapped back to its raw Func form, so a
// handler round-tripping its own AsyncProc/SyncProc back in as an argument
// sees the original callable rather than a nested wrapper. Everything else —
// including a Handle, or a Wrapped object belonging to a different loop —
// passes through unchanged.
func (l *Loop) SanitizeInbound(args []any) ([]any, error) {
	if len(args) == 0 {
		return args, nil
	}
	out := make([]any, len(args))
	for i, a := range args {
		v, err := l.sanitizeInboundValue(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (l *Loop) sanitizeInboundValue(v any) (any, error) {
	switch x := v.(type) {
	case Func:
		return l.wrapExternalCallable(x), nil
	case *AsyncProc:
		if x.loop == l {
			return Func(x.handler), nil
		}
	case *SyncProc:
		if x.loop == l {
			return Func(x.handler), nil
		}
	}
	return v, nil
}

// SanitizeOutbound inspects a value crossing from internal handler code back
// out to an external caller: a sync_call/yield_call return value, or a value
// posted through a deferred reply callable. A bare Func fails with
// *InvalidBoundaryError — its semantics (which dispatch kind invokes it, on
// which loop) cannot be preserved without going through WrapAsync, WrapSync,
// or WrapYield first. Everything else, including an already-Wrapped object
// or a Handle, passes through unchanged.
func (l *Loop) SanitizeOutbound(v any) (any, error) {
	if _, ok := v.(Func); ok {
		return nil, &InvalidBoundaryError{
			Message: "a raw callable cannot cross outbound unwrapped; wrap it with WrapAsync, WrapSync, or WrapYield first",
		}
	}
	return v, nil
}
