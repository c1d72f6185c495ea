package actorloop

import (
	"errors"
	"fmt"
)

// InvalidAccessError is raised when a call crosses a boundary its kind does
// not permit: an External Callable invoked from outside the loop, a Yield
// Proc invoked from inside it, or any Wrapped object invoked with a block
// (an additional callable argument), which none of them accept.
type InvalidAccessError struct {
	// Message describes which boundary rule was violated.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *InvalidAccessError) Error() string {
	if e.Message == "" {
		return "actorloop: invalid access"
	}
	return "actorloop: invalid access: " + e.Message
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *InvalidAccessError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is also an *InvalidAccessError, regardless of
// Message or Cause.
func (e *InvalidAccessError) Is(target error) bool {
	_, ok := target.(*InvalidAccessError)
	return ok
}

// MultipleResultsError is returned from a second or later invocation of a
// deferred Reply Channel's reply callable. At most one terminal value may
// ever be delivered to a given call frame; every invocation past the first
// is rejected with this error instead of silently overwriting the result.
type MultipleResultsError struct {
	// Name is the call name the Reply Channel belongs to, if known.
	Name string
}

// Error implements the error interface.
func (e *MultipleResultsError) Error() string {
	if e.Name == "" {
		return "actorloop: multiple results delivered to reply channel"
	}
	return fmt.Sprintf("actorloop: multiple results delivered to reply channel for %q", e.Name)
}

// Is reports whether target is also a *MultipleResultsError.
func (e *MultipleResultsError) Is(target error) bool {
	_, ok := target.(*MultipleResultsError)
	return ok
}

// AbortActivityError is delivered to a Background Activity at its next
// suspension point after the Background Activity Manager (directly, or via
// Shutdown) requests its cancellation. It carries the reason the activity
// was aborted as its Cause, typically ErrShutdown or a caller-supplied
// reason passed to ActivityHandle.Abort.
type AbortActivityError struct {
	Cause error
}

// Error implements the error interface.
func (e *AbortActivityError) Error() string {
	if e.Cause == nil {
		return "actorloop: activity aborted"
	}
	return "actorloop: activity aborted: " + e.Cause.Error()
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *AbortActivityError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is also an *AbortActivityError.
func (e *AbortActivityError) Is(target error) bool {
	_, ok := target.(*AbortActivityError)
	return ok
}

// InvalidBoundaryError is returned by the Argument Sanitizer when a value
// crossing the internal/external boundary cannot preserve its semantics —
// most commonly a raw, un-wrapped callable returned by value from a handler,
// which would otherwise escape the loop without the dispatch routing a
// Wrapped object requires.
type InvalidBoundaryError struct {
	Message string
}

// Error implements the error interface.
func (e *InvalidBoundaryError) Error() string {
	if e.Message == "" {
		return "actorloop: value cannot cross the boundary unwrapped"
	}
	return "actorloop: invalid boundary: " + e.Message
}

// Is reports whether target is also an *InvalidBoundaryError.
func (e *InvalidBoundaryError) Is(target error) bool {
	_, ok := target.(*InvalidBoundaryError)
	return ok
}

// ErrShutdown is the sentinel cause used when a call, activity, or timer is
// rejected or aborted because the Loop has entered its terminal Shut state.
// Background Activities see it wrapped in an *AbortActivityError; dispatch
// operations return it wrapped via WrapError with the call name.
var ErrShutdown = errors.New("actorloop: loop is shut down")

// WrapError wraps an error with additional context while preserving the
// cause chain, so that errors.Is/errors.As continue to match the original
// error through the wrapper.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
