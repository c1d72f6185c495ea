// Package actorloop implements a single-threaded, mutex-serialized execution
// primitive for arbitrary mutable state ("a Box"): an Event Loop Engine that
// runs exactly one handler at a time, a Reply Channel for routing results
// back to callers, a Background Activity Manager for cooperative goroutines
// spawned by handlers, and a Timer Service built on top of both.
//
// A Box's state is never touched by more than one goroutine concurrently:
// every call into it — async, sync, or deferred-reply — is serialized onto
// a single control goroutine by the Loop's internal lock. Background
// Activities run on their own goroutines but must cross back through the
// Loop's dispatch path (via Wrapped Internal Objects) to touch Box state.
package actorloop
