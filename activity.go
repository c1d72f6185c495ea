package actorloop

import (
	"context"
	"sync"
	"sync/atomic"
)

// ActivityPool lets background activities be scheduled onto an
// externally-managed pool of goroutines instead of a fresh goroutine per
// activity. Implementations must eventually run fn; Go should typically
// return immediately, handing fn off to a worker.
type ActivityPool interface {
	Go(fn func())
}

// ActivityHandle is returned by Loop.StartActivity. Abort requests
// cancellation of the activity's context with the given reason; Done
// reports when the activity's handler has returned.
type ActivityHandle struct {
	id     uint64
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// Abort requests cancellation of the activity, with reason surfacing as the
// Cause of the *AbortActivityError the activity observes at its next
// suspension point (see Suspend).
func (h *ActivityHandle) Abort(reason error) {
	h.cancel(reason)
}

// Done returns a channel closed once the activity's handler has returned.
func (h *ActivityHandle) Done() <-chan struct{} {
	return h.done
}

// Suspend blocks until either ctx is done or ch is ready, returning an
// *AbortActivityError in the former case. Background Activities that need
// to wait on arbitrary channels (not just ctx.Done) should route the wait
// through Suspend so cancellation is observed at that suspension point;
// activity code between suspension points is never preempted.
func Suspend(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return &AbortActivityError{Cause: context.Cause(ctx)}
	case <-ch:
		return nil
	}
}

type activityEntry struct {
	id     uint64
	cancel context.CancelCauseFunc
}

// activityManager is the Background Activity Manager: it tracks every live
// activity so Shutdown can cancel all of them, using a copy-on-write
// snapshot of the live set so Shutdown never needs to acquire a lock that a
// background goroutine might be holding during teardown.
type activityManager struct {
	mu       sync.Mutex
	live     map[uint64]*activityEntry
	snapshot atomic.Pointer[[]*activityEntry]
	nextID   atomic.Uint64
	shutdown atomic.Bool
	wg       sync.WaitGroup
	pool     ActivityPool
}

func newActivityManager(pool ActivityPool) *activityManager {
	m := &activityManager{
		live: make(map[uint64]*activityEntry),
		pool: pool,
	}
	empty := []*activityEntry{}
	m.snapshot.Store(&empty)
	return m
}

// abortPanic is recovered by the activity's run wrapper so a handler that
// lets an *AbortActivityError propagate as a panic (rather than returning
// it) still unwinds cleanly instead of crashing the process.
type abortPanic struct{ err error }

// Start spawns fn as a new Background Activity, running on a fresh goroutine
// (or on the configured ActivityPool). It returns an error instead of
// spawning if the manager has already been shut down.
func (m *activityManager) Start(parent context.Context, fn func(ctx context.Context)) (*ActivityHandle, error) {
	if m.shutdown.Load() {
		return nil, ErrShutdown
	}

	id := m.nextID.Add(1)
	ctx, cancel := context.WithCancelCause(parent)
	entry := &activityEntry{id: id, cancel: cancel}
	done := make(chan struct{})

	m.mu.Lock()
	if m.shutdown.Load() {
		m.mu.Unlock()
		cancel(ErrShutdown)
		return nil, ErrShutdown
	}
	m.live[id] = entry
	m.refreshSnapshotLocked()
	m.mu.Unlock()

	m.wg.Add(1)
	run := func() {
		defer m.wg.Done()
		defer close(done)
		defer m.remove(id)
		defer func() {
			if r := recover(); r != nil {
				switch r.(type) {
				case abortPanic, *AbortActivityError:
					return
				}
				panic(r)
			}
		}()
		fn(ctx)
	}

	if m.pool != nil {
		m.pool.Go(run)
	} else {
		go run()
	}

	// Narrow race: Shutdown may have flagged m.shutdown and walked the
	// snapshot after we released mu above but before our entry was visible
	// in it. Re-checking once more here, after publishing, closes that
	// window: either Shutdown's walk already included us (and this is a
	// harmless double-cancel), or it ran before we were inserted and this
	// catches it.
	if m.shutdown.Load() {
		cancel(ErrShutdown)
	}

	return &ActivityHandle{id: id, cancel: cancel, done: done}, nil
}

func (m *activityManager) remove(id uint64) {
	m.mu.Lock()
	delete(m.live, id)
	m.refreshSnapshotLocked()
	m.mu.Unlock()
}

func (m *activityManager) refreshSnapshotLocked() {
	entries := make([]*activityEntry, 0, len(m.live))
	for _, e := range m.live {
		entries = append(entries, e)
	}
	m.snapshot.Store(&entries)
}

// Shutdown cancels every live activity. It deliberately never acquires mu:
// it only reads the copy-on-write snapshot, so it is safe to call from a
// context where mu might already be held (a handler shutting down its own
// loop).
func (m *activityManager) Shutdown() {
	if !m.shutdown.CompareAndSwap(false, true) {
		return
	}
	for _, e := range *m.snapshot.Load() {
		e.cancel(ErrShutdown)
	}
}

// Wait blocks until every activity spawned so far has returned. Intended for
// tests and graceful-shutdown callers that want to observe teardown
// completion rather than just requesting it.
func (m *activityManager) Wait() {
	m.wg.Wait()
}

// Count returns the number of currently live activities.
func (m *activityManager) Count() int {
	return len(*m.snapshot.Load())
}
