package actorloop

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Alarm is a scheduled one-shot or periodic timer callback, returned by
// Timers.After and Timers.Every. Pass it to Timers.Cancel to stop it.
type Alarm struct {
	id       uint64
	when     time.Time
	period   time.Duration // 0 for one-shot alarms
	callback func()

	cancelled bool
	index     int // heap.Interface bookkeeping
}

// alarmHeap orders Alarms ascending by when, so the soonest alarm is always
// at index 0 — a min-heap via container/heap, giving sub-linear insertion
// and earliest-lookup.
type alarmHeap []*Alarm

func (h alarmHeap) Len() int           { return len(h) }
func (h alarmHeap) Less(i, j int) bool { return h[i].when.Before(h[j].when) }
func (h alarmHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *alarmHeap) Push(x any) {
	a := x.(*Alarm)
	a.index = len(*h)
	*h = append(*h, a)
}
func (h *alarmHeap) Pop() any {
	old := *h
	n := len(old)
	a := old[n-1]
	old[n-1] = nil
	a.index = -1
	*h = old[:n-1]
	return a
}

// Timers is the Timer Service: a min-heap of Alarms fed by a single
// dedicated Background Activity (timer_worker) that sleeps until the
// soonest alarm is due, fires it, and re-inserts periodic alarms. It is an
// optional mixin over a Loop, not core loop machinery — construct one with
// NewTimers and hold onto it alongside the Loop it times for.
type Timers struct {
	loop *Loop

	mu     sync.Mutex
	heap   alarmHeap
	nextID uint64

	workerStarted bool
	workerGo      atomic.Uint64 // goroutine ID of timer_worker, once started
	reload        chan struct{}
}

// NewTimers creates a Timer Service bound to loop. The dedicated timer_worker
// activity is started lazily, on the first call to After or Every.
func NewTimers(loop *Loop) *Timers {
	return &Timers{
		loop:   loop,
		reload: make(chan struct{}, 1),
	}
}

// After schedules callback to run once, after d elapses, on loop's control
// goroutine (dispatched as a sync proc call named "timer_fire", so each due
// alarm completes before the next is considered).
func (t *Timers) After(d time.Duration, callback func()) *Alarm {
	return t.insert(d, 0, callback)
}

// Every schedules callback to run repeatedly, every d, until cancelled.
func (t *Timers) Every(d time.Duration, callback func()) *Alarm {
	return t.insert(d, d, callback)
}

// Cancel stops a. It is a no-op if a has already fired (for one-shot
// alarms) or was already cancelled.
func (t *Timers) Cancel(a *Alarm) {
	t.mu.Lock()
	wasSoonest := len(t.heap) > 0 && t.heap[0] == a
	a.cancelled = true
	if a.index >= 0 && a.index < len(t.heap) && t.heap[a.index] == a {
		heap.Remove(&t.heap, a.index)
	}
	t.mu.Unlock()

	if wasSoonest {
		t.signalReload()
	}
}

// PendingAlarms returns the number of alarms still scheduled.
func (t *Timers) PendingAlarms() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.heap)
}

func (t *Timers) insert(delay, period time.Duration, callback func()) *Alarm {
	t.mu.Lock()
	t.ensureWorkerLocked()
	t.nextID++
	a := &Alarm{id: t.nextID, when: time.Now().Add(delay), period: period, callback: callback}
	heap.Push(&t.heap, a)
	soonestChanged := t.heap[0] == a
	t.mu.Unlock()

	if soonestChanged {
		t.signalReload()
	}
	return a
}

func (t *Timers) ensureWorkerLocked() {
	if t.workerStarted {
		return
	}
	t.workerStarted = true
	// An error here means the loop is already shut down; nothing will ever
	// fire, which is consistent with shutdown tearing down all background
	// activities, timers included.
	_, _ = t.loop.StartActivity(context.Background(), t.runWorker)
}

// runWorker is the body of the timer_worker Background Activity: sleep until
// the soonest alarm, fire everything due, repeat. It recomputes its sleep
// target from scratch every iteration rather than trusting an incremental
// "has the soonest alarm changed" signal derived from list position, per
// this package's resolution of the reload-predicate question — every insert
// or cancel that changes the earliest alarm posts to reload, and the worker
// always recomputes on wake.
func (t *Timers) runWorker(ctx context.Context) {
	t.workerGo.Store(getGoroutineID())

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		t.mu.Lock()
		hasAlarm := len(t.heap) > 0
		var sleepFor time.Duration
		if hasAlarm {
			sleepFor = time.Until(t.heap[0].when)
			if sleepFor < 0 {
				sleepFor = 0
			}
		}
		t.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if hasAlarm {
			timer.Reset(sleepFor)
		} else {
			timer.Reset(time.Hour)
		}

		select {
		case <-ctx.Done():
			return
		case <-t.reload:
			continue
		case <-timer.C:
			if ctx.Err() != nil {
				return
			}
			t.fire()
		}
	}
}

func (t *Timers) fire() {
	now := time.Now()

	var due []*Alarm
	t.mu.Lock()
	for len(t.heap) > 0 && !t.heap[0].when.After(now) {
		due = append(due, heap.Pop(&t.heap).(*Alarm))
	}
	t.mu.Unlock()

	for _, a := range due {
		t.mu.Lock()
		cancelled := a.cancelled
		t.mu.Unlock()
		if cancelled {
			continue
		}

		_, _ = t.loop.syncProcCall("timer_fire", nil, func([]any) (any, error) {
			a.callback()
			return nil, nil
		})

		if a.period > 0 {
			t.mu.Lock()
			if !a.cancelled {
				a.when = now.Add(a.period)
				heap.Push(&t.heap, a)
			}
			t.mu.Unlock()
		}
	}
}

// signalReload wakes timer_worker so it recomputes its sleep target. It is a
// no-op when called from the worker's own goroutine, since the worker is
// about to loop back and recompute anyway.
func (t *Timers) signalReload() {
	if t.workerGo.Load() == getGoroutineID() {
		return
	}
	select {
	case t.reload <- struct{}{}:
	default:
	}
}
